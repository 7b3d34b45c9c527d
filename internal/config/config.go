package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models kaziflow.yml.
type Config struct {
	Company struct {
		Name            string   `yaml:"name"`
		DesignerDomains []string `yaml:"designer_domains"`
	} `yaml:"company"`
	Auth struct {
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"auth"`
	Billing struct {
		ProcessingDelay time.Duration `yaml:"processing_delay"`
		Plans           []Plan        `yaml:"plans"`
	} `yaml:"billing"`
	Advisor struct {
		BaseURL       string        `yaml:"base_url"`
		APIKeyEnv     string        `yaml:"api_key_env"`
		AdviceModel   string        `yaml:"advice_model"`
		ProposalModel string        `yaml:"proposal_model"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"advisor"`
	Server struct {
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Plan describes one subscription plan offered at upgrade time.
type Plan struct {
	Tier        string   `yaml:"tier"`
	Name        string   `yaml:"name"`
	PriceKES    string   `yaml:"price_kes"`
	Features    []string `yaml:"features"`
	Recommended bool     `yaml:"recommended"`
}

// Load reads and validates config from a workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run kazi init first", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() when no config file exists in the workspace.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "kaziflow.yml")
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Company.Name == "" {
		return fmt.Errorf("config.company.name is required")
	}
	if len(c.Company.DesignerDomains) == 0 {
		return fmt.Errorf("config.company.designer_domains is required")
	}
	for _, d := range c.Company.DesignerDomains {
		if !strings.HasPrefix(d, "@") {
			return fmt.Errorf("designer domain %q must start with @", d)
		}
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("config.auth.session_ttl must be positive")
	}
	seen := map[string]bool{}
	for _, p := range c.Billing.Plans {
		if p.Tier == "" || p.Name == "" {
			return fmt.Errorf("billing plan needs tier and name")
		}
		if seen[p.Tier] {
			return fmt.Errorf("duplicate billing plan tier %s", p.Tier)
		}
		seen[p.Tier] = true
	}
	if c.Advisor.AdviceModel == "" || c.Advisor.ProposalModel == "" {
		return fmt.Errorf("config.advisor.advice_model and proposal_model are required")
	}
	return nil
}

// Plan returns the billing plan for a tier, if configured.
func (c *Config) Plan(tier string) (Plan, bool) {
	for _, p := range c.Billing.Plans {
		if p.Tier == tier {
			return p, true
		}
	}
	return Plan{}, false
}

// DesignerEmailAllowed reports whether an email carries an accepted designer
// domain. Case-insensitive suffix match; a format check, not verification.
func (c *Config) DesignerEmailAllowed(email string) bool {
	lowered := strings.ToLower(email)
	for _, d := range c.Company.DesignerDomains {
		if strings.HasSuffix(lowered, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// Default returns the built-in default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML for kazi init.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `company:
  name: KaziDesign
  designer_domains: ["@kazidesign.com", "@admin.com"]

auth:
  session_ttl: 12h

billing:
  processing_delay: 3s
  plans:
    - tier: FREE
      name: Solo Designer
      price_kes: "0"
      features:
        - 1 Active Project
        - Basic Workflow Tracking
        - Public Portfolio
    - tier: PRO
      name: Pro Interiorist
      price_kes: "4,500"
      recommended: true
      features:
        - Unlimited Project Archives
        - Private Stage Notes
        - Unrestricted AI Proposals
        - Export BOQs
    - tier: STUDIO
      name: Design Studio
      price_kes: "12,000"
      features:
        - Everything in Pro
        - Multi-user Team Access
        - Advanced Analytics
        - Priority Support

advisor:
  base_url: https://generativelanguage.googleapis.com
  api_key_env: KAZIFLOW_AI_API_KEY
  advice_model: gemini-3-flash-preview
  proposal_model: gemini-3-pro-preview
  timeout: 30s

server:
  base_path: /v0
`
