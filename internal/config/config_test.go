package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kaziflow/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Company.Name != "KaziDesign" {
		t.Fatalf("company name: %s", cfg.Company.Name)
	}
	if cfg.Auth.SessionTTL != 12*time.Hour {
		t.Fatalf("session ttl: %v", cfg.Auth.SessionTTL)
	}
	if cfg.Billing.ProcessingDelay != 3*time.Second {
		t.Fatalf("processing delay: %v", cfg.Billing.ProcessingDelay)
	}
	if len(cfg.Billing.Plans) != 3 {
		t.Fatalf("plans: %d", len(cfg.Billing.Plans))
	}
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	if err != nil {
		t.Fatalf("parse generated yaml: %v", err)
	}
	p, ok := cfg.Plan("PRO")
	if !ok || p.Name != "Pro Interiorist" || p.PriceKES != "4,500" || !p.Recommended {
		t.Fatalf("PRO plan: %+v", p)
	}
	if _, ok := cfg.Plan("GOLD"); ok {
		t.Fatalf("unknown plan should not resolve")
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{"missing company name", func(c *config.Config) { c.Company.Name = "" }, "company.name"},
		{"no designer domains", func(c *config.Config) { c.Company.DesignerDomains = nil }, "designer_domains"},
		{"domain without at", func(c *config.Config) { c.Company.DesignerDomains = []string{"kazidesign.com"} }, "must start with @"},
		{"zero ttl", func(c *config.Config) { c.Auth.SessionTTL = 0 }, "session_ttl"},
		{"duplicate plan", func(c *config.Config) { c.Billing.Plans = append(c.Billing.Plans, c.Billing.Plans[0]) }, "duplicate"},
		{"missing model", func(c *config.Config) { c.Advisor.AdviceModel = "" }, "advice_model"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("got %v, want error containing %q", err, tc.wantSub)
			}
		})
	}
}

func TestDesignerEmailAllowed(t *testing.T) {
	cfg := config.Default()
	cases := []struct {
		email string
		want  bool
	}{
		{"amina@kazidesign.com", true},
		{"Amina@KaziDesign.COM", true},
		{"root@admin.com", true},
		{"amina@gmail.com", false},
		{"amina@kazidesign.co.ke", false},
	}
	for _, tc := range cases {
		if got := cfg.DesignerEmailAllowed(tc.email); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Company.Name != "KaziDesign" {
		t.Fatalf("fallback config: %s", cfg.Company.Name)
	}

	custom := strings.Replace(config.GenerateDefault(), "KaziDesign", "Nyumba Studio", 1)
	if err := os.WriteFile(filepath.Join(dir, "kaziflow.yml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Company.Name != "Nyumba Studio" {
		t.Fatalf("loaded config: %s", cfg.Company.Name)
	}

	if err := os.WriteFile(filepath.Join(dir, "kaziflow.yml"), []byte("company: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadOptional(dir); err == nil {
		t.Fatalf("broken yaml should fail")
	}
}
