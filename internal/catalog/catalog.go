// Package catalog holds the immutable workflow stage catalog and the fixed
// reference data (materials guide, tag vocabularies, seed records). Loaded
// once from embedded YAML at first use, never mutated afterwards.
package catalog

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"kaziflow/internal/domain"
)

//go:embed data/*.yml
var dataFS embed.FS

type stageFile struct {
	Stages            []domain.WorkflowStage `yaml:"stages"`
	ClientStages      []string               `yaml:"client_stages"`
	PhotoTags         []string               `yaml:"photo_tags"`
	ProductCategories []string               `yaml:"product_categories"`
	Locations         []string               `yaml:"locations"`
}

type materialFile struct {
	Materials []domain.MaterialItem `yaml:"materials"`
}

var (
	loadOnce  sync.Once
	stageData stageFile
	matData   materialFile
	stageIdx  map[string]int
)

func load() {
	loadOnce.Do(func() {
		raw, err := dataFS.ReadFile("data/stages.yml")
		if err != nil {
			panic(fmt.Sprintf("catalog: read stages: %v", err))
		}
		if err := yaml.Unmarshal(raw, &stageData); err != nil {
			panic(fmt.Sprintf("catalog: parse stages: %v", err))
		}
		raw, err = dataFS.ReadFile("data/materials.yml")
		if err != nil {
			panic(fmt.Sprintf("catalog: read materials: %v", err))
		}
		if err := yaml.Unmarshal(raw, &matData); err != nil {
			panic(fmt.Sprintf("catalog: parse materials: %v", err))
		}
		stageIdx = make(map[string]int, len(stageData.Stages))
		for i, s := range stageData.Stages {
			if _, dup := stageIdx[s.ID]; dup {
				panic(fmt.Sprintf("catalog: duplicate stage id %s", s.ID))
			}
			stageIdx[s.ID] = i
		}
	})
}

// Stages returns the full ordered stage catalog.
func Stages() []domain.WorkflowStage {
	load()
	out := make([]domain.WorkflowStage, len(stageData.Stages))
	copy(out, stageData.Stages)
	return out
}

// Len is the total number of stages; progress is computed against it.
func Len() int {
	load()
	return len(stageData.Stages)
}

// Get returns the stage with the given id.
func Get(id string) (domain.WorkflowStage, bool) {
	load()
	i, ok := stageIdx[id]
	if !ok {
		return domain.WorkflowStage{}, false
	}
	return stageData.Stages[i], true
}

// Index returns the zero-based catalog position of a stage id, or -1.
func Index(id string) int {
	load()
	if i, ok := stageIdx[id]; ok {
		return i
	}
	return -1
}

// At returns the stage at a catalog position.
func At(i int) domain.WorkflowStage {
	load()
	return stageData.Stages[i]
}

// ClientStageIDs is the fixed subset of stage ids visible to the client role.
func ClientStageIDs() []string {
	load()
	out := make([]string, len(stageData.ClientStages))
	copy(out, stageData.ClientStages)
	return out
}

// ClientVisible reports whether a stage id is in the client-visible subset.
func ClientVisible(id string) bool {
	load()
	for _, s := range stageData.ClientStages {
		if s == id {
			return true
		}
	}
	return false
}

// VisibleStages returns the catalog filtered for a role, in catalog order.
// Designers see everything; clients see the fixed subset.
func VisibleStages(role domain.UserRole) []domain.WorkflowStage {
	load()
	if role != domain.RoleClient {
		return Stages()
	}
	var out []domain.WorkflowStage
	for _, s := range stageData.Stages {
		if ClientVisible(s.ID) {
			out = append(out, s)
		}
	}
	return out
}

func PhotoTags() []string {
	load()
	out := make([]string, len(stageData.PhotoTags))
	copy(out, stageData.PhotoTags)
	return out
}

func ProductCategories() []string {
	load()
	out := make([]string, len(stageData.ProductCategories))
	copy(out, stageData.ProductCategories)
	return out
}

func Locations() []string {
	load()
	out := make([]string, len(stageData.Locations))
	copy(out, stageData.Locations)
	return out
}

// Materials returns the materials & finishes guide, optionally filtered by a
// search term (name substring, case-insensitive) and a category.
func Materials(search, category string) []domain.MaterialItem {
	load()
	var out []domain.MaterialItem
	for _, m := range matData.Materials {
		if search != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(search)) {
			continue
		}
		if category != "" && category != "All" && m.Category != category {
			continue
		}
		out = append(out, m)
	}
	return out
}

// MaterialCategories returns the distinct guide categories in first-seen order.
func MaterialCategories() []string {
	load()
	seen := map[string]bool{}
	var out []string
	for _, m := range matData.Materials {
		if !seen[m.Category] {
			seen[m.Category] = true
			out = append(out, m.Category)
		}
	}
	return out
}
