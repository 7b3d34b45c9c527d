package catalog_test

import (
	"testing"

	"kaziflow/internal/catalog"
	"kaziflow/internal/domain"
)

var wantOrder = []string{
	"onboarding", "concept", "development", "compliance", "costing",
	"procurement", "execution", "styling", "handover",
}

func TestStageCatalogOrder(t *testing.T) {
	stages := catalog.Stages()
	if len(stages) != 9 || catalog.Len() != 9 {
		t.Fatalf("stage count: %d", len(stages))
	}
	for i, s := range stages {
		if s.ID != wantOrder[i] {
			t.Fatalf("stage %d: got %s, want %s", i, s.ID, wantOrder[i])
		}
		if s.Title == "" || s.Description == "" {
			t.Fatalf("stage %s missing content", s.ID)
		}
		if len(s.Deliverables) == 0 || len(s.Tasks) == 0 {
			t.Fatalf("stage %s missing deliverables or tasks", s.ID)
		}
	}
}

func TestClientVisibleSubset(t *testing.T) {
	for _, hidden := range []string{"onboarding", "procurement"} {
		if catalog.ClientVisible(hidden) {
			t.Fatalf("%s should be hidden from clients", hidden)
		}
	}
	visible := catalog.VisibleStages(domain.RoleClient)
	if len(visible) != 7 {
		t.Fatalf("client stages: %d", len(visible))
	}
	// subset keeps catalog order
	if visible[0].ID != "concept" || visible[len(visible)-1].ID != "handover" {
		t.Fatalf("client order: first %s last %s", visible[0].ID, visible[len(visible)-1].ID)
	}
	if len(catalog.VisibleStages(domain.RoleDesigner)) != 9 {
		t.Fatalf("designers see everything")
	}
}

func TestLookups(t *testing.T) {
	s, ok := catalog.Get("costing")
	if !ok || s.Title == "" {
		t.Fatalf("get costing: %+v ok=%v", s, ok)
	}
	if _, ok := catalog.Get("nope"); ok {
		t.Fatalf("unknown id should not resolve")
	}
	if catalog.Index("onboarding") != 0 || catalog.Index("handover") != 8 {
		t.Fatalf("index positions wrong")
	}
	if catalog.Index("nope") != -1 {
		t.Fatalf("unknown index should be -1")
	}
	if catalog.At(1).ID != "concept" {
		t.Fatalf("At(1): %s", catalog.At(1).ID)
	}
}

func TestMaterialsFilter(t *testing.T) {
	all := catalog.Materials("", "")
	if len(all) == 0 {
		t.Fatalf("materials guide should not be empty")
	}
	cats := catalog.MaterialCategories()
	if len(cats) == 0 {
		t.Fatalf("expected categories")
	}

	byCat := catalog.Materials("", cats[0])
	for _, m := range byCat {
		if m.Category != cats[0] {
			t.Fatalf("category filter leak: %+v", m)
		}
	}
	if got := catalog.Materials("", "All"); len(got) != len(all) {
		t.Fatalf(`"All" should not filter`)
	}

	some := catalog.Materials(all[0].Name[:3], "")
	found := false
	for _, m := range some {
		if m.Name == all[0].Name {
			found = true
		}
	}
	if !found {
		t.Fatalf("search by name prefix should match %s", all[0].Name)
	}
	if got := catalog.Materials("zzzzzz", ""); len(got) != 0 {
		t.Fatalf("nonsense search should match nothing")
	}
}

func TestLocations(t *testing.T) {
	locs := catalog.Locations()
	if len(locs) == 0 {
		t.Fatalf("location suggestions should not be empty")
	}
	locs[0] = "tampered"
	if catalog.Locations()[0] == "tampered" {
		t.Fatalf("locations should be copied")
	}
}

func TestSeeds(t *testing.T) {
	suppliers := catalog.SeedSuppliers()
	if len(suppliers) != 4 {
		t.Fatalf("seed suppliers: %d", len(suppliers))
	}
	for _, s := range suppliers {
		for _, p := range s.Products {
			ok := false
			for _, c := range catalog.ProductCategories() {
				if c == p {
					ok = true
				}
			}
			if !ok {
				t.Fatalf("seed supplier %s has unknown category %s", s.Name, p)
			}
		}
	}

	// mutating a returned copy must not touch the seed data
	suppliers[0].Products[0] = "tampered"
	if catalog.SeedSuppliers()[0].Products[0] == "tampered" {
		t.Fatalf("seed suppliers should be copied")
	}

	if len(catalog.SeedPhotos()) != 2 {
		t.Fatalf("seed photos: %d", len(catalog.SeedPhotos()))
	}
	if catalog.DefaultDetails().Status != domain.StatusInProgress {
		t.Fatalf("default project status: %s", catalog.DefaultDetails().Status)
	}
	if catalog.NewProjectDetails().Status != domain.StatusPlanning {
		t.Fatalf("template project status: %s", catalog.NewProjectDetails().Status)
	}
}
