package catalog

import "kaziflow/internal/domain"

// Seed records for a fresh workspace. Returned as copies so callers can
// mutate their slices freely.

var seedSuppliers = []domain.Supplier{
	{ID: "1", Name: "Tile & Carpet Centre", Contact: "0722 000 000", Products: []string{"Tiles & Ceramics", "Sanitaryware"}, Rating: 5, Location: "Nairobi - Westlands"},
	{ID: "2", Name: "Crown Paints Depot", Contact: "0733 111 222", Products: []string{"Paints & Finishes"}, Rating: 4, Location: "Nairobi - Industrial Area"},
	{ID: "3", Name: "Antarc Furniture", Contact: "antarc-ke.com", Products: []string{"Furniture & Decor"}, Rating: 5, Location: "Nairobi - Mombasa Road"},
	{ID: "4", Name: "Gikomba Timber Yard", Contact: "Manual Pick-up", Products: []string{"Timber & Wood"}, Rating: 3, Location: "Nairobi - Gikomba"},
}

var seedPhotos = []domain.ProjectPhoto{
	{ID: "p1", URL: "https://images.unsplash.com/photo-1503387762-592dee58c160?auto=format&fit=crop&q=80&w=800", Description: "Structural shell complete. Ready for plastering and plumbing rough-ins.", Date: "2023-11-15", Tag: "General"},
	{ID: "p2", URL: "https://images.unsplash.com/photo-1556912177-f277a0279647?auto=format&fit=crop&q=80&w=800", Description: "Cabinet frames for the kitchen islands being assembled by the joinery team.", Date: "2023-12-02", Tag: "Joinery"},
}

// SeedSuppliers is the built-in supplier list a fresh or reset project starts with.
func SeedSuppliers() []domain.Supplier {
	out := make([]domain.Supplier, len(seedSuppliers))
	for i, s := range seedSuppliers {
		out[i] = s
		out[i].Products = append([]string(nil), s.Products...)
	}
	return out
}

// SeedPhotos is the gallery a fresh workspace starts with.
func SeedPhotos() []domain.ProjectPhoto {
	out := make([]domain.ProjectPhoto, len(seedPhotos))
	copy(out, seedPhotos)
	return out
}

// DefaultDetails is the project loaded on first start of a workspace.
func DefaultDetails() domain.ProjectDetails {
	return domain.ProjectDetails{
		Name:     "Mansionette Renovation",
		Client:   "The Wanjiku Family",
		Location: "Karen, Nairobi",
		Status:   domain.StatusInProgress,
	}
}

// NewProjectDetails is the blank template applied by "start new project".
func NewProjectDetails() domain.ProjectDetails {
	return domain.ProjectDetails{
		Name:     "New Interior Project",
		Client:   "Prospective Client",
		Location: "Nairobi",
		Status:   domain.StatusPlanning,
	}
}
