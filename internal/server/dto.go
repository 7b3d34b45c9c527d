package server

import (
	"kaziflow/internal/config"
	"kaziflow/internal/domain"
)

// Request payloads

type LoginRequest struct {
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  domain.UserRole `json:"role" enum:"CLIENT,DESIGNER"`
}

type SaveNoteRequest struct {
	Body string `json:"body"`
}

type SaveDetailsRequest struct {
	Name     string               `json:"name"`
	Client   string               `json:"client"`
	Location string               `json:"location"`
	Status   domain.ProjectStatus `json:"status" enum:"Planning,In Progress,On Hold,Completed"`
}

type AddPhotoRequest struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	Tag         string `json:"tag,omitempty"`
}

type AddSupplierRequest struct {
	Name     string   `json:"name"`
	Contact  string   `json:"contact"`
	Products []string `json:"products,omitempty"`
	Rating   int      `json:"rating" minimum:"1" maximum:"5"`
	Location string   `json:"location,omitempty"`
}

type UpgradeRequest struct {
	Tier   domain.SubscriptionTier `json:"tier" enum:"PRO,STUDIO"`
	Method string                  `json:"method" enum:"mpesa,card"`
	Phone  string                  `json:"phone,omitempty"`
}

type SetActiveStageRequest struct {
	StageID string `json:"stage_id"`
}

type AdviceRequest struct {
	StageID  string `json:"stage_id"`
	Question string `json:"question"`
}

// Response payloads

type LoginResponse struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	ExpiresAt string      `json:"expires_at" format:"date-time"`
}

// StageSummary is one row of the workflow tracker.
type StageSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Icon     string `json:"icon"`
	Complete bool   `json:"complete"`
	Active   bool   `json:"active"`
}

// StageDetail is the full stage view: catalog content plus live state.
type StageDetail struct {
	domain.WorkflowStage
	Complete bool `json:"complete"`
	Number   int  `json:"number"`
	Total    int  `json:"total"`
	HasNote  bool `json:"has_note"`
}

// SupplierDirectory carries the directory plus the location and category
// suggestions the supplier form offers.
type SupplierDirectory struct {
	Items             []domain.Supplier `json:"items"`
	Locations         []string          `json:"locations"`
	ProductCategories []string          `json:"product_categories"`
}

type NoteResponse struct {
	StageID string `json:"stage_id"`
	Body    string `json:"body"`
}

type PlanResponse struct {
	Tier        string   `json:"tier"`
	Name        string   `json:"name"`
	PriceKES    string   `json:"price_kes"`
	Features    []string `json:"features"`
	Recommended bool     `json:"recommended"`
}

type AdviceResponse struct {
	Text string `json:"text"`
}

func planResponse(p config.Plan) PlanResponse {
	return PlanResponse{
		Tier:        p.Tier,
		Name:        p.Name,
		PriceKES:    p.PriceKES,
		Features:    append([]string(nil), p.Features...),
		Recommended: p.Recommended,
	}
}
