package engine

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"time"

	"kaziflow/internal/catalog"
	"kaziflow/internal/config"
	"kaziflow/internal/domain"
	"kaziflow/internal/engine/entitlement"
	"kaziflow/internal/events"
	"kaziflow/internal/repo"
)

// Engine owns the live project state and the durable records behind it.
// The live project (details, completed stages, gallery, suppliers, active
// stage) is workspace-session state guarded by a mutex; archives, stage
// notes and the subscription survive restarts through the repo.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time

	mu           sync.Mutex
	details      domain.ProjectDetails
	completed    []string
	photos       []domain.ProjectPhoto
	suppliers    []domain.Supplier
	notes        map[string]string
	activeStage  string
	subscription domain.CompanySubscription
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	return &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Hydrate seeds the live project and restores durable state. Migrations must
// already have run.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.details = catalog.DefaultDetails()
	e.completed = nil
	e.photos = catalog.SeedPhotos()
	e.suppliers = catalog.SeedSuppliers()
	e.activeStage = catalog.At(1).ID

	notes, err := e.Repo.ListStageNotes(ctx)
	if err != nil {
		return err
	}
	e.notes = notes
	if e.notes == nil {
		e.notes = map[string]string{}
	}

	sub, err := e.Repo.GetSubscription(ctx)
	if err == repo.ErrNotFound {
		sub = domain.CompanySubscription{Tier: domain.TierFree}
	} else if err != nil {
		return err
	}
	e.subscription = sub
	return nil
}

// ProjectState is a point-in-time copy of the live project.
type ProjectState struct {
	Details     domain.ProjectDetails `json:"details"`
	Completed   []string              `json:"completed_stages"`
	Photos      []domain.ProjectPhoto `json:"photos"`
	Suppliers   []domain.Supplier     `json:"suppliers"`
	ActiveStage string                `json:"active_stage"`
	Progress    int                   `json:"progress"`
}

// State returns a copy of the live project.
func (e *Engine) State() ProjectState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ProjectState{
		Details:     e.details,
		Completed:   append([]string(nil), e.completed...),
		Photos:      copyPhotos(e.photos),
		Suppliers:   copySuppliers(e.suppliers),
		ActiveStage: e.activeStage,
		Progress:    progressOf(len(e.completed)),
	}
}

// Progress is the completion percentage against the full stage catalog,
// regardless of viewer role.
func (e *Engine) Progress() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return progressOf(len(e.completed))
}

func progressOf(completed int) int {
	return int(math.Round(float64(completed) / float64(catalog.Len()) * 100))
}

// IsStageComplete reports completion for one stage.
func (e *Engine) IsStageComplete(stageID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return contains(e.completed, stageID)
}

// CompletedCount returns how many stages are marked complete.
func (e *Engine) CompletedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.completed)
}

// ActiveStage returns the stage currently in focus.
func (e *Engine) ActiveStage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeStage
}

// SetActiveStage moves the focus. Clients may only focus stages they can see.
func (e *Engine) SetActiveStage(role domain.UserRole, stageID string) error {
	if catalog.Index(stageID) < 0 {
		return ErrUnknownStage
	}
	if role == domain.RoleClient && !catalog.ClientVisible(stageID) {
		return RoleError{Role: role, Action: "view stage " + stageID}
	}
	e.mu.Lock()
	e.activeStage = stageID
	e.mu.Unlock()
	return nil
}

// StageNumber returns the 1-based position of a stage within the catalog as
// seen by a role, plus the size of that view. Clients see a renumbered subset.
func (e *Engine) StageNumber(role domain.UserRole, stageID string) (int, int) {
	visible := catalog.VisibleStages(role)
	for i, s := range visible {
		if s.ID == stageID {
			return i + 1, len(visible)
		}
	}
	return 0, len(visible)
}

// Notes returns a copy of all stage notes.
func (e *Engine) Notes() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.notes))
	for k, v := range e.notes {
		out[k] = v
	}
	return out
}

// Note returns the saved note for a stage, if any.
func (e *Engine) Note(stageID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.notes[stageID]
	return n, ok
}

// Subscription returns the current company subscription.
func (e *Engine) Subscription() domain.CompanySubscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subscription
}

// Gate returns the entitlement view of the current subscription.
func (e *Engine) Gate() entitlement.Gate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gateLocked()
}

func (e *Engine) gateLocked() entitlement.Gate {
	return entitlement.Gate{Tier: e.subscription.Tier}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func copyPhotos(in []domain.ProjectPhoto) []domain.ProjectPhoto {
	out := make([]domain.ProjectPhoto, len(in))
	copy(out, in)
	return out
}

func copySuppliers(in []domain.Supplier) []domain.Supplier {
	out := make([]domain.Supplier, len(in))
	for i, s := range in {
		out[i] = s
		out[i].Products = append([]string(nil), s.Products...)
	}
	return out
}
