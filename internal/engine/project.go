package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"kaziflow/internal/catalog"
	"kaziflow/internal/domain"
	"kaziflow/internal/events"
)

// ToggleStageComplete flips a stage's completion and returns the new state.
// Designer only. Any stage can be toggled regardless of order.
func (e *Engine) ToggleStageComplete(ctx context.Context, actor domain.User, stageID string) (bool, error) {
	if actor.Role != domain.RoleDesigner {
		return false, RoleError{Role: actor.Role, Action: "toggle stage completion"}
	}
	if catalog.Index(stageID) < 0 {
		return false, ErrUnknownStage
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	nowComplete := !contains(e.completed, stageID)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "stage.toggled", "stage", stageID, actor.ID, events.EventPayload{"complete": nowComplete}); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	if nowComplete {
		e.completed = append(e.completed, stageID)
	} else {
		e.completed = remove(e.completed, stageID)
	}
	return nowComplete, nil
}

// SetStageNote saves the designer's note for a stage. Notes persist across
// restarts independently of the live project.
func (e *Engine) SetStageNote(ctx context.Context, actor domain.User, stageID, body string) error {
	if actor.Role != domain.RoleDesigner {
		return RoleError{Role: actor.Role, Action: "save stage notes"}
	}
	if catalog.Index(stageID) < 0 {
		return ErrUnknownStage
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpsertStageNote(ctx, tx, stageID, body, now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "note.saved", "stage", stageID, actor.ID, events.EventPayload{"bytes": len(body)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notes[stageID] = body
	return nil
}

// SaveProjectDetails replaces the live project header.
func (e *Engine) SaveProjectDetails(ctx context.Context, actor domain.User, d domain.ProjectDetails) error {
	if actor.Role != domain.RoleDesigner {
		return RoleError{Role: actor.Role, Action: "edit project details"}
	}
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(d.Client) == "" {
		return ValidationError{Field: "client", Reason: "required"}
	}
	switch d.Status {
	case domain.StatusPlanning, domain.StatusInProgress, domain.StatusOnHold, domain.StatusCompleted:
	default:
		return ValidationError{Field: "status", Reason: "unknown status"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "project.updated", "project", "", actor.ID, events.EventPayload{"name": d.Name, "status": d.Status}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.details = d
	return nil
}

// AddPhoto prepends a photo to the gallery so the newest shows first.
func (e *Engine) AddPhoto(ctx context.Context, actor domain.User, url, description, tag string) (domain.ProjectPhoto, error) {
	if actor.Role != domain.RoleDesigner {
		return domain.ProjectPhoto{}, RoleError{Role: actor.Role, Action: "add photos"}
	}
	if strings.TrimSpace(url) == "" {
		return domain.ProjectPhoto{}, ValidationError{Field: "url", Reason: "required"}
	}
	if strings.TrimSpace(description) == "" {
		return domain.ProjectPhoto{}, ValidationError{Field: "description", Reason: "required"}
	}
	if tag == "" {
		tag = "General"
	}
	if !contains(catalog.PhotoTags(), tag) {
		return domain.ProjectPhoto{}, ValidationError{Field: "tag", Reason: "unknown tag " + tag}
	}
	photo := domain.ProjectPhoto{
		ID:          uuid.New().String(),
		URL:         url,
		Description: description,
		Date:        e.now().UTC().Format("2006-01-02"),
		Tag:         tag,
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProjectPhoto{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "photo.added", "photo", photo.ID, actor.ID, events.EventPayload{"tag": photo.Tag}); err != nil {
		return domain.ProjectPhoto{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ProjectPhoto{}, err
	}
	e.photos = append([]domain.ProjectPhoto{photo}, e.photos...)
	return photo, nil
}

// AddSupplier appends a supplier to the project directory.
func (e *Engine) AddSupplier(ctx context.Context, actor domain.User, s domain.Supplier) (domain.Supplier, error) {
	if actor.Role != domain.RoleDesigner {
		return domain.Supplier{}, RoleError{Role: actor.Role, Action: "add suppliers"}
	}
	if strings.TrimSpace(s.Name) == "" {
		return domain.Supplier{}, ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(s.Contact) == "" {
		return domain.Supplier{}, ValidationError{Field: "contact", Reason: "required"}
	}
	if s.Rating < 1 || s.Rating > 5 {
		return domain.Supplier{}, ValidationError{Field: "rating", Reason: "must be 1-5"}
	}
	for _, p := range s.Products {
		if !contains(catalog.ProductCategories(), p) {
			return domain.Supplier{}, ValidationError{Field: "products", Reason: "unknown category " + p}
		}
	}
	s.ID = uuid.New().String()
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Supplier{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "supplier.added", "supplier", s.ID, actor.ID, events.EventPayload{"name": s.Name}); err != nil {
		return domain.Supplier{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Supplier{}, err
	}
	e.suppliers = append(e.suppliers, s)
	return s, nil
}

// StartNewProject resets the live project to the blank template: completed
// stages and gallery cleared, suppliers reseeded, notes wiped, focus back on
// the first stage. Archives are untouched.
func (e *Engine) StartNewProject(ctx context.Context, actor domain.User) (ProjectState, error) {
	if actor.Role != domain.RoleDesigner {
		return ProjectState{}, RoleError{Role: actor.Role, Action: "start a new project"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ProjectState{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.ClearStageNotes(ctx, tx); err != nil {
		return ProjectState{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.reset", "project", "", actor.ID, nil); err != nil {
		return ProjectState{}, err
	}
	if err := tx.Commit(); err != nil {
		return ProjectState{}, err
	}

	e.details = catalog.NewProjectDetails()
	e.completed = nil
	e.photos = nil
	e.suppliers = catalog.SeedSuppliers()
	e.notes = map[string]string{}
	e.activeStage = catalog.At(0).ID

	return ProjectState{
		Details:     e.details,
		Suppliers:   copySuppliers(e.suppliers),
		ActiveStage: e.activeStage,
	}, nil
}
