package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kaziflow/internal/catalog"
	"kaziflow/internal/domain"
	"kaziflow/internal/events"
)

// ArchiveProject snapshots the live project into the portfolio. The snapshot
// is an independent copy with status forced to Completed; the live project is
// left exactly as it was. Free tier is limited to one archive.
func (e *Engine) ArchiveProject(ctx context.Context, actor domain.User) (domain.ProjectArchive, error) {
	if actor.Role != domain.RoleDesigner {
		return domain.ProjectArchive{}, RoleError{Role: actor.Role, Action: "archive the project"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	count, err := e.Repo.CountArchives(ctx)
	if err != nil {
		return domain.ProjectArchive{}, err
	}
	gate := e.gateLocked()
	if err := gate.CheckArchive(count); err != nil {
		return domain.ProjectArchive{}, err
	}

	snapshot := domain.ProjectArchive{
		ID:              uuid.New().String(),
		Details:         e.details,
		CompletedStages: append([]string(nil), e.completed...),
		Photos:          copyPhotos(e.photos),
		Suppliers:       copySuppliers(e.suppliers),
		ArchivedDate:    e.now().UTC().Format(time.RFC3339),
	}
	snapshot.Details.Status = domain.StatusCompleted

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProjectArchive{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertArchive(ctx, tx, snapshot); err != nil {
		return domain.ProjectArchive{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.archived", "archive", snapshot.ID, actor.ID, events.EventPayload{"name": snapshot.Details.Name}); err != nil {
		return domain.ProjectArchive{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ProjectArchive{}, err
	}
	return snapshot, nil
}

// Archives lists portfolio snapshots, newest first.
func (e *Engine) Archives(ctx context.Context) ([]domain.ProjectArchive, error) {
	return e.Repo.ListArchives(ctx)
}

// LoadProject replaces the live project with an archived snapshot. Stage
// notes are not part of snapshots and stay as they are. Focus moves to the
// second catalog stage, the first one with client-facing content.
func (e *Engine) LoadProject(ctx context.Context, actor domain.User, archiveID string) (ProjectState, error) {
	if actor.Role != domain.RoleDesigner {
		return ProjectState{}, RoleError{Role: actor.Role, Action: "load an archived project"}
	}
	a, err := e.Repo.GetArchive(ctx, archiveID)
	if err != nil {
		return ProjectState{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ProjectState{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "project.loaded", "archive", a.ID, actor.ID, events.EventPayload{"name": a.Details.Name}); err != nil {
		return ProjectState{}, err
	}
	if err := tx.Commit(); err != nil {
		return ProjectState{}, err
	}

	e.details = a.Details
	e.completed = append([]string(nil), a.CompletedStages...)
	e.photos = copyPhotos(a.Photos)
	e.suppliers = copySuppliers(a.Suppliers)
	e.activeStage = catalog.At(1).ID

	return ProjectState{
		Details:     e.details,
		Completed:   append([]string(nil), e.completed...),
		Photos:      copyPhotos(e.photos),
		Suppliers:   copySuppliers(e.suppliers),
		ActiveStage: e.activeStage,
		Progress:    progressOf(len(e.completed)),
	}, nil
}

// DeleteArchive removes a snapshot from the portfolio.
func (e *Engine) DeleteArchive(ctx context.Context, actor domain.User, archiveID string) error {
	if actor.Role != domain.RoleDesigner {
		return RoleError{Role: actor.Role, Action: "delete an archive"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteArchive(ctx, tx, archiveID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "archive.deleted", "archive", archiveID, actor.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}
