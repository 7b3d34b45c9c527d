package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"kaziflow/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// InsertArchive stores an immutable project snapshot.
func (r Repo) InsertArchive(ctx context.Context, tx *sql.Tx, a domain.ProjectArchive) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return err
	}
	completed, err := json.Marshal(a.CompletedStages)
	if err != nil {
		return err
	}
	photos, err := json.Marshal(a.Photos)
	if err != nil {
		return err
	}
	suppliers, err := json.Marshal(a.Suppliers)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO archives(id,details_json,completed_json,photos_json,suppliers_json,archived_date) VALUES (?,?,?,?,?,?)`,
		a.ID, string(details), string(completed), string(photos), string(suppliers), a.ArchivedDate)
	return err
}

func scanArchive(id, detailsJSON, completedJSON, photosJSON, suppliersJSON, archivedDate string) (domain.ProjectArchive, error) {
	a := domain.ProjectArchive{ID: id, ArchivedDate: archivedDate}
	if err := json.Unmarshal([]byte(detailsJSON), &a.Details); err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(completedJSON), &a.CompletedStages); err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(photosJSON), &a.Photos); err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(suppliersJSON), &a.Suppliers); err != nil {
		return a, err
	}
	return a, nil
}

// ListArchives returns all snapshots, newest first. Ordering follows the
// insert sequence, not the second-granularity archived_date. Rows whose
// payload no longer parses are skipped with a warning rather than failing
// the listing.
func (r Repo) ListArchives(ctx context.Context) ([]domain.ProjectArchive, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,details_json,completed_json,photos_json,suppliers_json,archived_date FROM archives ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProjectArchive
	for rows.Next() {
		var id, details, completed, photos, suppliers, date string
		if err := rows.Scan(&id, &details, &completed, &photos, &suppliers, &date); err != nil {
			return nil, err
		}
		a, err := scanArchive(id, details, completed, photos, suppliers, date)
		if err != nil {
			log.Warn().Str("archive_id", id).Err(err).Msg("skipping corrupt archive row")
			continue
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) GetArchive(ctx context.Context, id string) (domain.ProjectArchive, error) {
	var details, completed, photos, suppliers, date string
	err := r.DB.QueryRowContext(ctx, `SELECT details_json,completed_json,photos_json,suppliers_json,archived_date FROM archives WHERE id=?`, id).
		Scan(&details, &completed, &photos, &suppliers, &date)
	if err == sql.ErrNoRows {
		return domain.ProjectArchive{}, ErrNotFound
	}
	if err != nil {
		return domain.ProjectArchive{}, err
	}
	return scanArchive(id, details, completed, photos, suppliers, date)
}

func (r Repo) DeleteArchive(ctx context.Context, tx *sql.Tx, id string) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	res, err := exec(ctx, `DELETE FROM archives WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountArchives(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM archives`).Scan(&n)
	return n, err
}

// UpsertStageNote writes the note body for a stage, replacing any previous one.
func (r Repo) UpsertStageNote(ctx context.Context, tx *sql.Tx, stageID, body, updatedAt string) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO stage_notes(stage_id,body_html,updated_at) VALUES (?,?,?)
ON CONFLICT(stage_id) DO UPDATE SET body_html=excluded.body_html, updated_at=excluded.updated_at`, stageID, body, updatedAt)
	return err
}

func (r Repo) GetStageNote(ctx context.Context, stageID string) (string, error) {
	var body string
	err := r.DB.QueryRowContext(ctx, `SELECT body_html FROM stage_notes WHERE stage_id=?`, stageID).Scan(&body)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return body, err
}

// ListStageNotes returns all stored notes keyed by stage id.
func (r Repo) ListStageNotes(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT stage_id, body_html FROM stage_notes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]string{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		res[id] = body
	}
	return res, rows.Err()
}

// ClearStageNotes removes every stored note.
func (r Repo) ClearStageNotes(ctx context.Context, tx *sql.Tx) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `DELETE FROM stage_notes`)
	return err
}

// GetSubscription reads the single subscription row. A missing or corrupt row
// reports ErrNotFound so callers fall back to defaults.
func (r Repo) GetSubscription(ctx context.Context) (domain.CompanySubscription, error) {
	var sub domain.CompanySubscription
	var autoRenew int
	err := r.DB.QueryRowContext(ctx, `SELECT tier,expires_at,is_auto_renew FROM subscription WHERE id=1`).
		Scan(&sub.Tier, &sub.ExpiresAt, &autoRenew)
	if err == sql.ErrNoRows {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, err
	}
	switch sub.Tier {
	case domain.TierFree, domain.TierPro, domain.TierStudio:
	default:
		log.Warn().Str("tier", string(sub.Tier)).Msg("unrecognized subscription tier; using defaults")
		return domain.CompanySubscription{}, ErrNotFound
	}
	sub.IsAutoRenew = autoRenew != 0
	return sub, nil
}

func (r Repo) UpsertSubscription(ctx context.Context, tx *sql.Tx, sub domain.CompanySubscription) error {
	autoRenew := 0
	if sub.IsAutoRenew {
		autoRenew = 1
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO subscription(id,tier,expires_at,is_auto_renew) VALUES (1,?,?,?)
ON CONFLICT(id) DO UPDATE SET tier=excluded.tier, expires_at=excluded.expires_at, is_auto_renew=excluded.is_auto_renew`,
		sub.Tier, sub.ExpiresAt, autoRenew)
	return err
}

// LatestEvents returns the newest audit entries, optionally filtered.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,COALESCE(payload_json,'') FROM events`
	var clauses []string
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,COALESCE(payload_json,'') FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
