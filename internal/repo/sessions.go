package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"kaziflow/internal/domain"
)

// InsertSession stores a login session keyed by its token id.
func (r Repo) InsertSession(ctx context.Context, tx *sql.Tx, s domain.Session) error {
	if s.TokenID == "" {
		return errors.New("token_id required")
	}
	if s.User.ID == "" {
		return errors.New("user required")
	}
	payload, err := json.Marshal(s.User)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO sessions(token_id,user_json,created_at,expires_at) VALUES (?,?,?,?)`,
		s.TokenID, string(payload), s.CreatedAt, s.ExpiresAt)
	return err
}

// GetSession returns a session by token id. Logged-out tokens are absent.
func (r Repo) GetSession(ctx context.Context, tokenID string) (domain.Session, error) {
	var s domain.Session
	var userJSON string
	err := r.DB.QueryRowContext(ctx, `SELECT token_id,user_json,created_at,expires_at FROM sessions WHERE token_id=? LIMIT 1`, tokenID).
		Scan(&s.TokenID, &userJSON, &s.CreatedAt, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return domain.Session{}, ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	if err := json.Unmarshal([]byte(userJSON), &s.User); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// DeleteSession revokes a session by token id.
func (r Repo) DeleteSession(ctx context.Context, tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return errors.New("token_id required")
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token_id=?`, tokenID)
	return err
}

// PurgeExpiredSessions removes sessions whose expiry is at or before now.
func (r Repo) PurgeExpiredSessions(ctx context.Context, now string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at<=?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
