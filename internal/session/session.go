// Package session issues and verifies login sessions. Tokens are HS256 JWTs
// whose jti is also stored server-side, so logout revokes a token before its
// expiry.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kaziflow/internal/config"
	"kaziflow/internal/domain"
	"kaziflow/internal/events"
	"kaziflow/internal/repo"
)

var (
	ErrMissingFields = errors.New("email, name and role are required")
	ErrRevoked       = errors.New("session revoked or expired")
)

// InvalidCredentialsError indicates a login rejected by policy.
type InvalidCredentialsError struct {
	Reason string
}

func (e InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials: %s", e.Reason)
}

// Authenticator is the identity gate seen by the API surface. Gate is the
// local implementation; a real identity provider can be substituted without
// reshaping the rest of the state model.
type Authenticator interface {
	Login(ctx context.Context, email, name string, role domain.UserRole) (domain.Session, string, error)
	Verify(ctx context.Context, token string) (domain.Session, error)
	Logout(ctx context.Context, tokenID, actorID string) error
}

// Gate authenticates users and manages their sessions.
type Gate struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Secret string
	Now    func() time.Time
}

var _ Authenticator = Gate{}

func New(db *sql.DB, cfg *config.Config, secret string) Gate {
	return Gate{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Secret: secret,
		Now:    time.Now,
	}
}

func (g Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

type claims struct {
	jwt.RegisteredClaims
	Role  domain.UserRole `json:"role"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
}

// Login validates credentials and issues a signed token. Designers must use
// a company email domain; clients may use any email.
func (g Gate) Login(ctx context.Context, email, name string, role domain.UserRole) (domain.Session, string, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" || role == "" {
		return domain.Session{}, "", ErrMissingFields
	}
	switch role {
	case domain.RoleDesigner, domain.RoleClient:
	default:
		return domain.Session{}, "", InvalidCredentialsError{Reason: "unknown role"}
	}
	if !strings.Contains(email, "@") {
		return domain.Session{}, "", InvalidCredentialsError{Reason: "malformed email"}
	}
	if role == domain.RoleDesigner && !g.Config.DesignerEmailAllowed(email) {
		return domain.Session{}, "", InvalidCredentialsError{Reason: "designer accounts require a company email"}
	}

	now := g.now().UTC()
	expires := now.Add(g.Config.Auth.SessionTTL)
	user := domain.User{
		ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(email))).String(),
		Email: email,
		Name:  name,
		Role:  role,
	}
	jti := uuid.New().String()
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role:  role,
		Name:  name,
		Email: email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(g.Secret))
	if err != nil {
		return domain.Session{}, "", err
	}

	s := domain.Session{
		TokenID:   jti,
		User:      user,
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: expires.Format(time.RFC3339),
	}
	tx, err := g.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, "", err
	}
	defer tx.Rollback()
	if err := g.Repo.InsertSession(ctx, tx, s); err != nil {
		return domain.Session{}, "", err
	}
	if err := g.Events.Append(ctx, tx, "session.login", "session", jti, user.ID, events.EventPayload{"role": role}); err != nil {
		return domain.Session{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, "", err
	}
	return s, token, nil
}

// Verify parses a token, checks its signature and confirms the session has
// not been revoked.
func (g Gate) Verify(ctx context.Context, token string) (domain.Session, error) {
	if strings.TrimSpace(g.Secret) == "" {
		return domain.Session{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	cl := &claims{}
	parsed, err := parser.ParseWithClaims(token, cl, func(t *jwt.Token) (any, error) {
		return []byte(g.Secret), nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	if !parsed.Valid || cl.Subject == "" || cl.ID == "" {
		return domain.Session{}, errors.New("invalid token")
	}
	s, err := g.Repo.GetSession(ctx, cl.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Session{}, ErrRevoked
		}
		return domain.Session{}, err
	}
	exp, err := time.Parse(time.RFC3339, s.ExpiresAt)
	if err == nil && g.now().UTC().After(exp) {
		return domain.Session{}, ErrRevoked
	}
	return s, nil
}

// Logout revokes a session by token id. Revoking an unknown id is a no-op.
func (g Gate) Logout(ctx context.Context, tokenID, actorID string) error {
	if err := g.Repo.DeleteSession(ctx, tokenID); err != nil {
		return err
	}
	tx, err := g.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := g.Events.Append(ctx, tx, "session.logout", "session", tokenID, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// PurgeExpired removes sessions past their expiry.
func (g Gate) PurgeExpired(ctx context.Context) (int64, error) {
	return g.Repo.PurgeExpiredSessions(ctx, g.now().UTC().Format(time.RFC3339))
}
