package session_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"kaziflow/internal/config"
	"kaziflow/internal/db"
	"kaziflow/internal/domain"
	"kaziflow/internal/migrate"
	"kaziflow/internal/session"
)

func newTestGate(t *testing.T) (session.Gate, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	g := session.New(conn, config.Default(), "test-secret")
	return g, conn
}

func TestLoginDesignerDomainPolicy(t *testing.T) {
	g, _ := newTestGate(t)
	ctx := context.Background()

	if _, _, err := g.Login(ctx, "amina@kazidesign.com", "Amina", domain.RoleDesigner); err != nil {
		t.Fatalf("company email designer: %v", err)
	}
	var ce session.InvalidCredentialsError
	if _, _, err := g.Login(ctx, "amina@gmail.com", "Amina", domain.RoleDesigner); !errors.As(err, &ce) {
		t.Fatalf("non-company designer email should be rejected, got %v", err)
	}
	// clients can use any address
	if _, _, err := g.Login(ctx, "wanjiku@gmail.com", "Wanjiku", domain.RoleClient); err != nil {
		t.Fatalf("client login: %v", err)
	}
}

func TestLoginValidation(t *testing.T) {
	g, _ := newTestGate(t)
	ctx := context.Background()

	if _, _, err := g.Login(ctx, "", "Amina", domain.RoleDesigner); !errors.Is(err, session.ErrMissingFields) {
		t.Fatalf("missing email: %v", err)
	}
	if _, _, err := g.Login(ctx, "amina@kazidesign.com", "  ", domain.RoleDesigner); !errors.Is(err, session.ErrMissingFields) {
		t.Fatalf("blank name: %v", err)
	}
	var ce session.InvalidCredentialsError
	if _, _, err := g.Login(ctx, "no-at-sign", "Amina", domain.RoleClient); !errors.As(err, &ce) {
		t.Fatalf("malformed email: %v", err)
	}
	if _, _, err := g.Login(ctx, "amina@kazidesign.com", "Amina", domain.UserRole("ADMIN")); !errors.As(err, &ce) {
		t.Fatalf("unknown role: %v", err)
	}
}

func TestUserIDDeterministic(t *testing.T) {
	g, _ := newTestGate(t)
	ctx := context.Background()

	s1, _, err := g.Login(ctx, "Amina@KaziDesign.com", "Amina", domain.RoleDesigner)
	if err != nil {
		t.Fatal(err)
	}
	s2, _, err := g.Login(ctx, "amina@kazidesign.com", "Amina K", domain.RoleDesigner)
	if err != nil {
		t.Fatal(err)
	}
	if s1.User.ID != s2.User.ID {
		t.Fatalf("same email should map to the same user id: %s vs %s", s1.User.ID, s2.User.ID)
	}
	if s1.TokenID == s2.TokenID {
		t.Fatalf("each login should mint its own session")
	}
}

func TestVerifyAndLogout(t *testing.T) {
	g, _ := newTestGate(t)
	ctx := context.Background()

	s, token, err := g.Login(ctx, "amina@kazidesign.com", "Amina", domain.RoleDesigner)
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.User.Email != "amina@kazidesign.com" || got.User.Role != domain.RoleDesigner {
		t.Fatalf("verified user: %+v", got.User)
	}

	if err := g.Logout(ctx, s.TokenID, s.User.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := g.Verify(ctx, token); !errors.Is(err, session.ErrRevoked) {
		t.Fatalf("verify after logout: %v", err)
	}
	// revoking an unknown id is a no-op
	if err := g.Logout(ctx, "missing", s.User.ID); err != nil {
		t.Fatalf("logout unknown: %v", err)
	}
}

func TestVerifyRejectsForgedToken(t *testing.T) {
	g, conn := newTestGate(t)
	ctx := context.Background()

	_, token, err := g.Login(ctx, "amina@kazidesign.com", "Amina", domain.RoleDesigner)
	if err != nil {
		t.Fatal(err)
	}
	other := session.New(conn, config.Default(), "different-secret")
	if _, err := other.Verify(ctx, token); err == nil {
		t.Fatalf("token signed with another secret should fail")
	}
	if _, err := g.Verify(ctx, "not.a.jwt"); err == nil {
		t.Fatalf("garbage token should fail")
	}
}

func TestSessionExpiry(t *testing.T) {
	g, _ := newTestGate(t)
	// sessions issued by this gate are already past their TTL
	g.Config = config.Default()
	g.Config.Auth.SessionTTL = -time.Hour
	ctx := context.Background()

	_, token, err := g.Login(ctx, "amina@kazidesign.com", "Amina", domain.RoleDesigner)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Verify(ctx, token); err == nil {
		t.Fatalf("expired session should fail verification")
	}

	n, err := g.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged sessions: got %d, want 1", n)
	}
}
