package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kaziflow/internal/billing"
	"kaziflow/internal/config"
	"kaziflow/internal/db"
	"kaziflow/internal/domain"
	"kaziflow/internal/engine"
	"kaziflow/internal/migrate"
	"kaziflow/internal/session"
)

type stubAdvisor struct{}

func (stubAdvisor) Advice(ctx context.Context, stageTitle, question string) string {
	return "advice about " + stageTitle
}

func (stubAdvisor) Proposal(ctx context.Context, details domain.ProjectDetails) string {
	return "proposal for " + details.Name
}

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Billing.ProcessingDelay = time.Millisecond
	e := engine.New(conn, cfg)
	if err := e.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		Sessions: session.New(conn, cfg, "test-secret"),
		Billing:  billing.NewSimulated(cfg.Billing.ProcessingDelay, zerolog.Nop()),
		Advisor:  stubAdvisor{},
		BasePath: "/v0",
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func login(t *testing.T, srv *testServer, email, name, role string) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{
		"email": email,
		"name":  name,
		"role":  role,
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, res.StatusCode, string(data))
	}
	var out LoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if out.Token == "" {
		t.Fatalf("expected a bearer token")
	}
	return out.Token
}

func errCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return envelope.Error.Code
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	if errCode(t, data) != "unauthorized" {
		t.Fatalf("code: %s", string(data))
	}

	// health stays open
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", res.StatusCode)
	}
}

func TestLoginPolicy(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{
		"email": "amina@gmail.com",
		"name":  "Amina",
		"role":  "DESIGNER",
	}, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("non-company designer: %d %s", res.StatusCode, string(data))
	}
	if errCode(t, data) != "invalid_credentials" {
		t.Fatalf("code: %s", string(data))
	}

	login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")
	login(t, srv, "wanjiku@gmail.com", "Wanjiku", "CLIENT")
}

func TestStageListingPerRole(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")
	client := login(t, srv, "wanjiku@gmail.com", "Wanjiku", "CLIENT")

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("designer stages: %d %s", res.StatusCode, string(data))
	}
	var stages []StageSummary
	if err := json.Unmarshal(data, &stages); err != nil {
		t.Fatalf("unmarshal stages: %v", err)
	}
	if len(stages) != 9 {
		t.Fatalf("designer sees %d stages, want 9", len(stages))
	}

	_, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, client)
	if err := json.Unmarshal(data, &stages); err != nil {
		t.Fatal(err)
	}
	if len(stages) != 7 {
		t.Fatalf("client sees %d stages, want 7", len(stages))
	}
	for _, s := range stages {
		if s.ID == "onboarding" || s.ID == "procurement" {
			t.Fatalf("client should not see %s", s.ID)
		}
	}

	// hidden stage detail is forbidden for clients
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages/procurement", nil, client)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("client stage detail: %d %s", res.StatusCode, string(data))
	}
}

func TestToggleStage(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")
	client := login(t, srv, "wanjiku@gmail.com", "Wanjiku", "CLIENT")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/stages/concept/complete", nil, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle: %d %s", res.StatusCode, string(data))
	}
	var out struct {
		Complete bool `json:"complete"`
		Progress int  `json:"progress"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Complete || out.Progress != 11 {
		t.Fatalf("toggle result: %+v", out)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/stages/concept/complete", nil, client)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("client toggle: %d %s", res.StatusCode, string(data))
	}
	if errCode(t, data) != "forbidden" {
		t.Fatalf("code: %s", string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/stages/nope/complete", nil, designer)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown stage: %d", res.StatusCode)
	}
}

func TestNotesGatedByTier(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")

	res, data := doJSON(t, srv.Client(), http.MethodPut, srv.URL+"/v0/stages/concept/note", map[string]any{
		"body": "<p>draft</p>",
	}, designer)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("note on FREE: %d %s", res.StatusCode, string(data))
	}
	if errCode(t, data) != "upgrade_required" {
		t.Fatalf("code: %s", string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/subscription/upgrade", map[string]any{
		"tier":   "PRO",
		"method": "card",
	}, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upgrade: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPut, srv.URL+"/v0/stages/concept/note", map[string]any{
		"body": "<p>draft</p>",
	}, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("note on PRO: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages/concept/note", nil, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("read note: %d %s", res.StatusCode, string(data))
	}
	var note NoteResponse
	if err := json.Unmarshal(data, &note); err != nil {
		t.Fatal(err)
	}
	if note.Body != "<p>draft</p>" {
		t.Fatalf("note body: %q", note.Body)
	}
}

func TestUpgradeValidation(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/subscription/upgrade", map[string]any{
		"tier":   "PRO",
		"method": "mpesa",
	}, designer)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("mpesa without phone: %d %s", res.StatusCode, string(data))
	}
	if errCode(t, data) != "invalid_payment" {
		t.Fatalf("code: %s", string(data))
	}
}

func TestProposalGate(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")

	for _, id := range []string{"onboarding", "concept", "development", "compliance", "costing", "procurement"} {
		res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+fmt.Sprintf("/v0/stages/%s/complete", id), nil, designer)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("toggle %s: %d %s", id, res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/proposal", nil, designer)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("proposal with 6 stages on FREE: %d %s", res.StatusCode, string(data))
	}
	if errCode(t, data) != "upgrade_required" {
		t.Fatalf("code: %s", string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/subscription/upgrade", map[string]any{
		"tier":   "STUDIO",
		"method": "card",
	}, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upgrade: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/proposal", nil, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("proposal on STUDIO: %d %s", res.StatusCode, string(data))
	}
	var out AdviceResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Text == "" {
		t.Fatalf("expected proposal text")
	}
}

func TestAdviceEndpoint(t *testing.T) {
	srv := newTestServer(t)
	client := login(t, srv, "wanjiku@gmail.com", "Wanjiku", "CLIENT")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/advice", map[string]any{
		"stage_id": "concept",
		"question": "which palette suits coastal light?",
	}, client)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advice: %d %s", res.StatusCode, string(data))
	}
	var out AdviceResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Text == "" {
		t.Fatalf("expected advice text")
	}
}

func TestSupplierDirectory(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/suppliers", nil, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("suppliers: %d %s", res.StatusCode, string(data))
	}
	var dir SupplierDirectory
	if err := json.Unmarshal(data, &dir); err != nil {
		t.Fatal(err)
	}
	if len(dir.Items) != 4 {
		t.Fatalf("seed suppliers: %d", len(dir.Items))
	}
	if len(dir.Locations) == 0 || len(dir.ProductCategories) == 0 {
		t.Fatalf("directory should suggest locations and categories: %+v", dir)
	}
}

func TestPortfolioFlow(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/portfolio", nil, designer)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("archive: %d %s", res.StatusCode, string(data))
	}
	var archived struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatal(err)
	}

	// FREE allows exactly one archive
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/portfolio", nil, designer)
	if res.StatusCode != http.StatusForbidden || errCode(t, data) != "upgrade_required" {
		t.Fatalf("second archive: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/portfolio/"+archived.ID+"/load", nil, designer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("load: %d %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v0/portfolio/"+archived.ID, nil, designer)
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/portfolio/"+archived.ID, nil, designer)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted archive should 404, got %d", res.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t)
	designer := login(t, srv, "amina@kazidesign.com", "Amina", "DESIGNER")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/logout", nil, designer)
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: %d %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, designer)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token should 401, got %d", res.StatusCode)
	}
}
