package advisor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kaziflow/internal/advisor"
	"kaziflow/internal/domain"
)

func fakeModelServer(t *testing.T, reply string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if capture != nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			*capture = req.Contents[0].Parts[0].Text
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": reply}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestAdviceSuccess(t *testing.T) {
	var prompt string
	srv := fakeModelServer(t, "Source Mazeras stone early.", &prompt)
	defer srv.Close()

	c := advisor.New(srv.URL, "key")
	got := c.Advice(context.Background(), "Procurement & Logistics", "where do I buy stone?")
	if got != "Source Mazeras stone early." {
		t.Fatalf("advice: %q", got)
	}
	if !strings.Contains(prompt, `"Procurement & Logistics"`) {
		t.Fatalf("prompt should carry the stage title: %s", prompt)
	}
	if !strings.Contains(prompt, "Kenyan market") {
		t.Fatalf("prompt should carry the market framing: %s", prompt)
	}
}

func TestProposalSuccess(t *testing.T) {
	var prompt string
	srv := fakeModelServer(t, "# Proposal", &prompt)
	defer srv.Close()

	c := advisor.New(srv.URL, "key")
	details := domain.ProjectDetails{Name: "Karen Villa", Client: "The Otienos", Location: "Karen, Nairobi"}
	got := c.Proposal(context.Background(), details)
	if got != "# Proposal" {
		t.Fatalf("proposal: %q", got)
	}
	for _, want := range []string{"Karen Villa", "The Otienos", "Karen, Nairobi", "stakeholders"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q: %s", want, prompt)
		}
	}
}

func TestAdviceFallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := advisor.New(srv.URL, "key")
	if got := c.Advice(context.Background(), "Concept", "q"); got != advisor.AdviceUnavailable {
		t.Fatalf("advice fallback: %q", got)
	}
	if got := c.Proposal(context.Background(), domain.ProjectDetails{Name: "X"}); got != advisor.ProposalUnavailable {
		t.Fatalf("proposal fallback: %q", got)
	}
}

func TestFallbackOnUnreachableEndpoint(t *testing.T) {
	c := advisor.New("http://127.0.0.1:1", "key")
	if got := c.Advice(context.Background(), "Concept", "q"); got != advisor.AdviceUnavailable {
		t.Fatalf("advice fallback: %q", got)
	}
}

func TestFallbackWithoutAPIKey(t *testing.T) {
	c := advisor.New("http://example.invalid", "")
	if got := c.Advice(context.Background(), "Concept", "q"); got != advisor.AdviceUnavailable {
		t.Fatalf("advice without key: %q", got)
	}
}

func TestFallbackOnEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := advisor.New(srv.URL, "key")
	if got := c.Advice(context.Background(), "Concept", "q"); got != advisor.AdviceUnavailable {
		t.Fatalf("empty candidates: %q", got)
	}
}
