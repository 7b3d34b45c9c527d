package kazisdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal KaziFlow HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User is the acting account attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// LoginResult carries the bearer token issued at login.
type LoginResult struct {
	Token     string `json:"token"`
	User      User   `json:"user"`
	ExpiresAt string `json:"expires_at"`
}

// Stage is one row of the workflow tracker.
type Stage struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Icon     string `json:"icon"`
	Complete bool   `json:"complete"`
	Active   bool   `json:"active"`
}

// ProjectDetails is the live project header.
type ProjectDetails struct {
	Name     string `json:"name"`
	Client   string `json:"client"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// Photo is a gallery entry.
type Photo struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Tag         string `json:"tag"`
}

// Supplier is a directory entry.
type Supplier struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Contact  string   `json:"contact"`
	Products []string `json:"products"`
	Rating   int      `json:"rating"`
	Location string   `json:"location"`
}

// ProjectState is the full live project snapshot.
type ProjectState struct {
	Details     ProjectDetails `json:"details"`
	Completed   []string       `json:"completed_stages"`
	Photos      []Photo        `json:"photos"`
	Suppliers   []Supplier     `json:"suppliers"`
	ActiveStage string         `json:"active_stage"`
	Progress    int            `json:"progress"`
}

// Archive is one portfolio snapshot.
type Archive struct {
	ID              string         `json:"id"`
	Details         ProjectDetails `json:"details"`
	CompletedStages []string       `json:"completed_stages"`
	Photos          []Photo        `json:"photos"`
	Suppliers       []Supplier     `json:"suppliers"`
	ArchivedDate    string         `json:"archived_date"`
}

// Subscription is the company plan state.
type Subscription struct {
	Tier        string `json:"tier"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	IsAutoRenew bool   `json:"is_auto_renew"`
}

// Event is one audit log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, email, name, role string) (LoginResult, error) {
	body := map[string]any{
		"email": email,
		"name":  name,
		"role":  role,
	}
	var resp LoginResult
	if err := c.do(ctx, http.MethodPost, "v0/auth/login", body, &resp); err != nil {
		return LoginResult{}, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

// Logout revokes the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "v0/auth/logout", nil, nil)
}

// Stages lists the workflow tracker for the logged-in role.
func (c *Client) Stages(ctx context.Context) ([]Stage, error) {
	var resp []Stage
	err := c.do(ctx, http.MethodGet, "v0/stages", nil, &resp)
	return resp, err
}

// ToggleStage flips a stage's completion and returns the new state.
func (c *Client) ToggleStage(ctx context.Context, stageID string) (bool, int, error) {
	var resp struct {
		Complete bool `json:"complete"`
		Progress int  `json:"progress"`
	}
	endpoint := fmt.Sprintf("v0/stages/%s/complete", url.PathEscape(stageID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp.Complete, resp.Progress, err
}

// SaveNote saves the private designer note for a stage.
func (c *Client) SaveNote(ctx context.Context, stageID, body string) error {
	endpoint := fmt.Sprintf("v0/stages/%s/note", url.PathEscape(stageID))
	return c.do(ctx, http.MethodPut, endpoint, map[string]any{"body": body}, nil)
}

// Note reads the private designer note for a stage.
func (c *Client) Note(ctx context.Context, stageID string) (string, error) {
	var resp struct {
		Body string `json:"body"`
	}
	endpoint := fmt.Sprintf("v0/stages/%s/note", url.PathEscape(stageID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Body, err
}

// Project returns the live project state.
func (c *Client) Project(ctx context.Context) (ProjectState, error) {
	var resp ProjectState
	err := c.do(ctx, http.MethodGet, "v0/project", nil, &resp)
	return resp, err
}

// UpdateProject replaces the project header.
func (c *Client) UpdateProject(ctx context.Context, d ProjectDetails) (ProjectDetails, error) {
	var resp ProjectDetails
	err := c.do(ctx, http.MethodPut, "v0/project", d, &resp)
	return resp, err
}

// NewProject resets the live project to the blank template.
func (c *Client) NewProject(ctx context.Context) (ProjectState, error) {
	var resp ProjectState
	err := c.do(ctx, http.MethodPost, "v0/project/new", nil, &resp)
	return resp, err
}

// AddPhoto adds a gallery photo.
func (c *Client) AddPhoto(ctx context.Context, photoURL, description, tag string) (Photo, error) {
	body := map[string]any{
		"url":         photoURL,
		"description": description,
		"tag":         tag,
	}
	var resp Photo
	err := c.do(ctx, http.MethodPost, "v0/photos", body, &resp)
	return resp, err
}

// AddSupplier adds a supplier to the directory.
func (c *Client) AddSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	var resp Supplier
	err := c.do(ctx, http.MethodPost, "v0/suppliers", s, &resp)
	return resp, err
}

// Archives lists portfolio snapshots, newest first.
func (c *Client) Archives(ctx context.Context) ([]Archive, error) {
	var resp []Archive
	err := c.do(ctx, http.MethodGet, "v0/portfolio", nil, &resp)
	return resp, err
}

// ArchiveProject snapshots the live project into the portfolio.
func (c *Client) ArchiveProject(ctx context.Context) (Archive, error) {
	var resp Archive
	err := c.do(ctx, http.MethodPost, "v0/portfolio", nil, &resp)
	return resp, err
}

// LoadArchive loads a snapshot back onto the desk.
func (c *Client) LoadArchive(ctx context.Context, id string) (ProjectState, error) {
	var resp ProjectState
	endpoint := fmt.Sprintf("v0/portfolio/%s/load", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// DeleteArchive removes a snapshot.
func (c *Client) DeleteArchive(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("v0/portfolio/%s", url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// Subscription returns the company subscription.
func (c *Client) Subscription(ctx context.Context) (Subscription, error) {
	var resp Subscription
	err := c.do(ctx, http.MethodGet, "v0/subscription", nil, &resp)
	return resp, err
}

// Upgrade runs the simulated checkout and switches tier.
func (c *Client) Upgrade(ctx context.Context, tier, method, phone string) (Subscription, error) {
	body := map[string]any{
		"tier":   tier,
		"method": method,
		"phone":  phone,
	}
	var resp struct {
		Subscription Subscription `json:"subscription"`
	}
	err := c.do(ctx, http.MethodPost, "v0/subscription/upgrade", body, &resp)
	return resp.Subscription, err
}

// Advice asks the AI consultant a stage question.
func (c *Client) Advice(ctx context.Context, stageID, question string) (string, error) {
	body := map[string]any{
		"stage_id": stageID,
		"question": question,
	}
	var resp struct {
		Text string `json:"text"`
	}
	err := c.do(ctx, http.MethodPost, "v0/advice", body, &resp)
	return resp.Text, err
}

// Proposal drafts a full project proposal for the live project.
func (c *Client) Proposal(ctx context.Context) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	err := c.do(ctx, http.MethodPost, "v0/proposal", nil, &resp)
	return resp.Text, err
}

// Events returns recent audit log entries.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
