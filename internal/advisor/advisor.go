// Package advisor is the AI consultant behind stage advice and project
// proposals. It is strictly advisory: calls never return an error, only a
// fixed apology sentence when the upstream model cannot be reached.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kaziflow/internal/domain"
)

const (
	AdviceUnavailable   = "I'm sorry, I couldn't generate advice right now. Please check your connection and try again."
	ProposalUnavailable = "Failed to generate proposal. Please try again."
)

// Advisor answers workflow questions and drafts proposals.
type Advisor interface {
	Advice(ctx context.Context, stageTitle, question string) string
	Proposal(ctx context.Context, details domain.ProjectDetails) string
}

// Client talks to a Gemini-style generateContent endpoint.
type Client struct {
	baseURL       string
	apiKey        string
	adviceModel   string
	proposalModel string
	httpClient    *http.Client
	logger        zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Client) { a.httpClient = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Client) { a.logger = l }
}

func WithModels(advice, proposal string) Option {
	return func(a *Client) {
		a.adviceModel = advice
		a.proposalModel = proposal
	}
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	a := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		adviceModel:   "gemini-3-flash-preview",
		proposalModel: "gemini-3-pro-preview",
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ---- wire types ----

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Advice answers a question asked from a workflow stage. Kenyan-market
// framing lives in the prompt, not in the caller.
func (a *Client) Advice(ctx context.Context, stageTitle, question string) string {
	prompt := fmt.Sprintf(`You are a senior Interior Design Consultant specializing in the Kenyan market.
The user is currently at the stage: %q.
User context/question: %q

Please provide professional advice tailored to Kenya (mentioning things like local suppliers, NCA regulations, Nairobi/Mombasa/Kisumu logistics, or specific Kenyan material preferences like Mazeras stone or cypress wood) if relevant.
Keep it concise, actionable, and professional.`, stageTitle, question)

	text, err := a.generate(ctx, a.adviceModel, prompt)
	if err != nil {
		a.logger.Warn().Err(err).Str("stage", stageTitle).Msg("advice generation failed")
		return AdviceUnavailable
	}
	return text
}

// Proposal drafts a full project proposal from the project header.
func (a *Client) Proposal(ctx context.Context, details domain.ProjectDetails) string {
	prompt := fmt.Sprintf(`Act as a world-class senior interior designer. Create a comprehensive project proposal for:
Project: %s
Client: %s
Location: %s

Follow this specific structure:
1. Identify the top 5 most important stakeholders for this specific project in the Kenyan context.
2. Detail current problems (assumed for this type of project), what we aim to achieve (goals), and a projected timeline (in weeks).
3. A presentation plan to the stakeholders including setting up the next meeting.

Use professional language and format with Markdown. Highlight Kenyan-specific considerations.`,
		details.Name, details.Client, details.Location)

	text, err := a.generate(ctx, a.proposalModel, prompt)
	if err != nil {
		a.logger.Warn().Err(err).Str("project", details.Name).Msg("proposal generation failed")
		return ProposalUnavailable
	}
	return text
}

func (a *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("api key not configured")
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("model error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	var sb strings.Builder
	for _, c := range parsed.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return sb.String(), nil
}
