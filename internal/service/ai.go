package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hiredalways/internal/metrics"
)

const (
	defaultGeminiURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel = "gemini-2.0-flash-exp"
	maxUpstreamBody    = 4 << 20
)

var (
	ErrAINotConfigured = errors.New("AI service not configured")
	ErrAITimeout       = errors.New("AI service timeout")
)

// UpstreamError is a non-200 answer from the model API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("AI service error: status %d: %s", e.StatusCode, e.Body)
}

// GeminiClient forwards prompts to Gemini's generateContent endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiClient creates a client bound to a fixed request timeout.
func NewGeminiClient(apiKey, model, baseURL string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   strings.TrimPrefix(model, "gemini:"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *GeminiClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// Generate sends prompt upstream and returns the raw JSON answer.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (json.RawMessage, error) {
	if !c.Configured() {
		metrics.AIRequests.WithLabelValues("not_configured").Inc()
		return nil, ErrAINotConfigured
	}

	start := time.Now()
	raw, err := c.generate(ctx, prompt)
	metrics.AIDuration.Observe(time.Since(start).Seconds())
	metrics.AIRequests.WithLabelValues(aiOutcome(err)).Inc()
	return raw, err
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (json.RawMessage, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode AI request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build AI request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrAITimeout
		}
		return nil, fmt.Errorf("AI service error: %s", redactKey(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		if isTimeout(err) {
			return nil, ErrAITimeout
		}
		return nil, fmt.Errorf("read AI response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(payload)}
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("AI service returned invalid JSON")
	}
	return json.RawMessage(payload), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// redactKey keeps the API key (part of the request URL) out of error text.
func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
}

func aiOutcome(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAITimeout):
		return "timeout"
	case errors.As(err, &upstream):
		return "upstream_error"
	default:
		return "transport_error"
	}
}
