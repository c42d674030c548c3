// Package ai wraps the Gemini generateContent endpoint for the two
// text-generation tasks the pipeline needs: category classification
// and summarization. Both boundaries absorb every failure mode
// (rate limits, transport errors, malformed responses, missing API
// key) and degrade to well-formed fallback values; neither ever
// returns an error to its caller.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-1.5-flash"
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second

	// maxJitter is the upper bound of the random delay added on top
	// of exponential backoff after a rate-limit response.
	maxJitter = 500 * time.Millisecond
)

// errRateLimited is returned by a single generate call when the API
// answers 429; the retry loop backs off with jitter on it.
type errRateLimited struct {
	body string
}

func (e *errRateLimited) Error() string {
	return fmt.Sprintf("rate limited: %s", e.body)
}

// genParams are the generation tuning knobs a caller picks per task.
type genParams struct {
	Temperature     float64
	MaxOutputTokens int
}

// Client is a minimal Gemini REST client shared by the classifier and
// summarizer. BaseURL, attempt cap, and base delay are injectable so
// tests can point it at a fake server without real backoff waits.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	maxAttempts int
	baseDelay   time.Duration
	httpClient  *http.Client
	log         *logrus.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the Gemini endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRetry overrides the attempt cap and base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Gemini client. An empty apiKey is tolerated:
// every generate call will fail fast and the callers degrade.
func NewClient(apiKey, model string, opts ...Option) *Client {
	if model == "" {
		model = defaultModel
	}
	c := &Client{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultBaseURL,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         logrus.WithField("component", "ai"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request/response shapes for the generateContent endpoint.

type apiPart struct {
	Text string `json:"text"`
}

type apiContent struct {
	Parts []apiPart `json:"parts"`
}

type apiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type apiRequest struct {
	Contents         []apiContent        `json:"contents"`
	GenerationConfig apiGenerationConfig `json:"generationConfig"`
}

type apiCandidate struct {
	Content apiContent `json:"content"`
}

type apiResponse struct {
	Candidates []apiCandidate `json:"candidates"`
}

// generateWithRetry calls the model up to the attempt cap. Rate-limit
// responses back off exponentially with jitter; other failures back
// off exponentially without it. The error from the final attempt is
// returned once attempts are exhausted.
func (c *Client) generateWithRetry(ctx context.Context, prompt string, params genParams) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("no API key configured")
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		text, err := c.generate(ctx, prompt, params)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.maxAttempts-1 {
			break
		}

		delay := c.baseDelay * (1 << attempt)
		if _, ok := err.(*errRateLimited); ok {
			delay += time.Duration(rand.Int63n(int64(maxJitter)))
			c.log.WithField("delay", delay).Warn("rate limited, backing off")
		} else {
			c.log.WithError(err).WithField("attempt", attempt+1).Warn("generate call failed, retrying")
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// generate performs a single generateContent call.
func (c *Client) generate(ctx context.Context, prompt string, params genParams) (string, error) {
	reqBody := apiRequest{
		Contents: []apiContent{{Parts: []apiPart{{Text: prompt}}}},
		GenerationConfig: apiGenerationConfig{
			Temperature:     params.Temperature,
			MaxOutputTokens: params.MaxOutputTokens,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generateContent: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &errRateLimited{body: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// truncate caps s at max characters, appending a marker when content
// was dropped.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
