// ABOUTME: HTTP client for the workflow backend: one POST /chat per submission, no retries.
// ABOUTME: Applies a request timeout and maps failures onto TransportError, APIError and DecodeError.

package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the production backend host.
	DefaultBaseURL = "https://modelselector-backend-1051022814597.us-central1.run.app"

	// DefaultTimeout bounds a single submission, including reading the body.
	DefaultTimeout = 60 * time.Second

	// maxErrorBodyBytes caps how much of a failed response body is kept.
	maxErrorBodyBytes = 64 << 10

	// maxResultBytes caps a success body. Larger bodies are a DecodeError.
	maxResultBytes = 16 << 20
)

// Submitter is anything that can run one workflow submission. *Client
// satisfies it; the visualizer depends on this interface only.
type Submitter interface {
	SubmitWorkflow(ctx context.Context, query, sessionID string) (*Result, error)
}

// ClientConfig configures a Client. Zero values fall back to defaults.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the workflow backend.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// BaseURL returns the backend host the client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SubmitWorkflow sends query and sessionID to the backend and returns the
// decoded stage outputs. Exactly one HTTP request is made per call.
func (c *Client) SubmitWorkflow(ctx context.Context, query, sessionID string) (*Result, error) {
	result, err := c.submit(ctx, query, sessionID)
	if err != nil {
		fields := []zap.Field{
			zap.String("kind", Kind(err)),
			zap.String("session_id", sessionID),
			zap.Error(err),
		}
		var ae *APIError
		if errors.As(err, &ae) {
			fields = append(fields, zap.Int("status", ae.StatusCode), zap.String("body", excerpt(ae.Body)))
		}
		var de *DecodeError
		if errors.As(err, &de) {
			fields = append(fields, zap.String("body", excerpt(de.Body)))
		}
		c.logger.Error("workflow request failed", fields...)
		return nil, err
	}
	return result, nil
}

func (c *Client) submit(ctx context.Context, query, sessionID string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	encoded, err := json.Marshal(Request{Query: query, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode <= 299
	limit := int64(maxErrorBodyBytes)
	if success {
		limit = maxResultBytes + 1
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	c.logger.Debug("workflow response received",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	if !success {
		return nil, newAPIError(resp.StatusCode, resp.Status, string(body))
	}
	if len(body) > maxResultBytes {
		return nil, newDecodeError(fmt.Errorf("body exceeds %d bytes", maxResultBytes), body[:maxErrorBodyBytes])
	}

	return DecodeResult(body)
}

func transportError(ctx context.Context, err error) *TransportError {
	timeout := errors.Is(ctx.Err(), context.DeadlineExceeded)
	msg := "executing request"
	if timeout {
		msg = "request timed out"
	}
	return &TransportError{
		ClientError: ClientError{Message: msg, Cause: err},
		Timeout:     timeout,
	}
}

// excerpt shortens a body for log output.
func excerpt(body string) string {
	const limit = 512
	if len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}
