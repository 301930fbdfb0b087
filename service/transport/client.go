package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// basePath prefixes every workflow endpoint.
const basePath = "/api/v1"

// Client issues HTTP requests to the fixed set of workflow endpoints.  Each
// pipeline operation maps to exactly one request/response exchange; the
// client never retries and keeps no response cache.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
	token      string
}

// New creates a Client for the workflow API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("transport: baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		cfg.timeout = d
		return nil
	}
}

// WithBearerToken sends the token as an Authorization header on every request.
func WithBearerToken(token string) Option {
	return func(cfg *clientConfig) error {
		cfg.token = token
		return nil
	}
}

// doJSON executes a single request and decodes the JSON response into dst.
// Non-2xx responses become *APIError; failures without an HTTP response
// become *TransportError.
func (c *Client) doJSON(ctx context.Context, method, path, op string, in, dst any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+basePath+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.InfoContext(ctx, "workflow API request", "operation", op, "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "workflow API response", "operation", op, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		detail := genericDetail
		var failure errorBody
		if json.Unmarshal(respBody, &failure) == nil && failure.Detail != "" {
			detail = failure.Detail
		}
		return &APIError{Op: op, StatusCode: resp.StatusCode, Detail: detail}
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// Start creates a workflow session and returns the research-stage output.
func (c *Client) Start(ctx context.Context, request *StartRequest) (*StartResponse, error) {
	if request == nil || strings.TrimSpace(request.Grievance) == "" {
		return nil, ErrEmptyGrievance
	}
	var response StartResponse
	if err := c.doJSON(ctx, http.MethodPost, "/start-legal-aid", "start", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Advance submits approved research and returns the initial draft.
func (c *Client) Advance(ctx context.Context, request *AdvanceRequest) (*DraftResponse, error) {
	if request == nil || request.SessionID == "" {
		return nil, ErrEmptySession
	}
	var response DraftResponse
	if err := c.doJSON(ctx, http.MethodPost, "/approve-research", "advance", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Refine asks the server to revise the current draft with human feedback.
func (c *Client) Refine(ctx context.Context, request *RefineRequest) (*DraftResponse, error) {
	if request == nil || request.SessionID == "" {
		return nil, ErrEmptySession
	}
	if strings.TrimSpace(request.Feedback) == "" {
		return nil, ErrEmptyFeedback
	}
	var response DraftResponse
	if err := c.doJSON(ctx, http.MethodPost, "/review-draft", "refine", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Finalize closes the session and returns the finished artifact.
func (c *Client) Finalize(ctx context.Context, sessionID string) (*FinalizeResponse, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	var response FinalizeResponse
	request := &FinalizeRequest{SessionID: sessionID}
	if err := c.doJSON(ctx, http.MethodPost, "/finalize-legal-aid", "finalize", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Status reports the server-side view of a session.
func (c *Client) Status(ctx context.Context, sessionID string) (*StatusResponse, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	var response StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/workflow-status/"+sessionID, "status", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Health checks API liveness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var response HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", "health", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
