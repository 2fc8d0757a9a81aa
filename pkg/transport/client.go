package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/engine"
	flowlog "github.com/goliatone/go-formflow/pkg/log"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 8 << 20

	// IdempotencyHeader carries a fresh key on every write request.
	IdempotencyHeader = "Idempotency-Key"
)

var (
	_ engine.Submitter     = (*Client)(nil)
	_ engine.StepPersister = (*Client)(nil)
	_ engine.OptionSource  = (*Client)(nil)
	_ engine.FileDeleter   = (*Client)(nil)
)

// Client talks to the form backend. It implements every engine collaborator
// so a single value can be handed to engine.New through EngineOptions.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	logger     *logrus.Entry
	newKey     func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = agent
	}
}

// WithLogger routes request diagnostics to logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIdempotencyKeys overrides the key generator, mostly for tests.
func WithIdempotencyKeys(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// New builds a Client for the backend rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("transport: base URL is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("transport: invalid base URL %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL:    trimmed,
		userAgent:  "go-formflow",
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     flowlog.Discard(),
		newKey:     uuid.NewString,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// EngineOptions wires the client as every engine collaborator.
func (c *Client) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithSubmitter(c),
		engine.WithStepPersister(c),
		engine.WithOptionSource(c),
		engine.WithFileDeleter(c),
	}
}

// envelope is the backend's response wrapper.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	idempotent  bool
}

// do performs req and decodes the envelope's data into out when out is
// non-nil. It returns the envelope message.
func (c *Client) do(ctx context.Context, req request, out any) (string, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return "", fmt.Errorf("transport: creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if req.idempotent {
		httpReq.Header.Set(IdempotencyHeader, c.newKey())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transport: %s %s: %w", req.method, req.path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("transport: reading response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":   req.method,
		"path":     req.path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("backend request")

	if resp.StatusCode >= 400 {
		return "", newAPIError(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("transport: decoding response: %w", err)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env.Message, fmt.Errorf("transport: decoding response data: %w", err)
		}
	}
	return env.Message, nil
}
