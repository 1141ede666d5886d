package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"gptkit/internal/logging"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second

	completionsPath    = "chat/completions"
	organizationHeader = "OpenAI-Organization"
	requestIDHeader    = "X-Client-Request-Id"
)

// Config captures the runtime settings required to talk to the provider.
// MaxRetries is the total number of attempts and is used as given.
type Config struct {
	APIKey       string
	BaseURL      string
	Organization string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// Client wraps the chat completion endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(time.Duration)
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The client timeout is
// replaced by Config.Timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient validates cfg and constructs a client. A missing API key fails
// immediately with ErrAuthentication.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Organization = strings.TrimSpace(cfg.Organization)
	if cfg.APIKey == "" {
		return nil, &Error{
			Kind:    ErrAuthentication,
			Message: "API key is not configured; set OPENAI_API_KEY or openai.api_key",
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	// Copy so a shared *http.Client passed through WithHTTPClient is not mutated.
	httpClient := *client.httpClient
	httpClient.Timeout = cfg.Timeout
	client.httpClient = &httpClient
	client.logger = logging.NewComponentLogger(client.logger, "provider")
	return client, nil
}

// Config returns the normalized configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// Send posts payload to the chat completion endpoint and returns the raw
// JSON object from the first successful attempt.
func (c *Client) Send(ctx context.Context, payload any) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID := uuid.NewString()
	logger := c.logger.With(logging.String(logging.FieldCorrelationID, requestID))

	attempts := c.cfg.MaxRetries
	if attempts <= 0 {
		logger.Warn("chat completion skipped",
			logging.String(logging.FieldEventType, "retry_budget_empty"),
			logging.Int("max_retries", attempts),
		)
		return nil, &Error{Kind: ErrProvider, Message: "Request failed after all retry attempts"}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("provider request: encode body: %w", err)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, completionsPath)
	if err != nil {
		return nil, fmt.Errorf("provider request: build url: %w", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newLinearBackOff(c.cfg.RetryDelay), uint64(attempts-1)),
		ctx,
	)
	var timer backoff.Timer
	if c.sleeper != nil {
		timer = newSleeperTimer(c.sleeper)
	}

	var (
		attempt int
		body    json.RawMessage
	)
	operation := func() error {
		attempt++
		logger.Debug("chat completion attempt",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.String("endpoint", endpoint),
		)
		result, err := c.sendOnce(ctx, endpoint, encoded, requestID)
		if err != nil {
			return err
		}
		body = result
		return nil
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("chat completion attempt failed; retrying",
			logging.String(logging.FieldEventType, "retry"),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Int("status", StatusCode(err)),
			logging.Error(err),
		)
	}

	err = backoff.RetryNotifyWithTimer(operation, policy, notify, timer)
	if err == nil {
		logger.Debug("chat completion succeeded", logging.Int("attempts", attempt))
		return body, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("provider request: %w", ctxErr)
	}

	var perr *Error
	if errors.As(err, &perr) {
		logger.Error("chat completion failed",
			logging.String(logging.FieldEventType, "request_failed"),
			logging.Int("attempts", attempt),
			logging.Int("status", perr.StatusCode),
			logging.Error(perr),
		)
		return nil, perr
	}

	failure := &Error{
		Kind:    ErrProvider,
		Message: fmt.Sprintf("Request failed after %d attempts: %v", attempt, err),
		Err:     err,
	}
	logger.Error("chat completion failed",
		logging.String(logging.FieldEventType, "request_failed"),
		logging.Int("attempts", attempt),
		logging.Error(err),
	)
	return nil, failure
}

// sendOnce performs a single attempt. Failures that must not be retried are
// wrapped with backoff.Permanent.
func (c *Client) sendOnce(ctx context.Context, endpoint string, encoded []byte, requestID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, backoff.Permanent(&Error{Kind: ErrProvider, Message: "build request", Err: err})
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if c.cfg.Organization != "" {
		req.Header.Set(organizationHeader, c.cfg.Organization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: http error (timeout=%s): %w", c.cfg.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider request: read body (timeout=%s): %w", c.cfg.Timeout, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		var object map[string]json.RawMessage
		if err := json.Unmarshal(body, &object); err != nil {
			return nil, backoff.Permanent(&Error{
				Kind:       ErrProvider,
				StatusCode: resp.StatusCode,
				Message:    "decode response: " + summarizePayloadSnippet(string(body)),
				Err:        err,
			})
		}
		return json.RawMessage(body), nil
	}

	failure := classifyStatus(resp.StatusCode, extractErrorMessage(body))
	if failure.Kind != ErrProvider {
		return nil, backoff.Permanent(failure)
	}
	return nil, failure
}

func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return unknownErrorMessage
	}
	if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
		return msg
	}
	return unknownErrorMessage
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
