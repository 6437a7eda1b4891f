package beep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production Beep API host
const DefaultBaseURL = "https://api.justbeep.it"

const defaultTimeout = 30 * time.Second

// Client is a Beep REST API client.
// All requests carry the bearer credential; transport errors are translated
// into the typed error taxonomy at this boundary and never re-interpreted
// by callers.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	logger        *zap.Logger
	retryAttempts uint
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL overrides the API host
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request round trip
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets a structured logger
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRetryAttempts bounds retries for idempotent read operations
func WithRetryAttempts(n uint) ClientOption {
	return func(c *Client) {
		c.retryAttempts = n
	}
}

// NewClient creates a Beep API client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		logger:        zap.NewNop(),
		retryAttempts: 3,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the configured API host
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIKey returns the configured credential
func (c *Client) APIKey() string {
	return c.apiKey
}

// get performs an idempotent read with bounded retries.
// Only network and rate-limit failures are retried; everything else is
// surfaced immediately.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, path, nil, out, nil)
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			code := CodeOf(err)
			return code == ErrCodeNetwork || code == ErrCodeRateLimit
		}),
	)
}

// post performs a mutating call. Never retried to avoid duplicate side effects.
func (c *Client) post(ctx context.Context, path string, body, out interface{}, headers map[string]string) error {
	return c.do(ctx, http.MethodPost, path, body, out, headers)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return NewError(ErrCodeValidation, fmt.Sprintf("failed to encode request body: %v", err), nil)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return NewError(ErrCodeValidation, fmt.Sprintf("invalid request: %v", err), nil)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("request timed out", zap.String("method", method), zap.String("path", path))
			return WrapError(ErrCodeTimeout, "request timed out", err)
		}
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return WrapError(ErrCodeNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.translateStatus(resp, method, path)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return WrapError(ErrCodeNetwork, "failed to decode response body", err)
	}

	return nil
}

// translateStatus is the single point where HTTP statuses become typed errors
func (c *Client) translateStatus(resp *http.Response, method, path string) error {
	var body apiErrorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	json.Unmarshal(data, &body)

	message := body.Error.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	var apiErr *Error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiErr = NewError(ErrCodeAuthentication, message, body.Error.Details)
	case resp.StatusCode == http.StatusNotFound:
		apiErr = NewError(ErrCodeNotFound, message, body.Error.Details)
	case resp.StatusCode == http.StatusPaymentRequired:
		apiErr = NewError(ErrCodePayment, message, body.Error.Details)
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr = NewError(ErrCodeRateLimit, message, body.Error.Details)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if secs, err := strconv.Atoi(retryAfter); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	case resp.StatusCode >= 500:
		apiErr = NewError(ErrCodeNetwork, message, body.Error.Details)
	default:
		apiErr = NewError(ErrCodeValidation, message, body.Error.Details)
	}

	c.logger.Warn("api error",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("code", apiErr.Code))

	return apiErr
}
