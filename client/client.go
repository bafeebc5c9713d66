// Package client is a typed HTTP client for the admin console API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/Triaksa-Space/be-admin-console/pkg/retry"
)

// APIError is a non-2xx response decoded from the standard error body.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Details   json.RawMessage
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) StatusCode() int   { return e.Status }
func (e *APIError) ErrorCode() string { return e.Code }

// DecodeDetails unmarshals the details payload into v and reports whether
// there was one to decode.
func (e *APIError) DecodeDetails(v interface{}) bool {
	if len(e.Details) == 0 || string(e.Details) == "null" {
		return false
	}
	return json.Unmarshal(e.Details, v) == nil
}

type errorBody struct {
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	Details   json.RawMessage `json:"details"`
	RequestID string          `json:"request_id"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retry   retry.Policy
	log     logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryPolicy sets the policy used for idempotent requests. Mutations
// are always sent once.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		retry:   retry.DefaultPolicy,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	idempotent  bool
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	policy := c.retry
	if !r.idempotent {
		policy.MaxAttempts = 1
	}
	attempt := 0
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, r, out)
		if err != nil {
			c.log.Debug("API request failed",
				logger.Method(r.method),
				logger.Path(r.path),
				logger.Int("attempt", attempt),
				logger.Err(err),
			)
		}
		return err
	})
}

func (c *Client) once(ctx context.Context, r request, out interface{}) error {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}

	switch o := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*o = data
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func decodeError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Details = body.Details
		apiErr.RequestID = body.RequestID
		if body.Error != "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

func jsonBody(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}
