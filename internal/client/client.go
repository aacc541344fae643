// Package client provides a typed REST client for the tablemap backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/tablemap-go/internal/metrics"
)

// Client talks to the tablemap backend. All calls attach the bearer
// credential; a 401 response surfaces as an authentication-failure error
// kind and is never retried automatically.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	stats      *metrics.Collector
}

// New creates a new backend client.
// If endpoint is empty, uses TABLEMAP_SERVER_URL env var or defaults to
// localhost:8585. Timeout can be configured via TABLEMAP_CLIENT_TIMEOUT
// (default 10m; analyze calls can block on LLM round-trips).
func New(endpoint, token string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("TABLEMAP_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8585/api"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("TABLEMAP_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the configured base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// SetStats attaches a request statistics collector. Nil disables recording.
func (c *Client) SetStats(stats *metrics.Collector) { c.stats = stats }

// Stats returns the attached collector, or nil.
func (c *Client) Stats() *metrics.Collector { return c.stats }

func (c *Client) record(op string, start time.Time, failed bool) {
	if c.stats != nil {
		c.stats.Record(op, time.Since(start), failed)
	}
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// getJSON performs a GET and decodes the response into result.
func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, result)
}

// postJSON performs a POST with a JSON body and decodes the response.
func (c *Client) postJSON(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

// postForm performs a multipart form POST and decodes the response.
// The analyze/auto-process endpoints take multipart even without bytes
// attached, because the upload surface already speaks it.
func (c *Client) postForm(ctx context.Context, path string, fields map[string]string, result any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, result)
}

// deleteJSON performs a DELETE.
func (c *Client) deleteJSON(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, nil)
}

// do executes the request, normalizing transport and HTTP failures into
// *Error values at the call boundary.
func (c *Client) do(req *http.Request, result any) (err error) {
	start := time.Now()
	defer func() { c.record(opFor(req), start, err != nil) }()

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	// Correlates client log lines with backend request logs.
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{
			Kind:    KindNetworkUnreachable,
			Message: "backend unreachable",
			Detail:  err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Kind:    KindNetworkUnreachable,
			Message: "read response",
			Detail:  err.Error(),
		}
	}

	if resp.StatusCode >= 400 {
		return normalizeHTTPError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func opFor(req *http.Request) string {
	switch {
	case req.Method == http.MethodGet:
		return metrics.OpRead
	case strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data"):
		return metrics.OpUpload
	default:
		return metrics.OpMutate
	}
}

func normalizeHTTPError(status int, body []byte) *Error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	message := eb.Error
	detail := eb.Detail
	if message == "" {
		message = http.StatusText(status)
		detail = string(body)
	}

	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindAuthenticationFailed, Status: status, Message: "session expired, run 'tablemap login'", Detail: detail}
	case status == http.StatusForbidden:
		return &Error{Kind: KindForbidden, Status: status, Message: message, Detail: detail}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: status, Message: message, Detail: detail}
	case status == http.StatusUnprocessableEntity:
		return &Error{Kind: KindValidationFailed, Status: status, Message: message, Detail: detail}
	default:
		return &Error{Kind: KindServerError, Status: status, Message: message, Detail: detail}
	}
}
