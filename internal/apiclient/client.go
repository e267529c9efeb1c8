// Package apiclient is the HTTP client for a running daemon's control API.
// The CLI uses it when a daemon owns the queue; callers should fall back to
// direct store access when no daemon is listening.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/api"
)

// ErrUnreachable wraps connection failures so callers can distinguish "no
// daemon" from API-level errors.
var ErrUnreachable = errors.New("daemon not reachable")

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon API: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the daemon API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the daemon listening at bind (host:port).
func New(bind string) *Client {
	base := strings.TrimRight(bind, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping reports whether a daemon answers the health endpoint.
func (c *Client) Ping(ctx context.Context) bool {
	var resp api.HealthResponse
	return c.do(ctx, http.MethodGet, "/healthz", nil, &resp) == nil
}

// Status fetches the workflow status summary.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var resp api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &resp)
	return resp, err
}

// Queue lists queue items, optionally filtered to one status.
func (c *Client) Queue(ctx context.Context, status string) ([]api.ItemResponse, error) {
	path := "/api/v1/queue"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var resp api.ItemsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Item fetches one queue item by identifier.
func (c *Client) Item(ctx context.Context, id int64) (api.ItemResponse, error) {
	var resp api.ItemResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/queue/"+strconv.FormatInt(id, 10), nil, &resp)
	return resp, err
}

// Enqueue adds a new run to the queue.
func (c *Client) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.ItemResponse, error) {
	var resp api.ItemResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/queue", req, &resp)
	return resp, err
}

// Retry moves a failed item back to pending.
func (c *Client) Retry(ctx context.Context, id int64) error {
	var resp api.RetryResponse
	return c.do(ctx, http.MethodPost, "/api/v1/queue/"+strconv.FormatInt(id, 10)+"/retry", nil, &resp)
}

// Remove deletes a non-processing item from the queue.
func (c *Client) Remove(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/queue/"+strconv.FormatInt(id, 10), nil, nil)
}

// Logs fetches up to limit recent log entries from the daemon's ring buffer.
func (c *Client) Logs(ctx context.Context, limit int) (api.LogsResponse, error) {
	path := "/api/v1/logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp api.LogsResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var decoded api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.Error != "" {
			apiErr.Message = decoded.Error
			apiErr.Code = decoded.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
