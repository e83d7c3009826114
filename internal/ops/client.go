package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultClientTimeout bounds one request to a running ops server
const DefaultClientTimeout = 30 * time.Second

// Client manages the discovery cache of a running ops server. It is used
// when the cache lives inside the server process.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the ops server at baseURL. A bare
// host:port is treated as http.
func NewClient(baseURL, token string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
	}
}

// Cached lists the entities with a cached configuration
func (c *Client) Cached(ctx context.Context) ([]string, error) {
	var resp struct {
		Entities []string `json:"entities"`
	}
	if err := c.do(ctx, http.MethodGet, "/cache", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Entities == nil {
		resp.Entities = []string{}
	}
	return resp.Entities, nil
}

// Warm discovers and caches the named entities, or every entity
func (c *Client) Warm(ctx context.Context, names ...string) (int, error) {
	var resp struct {
		Warmed int `json:"warmed"`
	}
	if err := c.do(ctx, http.MethodPost, "/cache/warm", WarmRequest{Entities: names}, &resp); err != nil {
		return 0, err
	}
	return resp.Warmed, nil
}

// Clear invalidates the named entities, or the whole cache
func (c *Client) Clear(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return c.do(ctx, http.MethodDelete, "/cache", nil, nil)
	}
	for _, name := range names {
		if err := c.do(ctx, http.MethodDelete, "/cache/"+url.PathEscape(name), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ops server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("ops server: %s %s: %s", method, path, errResp.Message)
		}
		return fmt.Errorf("ops server: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
