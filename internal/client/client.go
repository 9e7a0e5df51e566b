// Package client talks to a running kalender server's JSON API.
package client

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

	"github.com/alfredjeanlab/kalender/internal/model"
)

// HTTPClient calls the /api and /health endpoints of a kalender server.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for baseURL (e.g. "http://localhost:8080").
// When token is non-empty it is sent as a Bearer token on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// EventList is one page of the filtered event list.
type EventList struct {
	Events  []model.Event `json:"events"`
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
	// Next is the path and query of the following page, if any.
	Next string `json:"next,omitempty"`
}

// SyncResult is the outcome of a triggered sync.
type SyncResult struct {
	Events   int    `json:"events"`
	Removed  int64  `json:"removed"`
	Bytes    int    `json:"bytes"`
	Duration string `json:"duration"`
}

// ListEvents returns the page of events selected by q, which takes the same
// parameters as the list page.
func (c *HTTPClient) ListEvents(ctx context.Context, q url.Values) (*EventList, error) {
	path := "/api/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var list EventList
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetEvent returns the event with slug.
func (c *HTTPClient) GetEvent(ctx context.Context, slug string) (*model.Event, error) {
	var ev model.Event
	if err := c.doJSON(ctx, http.MethodGet, "/api/events/"+url.PathEscape(slug), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// TriggerSync asks the server to run a sync now and waits for the result.
func (c *HTTPClient) TriggerSync(ctx context.Context) (*SyncResult, error) {
	var res SyncResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sync", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health returns the server's reported status.
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with an optional JSON body and decodes the
// JSON response into result.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
