// Package contentstore is an HTTP client for the hosted content store that
// holds event documents.
package contentstore

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

// Config selects the project and dataset to talk to.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	// Host overrides the derived API host (e.g. "http://localhost:3333").
	Host string
	// UseCDN sends read queries to the cached API host.
	UseCDN bool
	// Token is sent as a Bearer token when non-empty. Writes require it.
	Token string
}

// Client talks to the store's HTTP API.
type Client struct {
	readBase   string
	writeBase  string
	dataset    string
	token      string
	httpClient *http.Client
}

// New creates a client for cfg.
func New(cfg Config) *Client {
	version := strings.TrimPrefix(cfg.APIVersion, "v")
	var readHost, writeHost string
	if cfg.Host != "" {
		readHost = strings.TrimRight(cfg.Host, "/")
		writeHost = readHost
	} else {
		writeHost = "https://" + cfg.ProjectID + ".api.sanity.io"
		readHost = writeHost
		if cfg.UseCDN {
			readHost = "https://" + cfg.ProjectID + ".apicdn.sanity.io"
		}
	}
	return &Client{
		readBase:   readHost + "/v" + version,
		writeBase:  writeHost + "/v" + version,
		dataset:    cfg.Dataset,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// APIError is returned for HTTP responses with status >= 400.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Query runs a read query and decodes its "result" member into result.
// Params are bound as $name query parameters.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, result any) error {
	q := url.Values{}
	q.Set("query", query)
	for k, v := range params {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling param %s: %w", k, err)
		}
		q.Set("$"+k, string(data))
	}
	u := c.readBase + "/data/query/" + url.PathEscape(c.dataset) + "?" + q.Encode()

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, u, "", nil, &resp); err != nil {
		return err
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// MutationResult is the body returned by the mutate endpoint.
type MutationResult struct {
	TransactionID string            `json:"transactionId"`
	Results       []MutationOutcome `json:"results"`
}

// MutationOutcome reports what happened to one document.
type MutationOutcome struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
}

// Count returns how many documents had the given operation ("create",
// "update" or "delete").
func (r *MutationResult) Count(op string) int {
	n := 0
	for _, o := range r.Results {
		if o.Operation == op {
			n++
		}
	}
	return n
}

// Mutate commits mutations as one transaction.
func (c *Client) Mutate(ctx context.Context, mutations []map[string]any) (*MutationResult, error) {
	body, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	u := c.writeBase + "/data/mutate/" + url.PathEscape(c.dataset)
	var resp MutationResult
	if err := c.do(ctx, http.MethodPost, u, "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs an HTTP request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, u, contentType string, body io.Reader, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
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
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts a readable message from an error body, which is
// either {"error": "..."} or {"error": {"description": "..."}}.
func errorMessage(body []byte) string {
	var resp struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &resp) == nil {
		var s string
		if json.Unmarshal(resp.Error, &s) == nil && s != "" {
			if resp.Message != "" {
				return s + ": " + resp.Message
			}
			return s
		}
		var obj struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(resp.Error, &obj) == nil && obj.Description != "" {
			return obj.Description
		}
		if resp.Message != "" {
			return resp.Message
		}
	}
	return strings.TrimSpace(string(body))
}
