package contentstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	query       url.Values
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.Query()
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates a Client pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		ProjectID:  "proj",
		Dataset:    "production",
		APIVersion: "2024-01-01",
		Host:       srv.URL,
		Token:      token,
	})
}

func TestNew_Hosts(t *testing.T) {
	for _, tc := range []struct {
		name      string
		cfg       Config
		wantRead  string
		wantWrite string
	}{
		{
			name:      "Direct",
			cfg:       Config{ProjectID: "ye1wdgkp", APIVersion: "2024-01-01"},
			wantRead:  "https://ye1wdgkp.api.sanity.io/v2024-01-01",
			wantWrite: "https://ye1wdgkp.api.sanity.io/v2024-01-01",
		},
		{
			name:      "CDN",
			cfg:       Config{ProjectID: "ye1wdgkp", APIVersion: "v2024-01-01", UseCDN: true},
			wantRead:  "https://ye1wdgkp.apicdn.sanity.io/v2024-01-01",
			wantWrite: "https://ye1wdgkp.api.sanity.io/v2024-01-01",
		},
		{
			name:      "HostOverride",
			cfg:       Config{ProjectID: "x", APIVersion: "1", Host: "http://localhost:3333/", UseCDN: true},
			wantRead:  "http://localhost:3333/v1",
			wantWrite: "http://localhost:3333/v1",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := New(tc.cfg)
			if c.readBase != tc.wantRead || c.writeBase != tc.wantWrite {
				t.Errorf("bases = %q, %q; want %q, %q", c.readBase, c.writeBase, tc.wantRead, tc.wantWrite)
			}
		})
	}
}

func TestClient_ListEvents(t *testing.T) {
	h := &testHandler{responseBody: `{"result": [
		{"_id":"a","title":"A","slug":"a","category":"Seminar","area":"ÅKP","startDate":"2025-02-01T09:00:00Z","endDate":"2025-02-01T10:00:00Z","content":[{"_key":"k","_type":"block","children":[{"_key":"s","_type":"span","text":"x","marks":[]}],"markDefs":[]}]},
		{"_id":"b","title":"B","slug":"b","areas":["Mafoss"],"startDate":"2025-03-01T09:00:00Z","endDate":"2025-03-01T10:00:00Z","htmlContent":"<p>y</p>"}
	]}`}
	c := newTestClient(t, h, "tok")

	events, err := c.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v2024-01-01/data/query/production" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if !strings.Contains(h.query.Get("query"), `*[_type == "event"] | order(startDate asc)`) {
		t.Errorf("query = %q", h.query.Get("query"))
	}
	if h.auth != "Bearer tok" {
		t.Errorf("Authorization = %q", h.auth)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if _, ok := events[0].Content.(model.Blocks); !ok {
		t.Errorf("event a content = %T, want Blocks", events[0].Content)
	}
	if html, ok := events[1].LegacyHTML(); !ok || html != "<p>y</p>" {
		t.Errorf("event b html = %q, %v", html, ok)
	}
	if events[0].Areas[0] != "ÅKP" || events[1].Areas[0] != "Mafoss" {
		t.Errorf("areas = %v / %v", events[0].Areas, events[1].Areas)
	}
}

func TestClient_GetEventBySlug(t *testing.T) {
	h := &testHandler{responseBody: `{"result": {"_id":"a","title":"A","slug":"min-slug"}}`}
	c := newTestClient(t, h, "")

	ev, err := c.GetEventBySlug(context.Background(), "min-slug")
	if err != nil {
		t.Fatalf("GetEventBySlug: %v", err)
	}
	if ev == nil || ev.ID != "a" {
		t.Fatalf("event = %+v", ev)
	}
	if got := h.query.Get("$slug"); got != `"min-slug"` {
		t.Errorf("$slug = %q, want JSON string", got)
	}
	if h.auth != "" {
		t.Errorf("Authorization = %q, want none", h.auth)
	}
}

func TestClient_GetEventBySlug_NotFound(t *testing.T) {
	h := &testHandler{responseBody: `{"result": null}`}
	c := newTestClient(t, h, "")

	ev, err := c.GetEventBySlug(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetEventBySlug: %v", err)
	}
	if ev != nil {
		t.Errorf("event = %+v, want nil", ev)
	}
}

func TestClient_MigrationQueries(t *testing.T) {
	h := &testHandler{responseBody: `{"result": [{"_id":"x","title":"X","htmlContent":"<p>h</p>","hasContent":true,"imageUrl":"https://i/x.png"}]}`}
	c := newTestClient(t, h, "tok")
	ctx := context.Background()

	legacy, err := c.ListLegacyHTML(ctx)
	if err != nil || len(legacy) != 1 || legacy[0].HTML != "<p>h</p>" {
		t.Errorf("ListLegacyHTML = %+v, %v", legacy, err)
	}
	if !strings.Contains(h.query.Get("query"), "defined(htmlContent)") {
		t.Errorf("legacy query = %q", h.query.Get("query"))
	}

	states, err := c.ListContentState(ctx)
	if err != nil || len(states) != 1 || !states[0].HasContent {
		t.Errorf("ListContentState = %+v, %v", states, err)
	}

	images, err := c.ListImageURLs(ctx)
	if err != nil || len(images) != 1 || images[0].ImageURL != "https://i/x.png" {
		t.Errorf("ListImageURLs = %+v, %v", images, err)
	}
}

func TestClient_Patch(t *testing.T) {
	h := &testHandler{responseBody: `{"transactionId":"tx","results":[{"id":"ev-1","operation":"update"}]}`}
	c := newTestClient(t, h, "tok")

	err := c.Patch(context.Background(), Patch{
		ID:    "ev-1",
		Set:   map[string]any{"content": []string{"x"}},
		Unset: []string{"htmlContent"},
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v2024-01-01/data/mutate/production" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("Content-Type = %q", h.contentType)
	}

	var body struct {
		Mutations []struct {
			Patch struct {
				ID    string          `json:"id"`
				Set   json.RawMessage `json:"set"`
				Unset []string        `json:"unset"`
			} `json:"patch"`
		} `json:"mutations"`
	}
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("decoding body %q: %v", h.body, err)
	}
	if len(body.Mutations) != 1 {
		t.Fatalf("mutations = %d, want 1", len(body.Mutations))
	}
	p := body.Mutations[0].Patch
	if p.ID != "ev-1" || string(p.Set) != `{"content":["x"]}` || len(p.Unset) != 1 || p.Unset[0] != "htmlContent" {
		t.Errorf("patch = %+v (set %s)", p, p.Set)
	}
}

func TestClient_PatchSetOnlyOmitsUnset(t *testing.T) {
	h := &testHandler{responseBody: `{}`}
	c := newTestClient(t, h, "tok")
	if err := c.Patch(context.Background(), Patch{ID: "a", Set: map[string]any{"content": 1}}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(h.body, "unset") {
		t.Errorf("body %s should not contain unset", h.body)
	}
}

func TestClient_CreateOrReplace(t *testing.T) {
	h := &testHandler{responseBody: `{"transactionId":"tx","results":[{"id":"imported-a","operation":"create"},{"id":"imported-b","operation":"update"}]}`}
	c := newTestClient(t, h, "tok")

	start := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	res, err := c.CreateOrReplace(context.Background(), []model.Event{
		{ID: "imported-a", Title: "A", Slug: "a", StartDate: start, EndDate: start, Areas: []string{"ÅKP"}, Content: model.RawHTML("<p>a</p>")},
		{ID: "imported-b", Title: "B", Slug: "b"},
	})
	if err != nil {
		t.Fatalf("CreateOrReplace: %v", err)
	}
	if res.Count("create") != 1 || res.Count("update") != 1 {
		t.Errorf("result = %+v", res)
	}

	var body struct {
		Mutations []struct {
			CreateOrReplace map[string]any `json:"createOrReplace"`
		} `json:"mutations"`
	}
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Mutations) != 2 {
		t.Fatalf("mutations = %d", len(body.Mutations))
	}
	doc := body.Mutations[0].CreateOrReplace
	if doc["_type"] != "event" || doc["_id"] != "imported-a" || doc["htmlContent"] != "<p>a</p>" {
		t.Errorf("doc = %v", doc)
	}
	if doc["startDate"] != "2025-04-01T08:00:00Z" {
		t.Errorf("startDate = %v", doc["startDate"])
	}
	slug, _ := doc["slug"].(map[string]any)
	if slug["current"] != "a" || slug["_type"] != "slug" {
		t.Errorf("slug = %v", doc["slug"])
	}
	if _, ok := body.Mutations[1].CreateOrReplace["startDate"]; ok {
		t.Error("zero startDate should be omitted")
	}
}

func TestClient_UploadImage(t *testing.T) {
	h := &testHandler{responseBody: `{"document":{"_id":"image-abc-100x100-png"}}`}
	c := newTestClient(t, h, "tok")

	id, err := c.UploadImage(context.Background(), "ev 1.png", "image/png", []byte("PNGDATA"))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if id != "image-abc-100x100-png" {
		t.Errorf("id = %q", id)
	}
	if h.path != "/v2024-01-01/assets/images/production" || h.query.Get("filename") != "ev 1.png" {
		t.Errorf("request = %s ?%v", h.path, h.query)
	}
	if h.contentType != "image/png" || h.body != "PNGDATA" {
		t.Errorf("content = %q %q", h.contentType, h.body)
	}
}

func TestClient_APIError(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
		want string
	}{
		{"StringError", `{"error":"Unauthorized","message":"Session not found"}`, "Unauthorized: Session not found"},
		{"ObjectError", `{"error":{"description":"Mutation failed: bad id","type":"mutationError"}}`, "Mutation failed: bad id"},
		{"PlainText", "gateway timeout\n", "gateway timeout"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{statusCode: http.StatusBadRequest, responseBody: tc.body}
			c := newTestClient(t, h, "tok")

			err := c.Patch(context.Background(), Patch{ID: "x", Set: map[string]any{"a": 1}})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != tc.want {
				t.Errorf("APIError = %+v, want message %q", apiErr, tc.want)
			}
		})
	}
}
