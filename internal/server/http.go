package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alfredjeanlab/kalender/internal/calendar"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/richtext"
)

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleList)
	mux.HandleFunc("GET /events/{slug}", s.handleDetail)
	mux.HandleFunc("GET /events/{slug}/ics", s.handleEventICS)
	mux.HandleFunc("GET /events.ics", s.handleFeedICS)
	mux.HandleFunc("GET /api/events", s.handleAPIList)
	mux.HandleFunc("GET /api/events/{slug}", s.handleAPIEvent)
	mux.HandleFunc("GET /api/notifications", s.handleNotificationStream)
	if s.opts.AdminToken != "" {
		mux.Handle("POST /api/sync", AuthMiddleware(s.opts.AdminToken, http.HandlerFunc(s.handleSync)))
	} else {
		mux.HandleFunc("POST /api/sync", s.handleSyncDisabled)
	}
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	mux.HandleFunc("/", s.handleNotFound)
	return RecoveryMiddleware(s.opts.Logger, s.instrument(mux))
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// eventJSON is the API shape of an event: the stored fields plus the
// display labels and the rendered body.
type eventJSON struct {
	model.Event
	CategoryLabel string `json:"categoryLabel,omitempty"`
	BodyHTML      string `json:"bodyHtml,omitempty"`
}

func (e eventJSON) MarshalJSON() ([]byte, error) {
	ev, err := json.Marshal(e.Event)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(ev, &fields); err != nil {
		return nil, err
	}
	if e.CategoryLabel != "" {
		fields["categoryLabel"], _ = json.Marshal(e.CategoryLabel)
	}
	if e.BodyHTML != "" {
		fields["bodyHtml"], _ = json.Marshal(e.BodyHTML)
	}
	return json.Marshal(fields)
}

type listResponse struct {
	Events  []eventJSON `json:"events"`
	Total   int         `json:"total"`
	HasMore bool        `json:"hasMore"`
	Next    string      `json:"next,omitempty"`
}

// handleAPIList handles GET /api/events. It accepts the same query
// parameters as the list page.
func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	evs, err := s.events(r.Context())
	if err != nil {
		s.opts.Logger.Error("list events", "err", err)
		writeError(w, http.StatusBadGateway, "failed to fetch events")
		return
	}
	view := calendar.FromQuery(r.URL.Query(), s.opts.PageSize, s.opts.Location)
	page := view.Page(evs)

	resp := listResponse{
		Events:  make([]eventJSON, 0, len(page.Events)),
		Total:   page.Total,
		HasMore: page.HasMore,
	}
	for _, ev := range page.Events {
		resp.Events = append(resp.Events, eventJSON{Event: ev, CategoryLabel: model.CategoryLabel(ev.Category)})
	}
	if page.HasMore {
		resp.Next = "/api/events?" + view.LoadMoreQuery()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAPIEvent handles GET /api/events/{slug}.
func (s *Server) handleAPIEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.eventBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.opts.Logger.Error("get event", "slug", r.PathValue("slug"), "err", err)
		writeError(w, http.StatusBadGateway, "failed to fetch event")
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	out := eventJSON{Event: *ev, CategoryLabel: model.CategoryLabel(ev.Category)}
	if blocks, err := richtext.ContentBlocks(ev.Content); err == nil && len(blocks) > 0 {
		out.BodyHTML = string(richtext.RenderHTML(blocks))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSync handles POST /api/sync.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.opts.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	res, err := s.opts.Sync.Trigger(r.Context())
	if res != nil {
		s.InvalidateCache()
	}
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, r.Context().Err()) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":   res.Events,
		"removed":  res.Removed,
		"bytes":    res.Bytes,
		"duration": res.Duration.Round(time.Millisecond).String(),
	})
}

func (s *Server) handleSyncDisabled(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusForbidden, "sync trigger is disabled: no admin token configured")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
