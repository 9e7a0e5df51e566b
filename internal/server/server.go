// Package server serves the public calendar site, its JSON API and
// iCalendar feeds.
package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/kalender/internal/calendar"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/store"
	ksync "github.com/alfredjeanlab/kalender/internal/sync"
)

// Trigger runs an on-demand sync.
type Trigger interface {
	Trigger(ctx context.Context) (*ksync.Result, error)
}

// Options configure a Server. Zero values fall back to defaults.
type Options struct {
	// Location is the zone dates are shown and filtered in.
	Location *time.Location
	PageSize int
	// CacheTTL is how long a fetched event list is reused; zero disables
	// caching.
	CacheTTL time.Duration
	// AdminToken guards POST /api/sync. Empty disables the endpoint.
	AdminToken string
	// Sync handles POST /api/sync; nil answers 503.
	Sync    Trigger
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// SiteName is the page title and the calendar name in feeds.
	SiteName string
}

// Server renders pages from a store.Reader.
type Server struct {
	reader store.Reader
	opts   Options
	cache  *eventCache
	hub    *sseHub
	pages  map[string]*template.Template
	now    func() time.Time
}

// New returns a server reading events from r.
func New(r store.Reader, opts Options) (*Server, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PageSize < 1 {
		opts.PageSize = calendar.DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SiteName == "" {
		opts.SiteName = "Kalender"
	}
	s := &Server{
		reader: r,
		opts:   opts,
		hub:    newSSEHub(),
		now:    time.Now,
	}
	s.cache = newEventCache(opts.CacheTTL, func() time.Time { return s.now() })

	pages, err := parsePages(opts.Location)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.pages = pages
	return s, nil
}

// events returns the full event list, from the cache when fresh.
func (s *Server) events(ctx context.Context) ([]model.Event, error) {
	return s.cache.get(ctx, func(ctx context.Context) ([]model.Event, error) {
		evs, err := s.reader.ListEvents(ctx)
		s.opts.Metrics.StoreFetch(err)
		return evs, err
	})
}

// eventBySlug looks up one event; it is never cached.
func (s *Server) eventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	ev, err := s.reader.GetEventBySlug(ctx, slug)
	s.opts.Metrics.StoreFetch(err)
	return ev, err
}

// InvalidateCache drops the cached event list so the next request refetches.
func (s *Server) InvalidateCache() {
	s.cache.invalidate()
}
