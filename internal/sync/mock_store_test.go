package sync

import (
	"context"
	"errors"
	"slices"
	stdsync "sync"

	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/store"
)

// mockSource is a remote store returning a fixed list.
type mockSource struct {
	events []model.Event
	err    error
}

func (m *mockSource) ListEvents(context.Context) ([]model.Event, error) {
	return m.events, m.err
}

func (m *mockSource) GetEventBySlug(_ context.Context, slug string) (*model.Event, error) {
	for i := range m.events {
		if m.events[i].Slug == slug {
			return &m.events[i], nil
		}
	}
	return nil, nil
}

// mockMirror is a minimal in-memory mirror. Transactions stage changes on a
// copy and commit only when fn succeeds.
type mockMirror struct {
	mu        stdsync.Mutex
	rows      map[string]model.Event
	upsertErr error
}

func newMockMirror() *mockMirror {
	return &mockMirror{rows: make(map[string]model.Event)}
}

func (m *mockMirror) ListEvents(context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, ev := range m.rows {
		out = append(out, ev)
	}
	slices.SortFunc(out, func(a, b model.Event) int { return a.StartDate.Compare(b.StartDate) })
	return out, nil
}

func (m *mockMirror) GetEventBySlug(_ context.Context, slug string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.rows {
		if ev.Slug == slug {
			return &ev, nil
		}
	}
	return nil, nil
}

func (m *mockMirror) UpsertEvent(_ context.Context, ev *model.Event) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.rows[ev.ID] = *ev
	return nil
}

func (m *mockMirror) DeleteEventsExcept(_ context.Context, keep []string) (int64, error) {
	var n int64
	for id := range m.rows {
		if !slices.Contains(keep, id) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *mockMirror) CountEvents(context.Context) (int, error) {
	return len(m.rows), nil
}

func (m *mockMirror) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &mockMirror{rows: make(map[string]model.Event, len(m.rows)), upsertErr: m.upsertErr}
	for k, v := range m.rows {
		tx.rows[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows = tx.rows
	return nil
}

func (m *mockMirror) Close() error { return nil }

// errDestination always fails.
type errDestination struct{}

func (errDestination) Write(context.Context, []byte) error {
	return errors.New("bucket gone")
}
