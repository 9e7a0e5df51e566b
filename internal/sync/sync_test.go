package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/model"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return nil
}

// recordingPublisher keeps every published payload.
type recordingPublisher struct {
	mu     stdsync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvents() []model.Event {
	start := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)
	return []model.Event{
		{ID: "ev-1", Title: "Frokostmøte", Slug: "frokostmote", StartDate: start, EndDate: start.Add(time.Hour)},
		{ID: "ev-2", Title: "Seminar", Slug: "seminar", StartDate: start.AddDate(0, 0, 7), EndDate: start.AddDate(0, 0, 7)},
	}
}

func TestRunOnce_MirrorAndDestinations(t *testing.T) {
	mirror := newMockMirror()
	mirror.rows["stale"] = model.Event{ID: "stale", Title: "Gone"}
	dest := &mockDestination{}
	pub := &recordingPublisher{}

	s := &Syncer{
		Source:       &mockSource{events: sampleEvents()},
		Mirror:       mirror,
		Destinations: []Destination{dest},
		Publisher:    pub,
		Logger:       testLogger(),
	}
	res, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Events != 2 || res.Removed != 1 || res.Bytes == 0 {
		t.Errorf("result = %+v", res)
	}

	if _, ok := mirror.rows["stale"]; ok || len(mirror.rows) != 2 {
		t.Errorf("mirror rows = %v", mirror.rows)
	}
	if dest.writes.Load() != 1 {
		t.Fatalf("writes = %d", dest.writes.Load())
	}
	data := dest.last.Load().([]byte)
	if got := len(nonEmptyLines(string(data))); got != 3 {
		t.Errorf("snapshot has %d lines, want 3", got)
	}
	if len(pub.topics) != 1 || pub.topics[0] != events.TopicSyncCompleted {
		t.Fatalf("published %v", pub.topics)
	}
	if done := pub.events[0].(events.SyncCompleted); done.Events != 2 || done.Error != "" {
		t.Errorf("payload = %+v", done)
	}
}

func TestRunOnce_SourceError(t *testing.T) {
	dest := &mockDestination{}
	pub := &recordingPublisher{}
	s := &Syncer{
		Source:       &mockSource{err: errors.New("HTTP 500: down")},
		Destinations: []Destination{dest},
		Publisher:    pub,
		Logger:       testLogger(),
	}
	if _, err := s.RunOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "fetch events") {
		t.Fatalf("err = %v", err)
	}
	if dest.writes.Load() != 0 {
		t.Error("destination written after fetch failure")
	}
	if done := pub.events[0].(events.SyncCompleted); done.Error == "" {
		t.Error("failure not reported in notification")
	}
}

func TestRunOnce_MirrorFailureRollsBackAndContinues(t *testing.T) {
	mirror := newMockMirror()
	mirror.rows["old"] = model.Event{ID: "old"}
	mirror.upsertErr = errors.New("disk full")
	dest := &mockDestination{}

	s := &Syncer{
		Source:       &mockSource{events: sampleEvents()},
		Mirror:       mirror,
		Destinations: []Destination{dest},
		Logger:       testLogger(),
	}
	res, err := s.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
	if _, ok := mirror.rows["old"]; !ok || len(mirror.rows) != 1 {
		t.Errorf("mirror changed despite failure: %v", mirror.rows)
	}
	if dest.writes.Load() != 1 || res.Events != 2 {
		t.Errorf("snapshot not written after mirror failure (writes %d)", dest.writes.Load())
	}
}

func TestRunOnce_DestinationErrorsJoined(t *testing.T) {
	good := &mockDestination{}
	s := &Syncer{
		Source:       &mockSource{events: sampleEvents()},
		Destinations: []Destination{errDestination{}, good, &FileDestination{Path: filepath.Join(t.TempDir(), "snap.jsonl")}},
		Logger:       testLogger(),
	}
	_, err := s.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bucket gone") || !strings.Contains(err.Error(), "destination 0") {
		t.Fatalf("err = %v", err)
	}
	if good.writes.Load() != 1 {
		t.Error("later destinations skipped after a failure")
	}
}

func TestFileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup", "events.jsonl")
	d := &FileDestination{Path: path}
	for _, content := range []string{"first\n", "second\n"} {
		if err := d.Write(context.Background(), []byte(content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != content {
			t.Errorf("file = %q, want %q", got, content)
		}
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
	if d.String() != path {
		t.Errorf("String() = %q", d.String())
	}
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	if _, err := NewScheduler(&Syncer{}, "every now and then", testLogger()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{}
	s := &Syncer{
		Source:       &mockSource{events: sampleEvents()},
		Destinations: []Destination{dest},
		Logger:       testLogger(),
	}
	sched, err := NewScheduler(s, "@every 1h", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	sched.Start()

	// The initial run happens right away.
	deadline := time.Now().Add(2 * time.Second)
	for dest.writes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	sched.Stop()

	if writes := dest.writes.Load(); writes != 1 {
		t.Fatalf("expected 1 write, got %d", writes)
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched, err := NewScheduler(&Syncer{}, "@every 5m", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerTrigger(t *testing.T) {
	dest := &mockDestination{}
	s := &Syncer{
		Source:       &mockSource{events: sampleEvents()},
		Destinations: []Destination{dest},
		Logger:       testLogger(),
	}
	sched, err := NewScheduler(s, "@every 1h", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	res, err := sched.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res.Events != 2 || dest.writes.Load() != 1 {
		t.Errorf("result = %+v, writes = %d", res, dest.writes.Load())
	}
}
