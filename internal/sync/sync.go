// Package sync copies the content store's events into the local mirror and
// writes JSONL snapshots, once or on a cron schedule.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/store"
)

// Destination is the interface for a snapshot target (S3, file).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Syncer performs one sync run. Source is required; Mirror and
// Destinations are optional.
type Syncer struct {
	Source       store.Reader
	Mirror       store.Store
	Destinations []Destination
	Publisher    events.Publisher
	Metrics      *metrics.Metrics
	Logger       *slog.Logger

	now func() time.Time
}

// Result summarizes a sync run.
type Result struct {
	Events   int           `json:"events"`
	Removed  int64         `json:"removed"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration_ns"`
}

func (s *Syncer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// RunOnce fetches all events from Source, replaces the mirror's contents with
// them and writes a snapshot to every destination. A failing mirror or
// destination does not stop the others; their errors are joined.
func (s *Syncer) RunOnce(ctx context.Context) (*Result, error) {
	start := s.clock()
	res := &Result{}

	evs, err := s.Source.ListEvents(ctx)
	if err != nil {
		err = fmt.Errorf("fetch events: %w", err)
		s.finish(ctx, res, start, err)
		return nil, err
	}
	res.Events = len(evs)

	var errs []error
	if s.Mirror != nil {
		removed, err := s.mirror(ctx, evs)
		if err != nil {
			errs = append(errs, err)
		}
		res.Removed = removed
	}

	if len(s.Destinations) > 0 {
		var buf bytes.Buffer
		if err := ExportJSONL(evs, &buf, start); err != nil {
			errs = append(errs, fmt.Errorf("export: %w", err))
		} else {
			data := buf.Bytes()
			res.Bytes = len(data)
			for i, dest := range s.Destinations {
				if err := dest.Write(ctx, data); err != nil {
					s.logger().Error("sync destination write failed", "destination", destName(i, dest), "err", err)
					errs = append(errs, fmt.Errorf("destination %s: %w", destName(i, dest), err))
				}
			}
		}
	}

	err = errors.Join(errs...)
	s.finish(ctx, res, start, err)
	return res, err
}

func (s *Syncer) mirror(ctx context.Context, evs []model.Event) (int64, error) {
	keep := make([]string, len(evs))
	for i := range evs {
		keep[i] = evs[i].ID
	}
	var removed int64
	err := s.Mirror.RunInTransaction(ctx, func(tx store.Store) error {
		for i := range evs {
			if err := tx.UpsertEvent(ctx, &evs[i]); err != nil {
				return err
			}
		}
		n, err := tx.DeleteEventsExcept(ctx, keep)
		removed = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mirror: %w", err)
	}
	return removed, nil
}

func (s *Syncer) finish(ctx context.Context, res *Result, start time.Time, err error) {
	res.Duration = s.clock().Sub(start)
	s.Metrics.SyncRun(res.Duration, res.Events, err)

	done := events.SyncCompleted{Events: res.Events, Duration: res.Duration}
	if err != nil {
		done.Error = err.Error()
		s.logger().Error("sync failed", "events", res.Events, "duration", res.Duration, "err", err)
	} else {
		s.logger().Info("sync completed", "events", res.Events, "removed", res.Removed,
			"destinations", len(s.Destinations), "bytes", res.Bytes, "duration", res.Duration)
	}
	if s.Publisher != nil {
		if perr := s.Publisher.Publish(ctx, events.TopicSyncCompleted, done); perr != nil {
			s.logger().Warn("publish sync result", "err", perr)
		}
	}
}

func destName(i int, d Destination) string {
	if st, ok := d.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%d", i)
}

// Scheduler runs a Syncer on a cron schedule. Runs never overlap: a tick
// that fires while a run is in progress is skipped, and Trigger waits for
// the current run.
type Scheduler struct {
	syncer *Syncer
	cron   *cron.Cron
	logger *slog.Logger

	mu     stdsync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// NewScheduler creates a scheduler for schedule, which is a standard cron
// expression or a descriptor such as "@every 5m".
func NewScheduler(s *Syncer, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	sched := &Scheduler{
		syncer: s,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}
	sched.ctx, sched.cancel = context.WithCancel(context.Background())
	if _, err := sched.cron.AddFunc(schedule, sched.tick); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return sched, nil
}

// Start runs an initial sync in the background, then follows the schedule.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick()
	}()
	s.cron.Start()
}

// Stop stops the schedule and waits for any run in progress to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// Trigger runs a sync now, waiting for a scheduled run in progress first.
func (s *Scheduler) Trigger(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncer.RunOnce(ctx)
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Errors are logged by RunOnce.
	_, _ = s.syncer.RunOnce(s.ctx)
}
