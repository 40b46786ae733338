package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const pruneTimeout = 5 * time.Minute

// EventPruner deletes activity events older than a retention window.
type EventPruner interface {
	PruneEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ErrorReporter receives failures from background jobs.
type ErrorReporter interface {
	CaptureException(err error)
}

// Scheduler runs the background maintenance jobs on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	pruner    EventPruner
	retention time.Duration
	reporter  ErrorReporter
}

// NewScheduler creates a scheduler that prunes events older than retention on
// the standard five-field cron spec. reporter may be nil.
func NewScheduler(pruner EventPruner, spec string, retention time.Duration, reporter ErrorReporter) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		pruner:    pruner,
		retention: retention,
		reporter:  reporter,
	}
	if _, err := s.cron.AddFunc(spec, s.PruneEvents); err != nil {
		return nil, fmt.Errorf("invalid event prune schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Starting background scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	log.Info().Msg("Stopping background scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Background job still running at shutdown")
	}
}

// Next reports when the prune job runs next. It is zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// PruneEvents deletes events past the retention window.
func (s *Scheduler) PruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	deleted, err := s.pruner.PruneEvents(ctx, s.retention)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune events")
		if s.reporter != nil {
			s.reporter.CaptureException(err)
		}
		return
	}
	log.Info().Int64("deleted", deleted).Dur("retention", s.retention).Msg("Scheduler: pruned old events")
}
