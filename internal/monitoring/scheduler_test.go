package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePruner struct {
	calls     int
	retention time.Duration
	err       error
}

func (f *fakePruner) PruneEvents(_ context.Context, olderThan time.Duration) (int64, error) {
	f.calls++
	f.retention = olderThan
	return 3, f.err
}

type fakeReporter struct {
	errs []error
}

func (f *fakeReporter) CaptureException(err error) {
	f.errs = append(f.errs, err)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler(&fakePruner{}, "every day", time.Hour, nil); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestPruneEvents(t *testing.T) {
	pruner := &fakePruner{}
	reporter := &fakeReporter{}
	s, err := NewScheduler(pruner, "0 3 * * *", 90*24*time.Hour, reporter)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	s.PruneEvents()
	if pruner.calls != 1 || pruner.retention != 90*24*time.Hour {
		t.Errorf("pruner called %d times with %s", pruner.calls, pruner.retention)
	}
	if len(reporter.errs) != 0 {
		t.Errorf("unexpected reported errors: %v", reporter.errs)
	}

	pruner.err = errors.New("db down")
	s.PruneEvents()
	if len(reporter.errs) != 1 {
		t.Errorf("expected the failure to be reported, got %v", reporter.errs)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s, err := NewScheduler(&fakePruner{}, "0 3 * * *", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	s.Start()

	deadline := time.Now().Add(time.Second)
	for s.Next().IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	next := s.Next()
	if next.IsZero() || next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("Next() = %s, want the next 03:00", next)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
