package monitoring

import (
	"testing"
	"time"
)

func TestStatUpdaterSample(t *testing.T) {
	su, err := NewStatUpdater(time.Hour)
	if err != nil {
		t.Fatalf("NewStatUpdater() error = %v", err)
	}
	if !su.Snapshot().SampledAt.IsZero() {
		t.Fatal("expected an empty snapshot before sampling")
	}

	su.Sample()
	stats := su.Snapshot()
	if stats.SampledAt.IsZero() {
		t.Error("SampledAt not set")
	}
	if stats.Goroutines <= 0 {
		t.Errorf("Goroutines = %d", stats.Goroutines)
	}
}

func TestStatUpdaterRunStop(t *testing.T) {
	su, err := NewStatUpdater(time.Hour)
	if err != nil {
		t.Fatalf("NewStatUpdater() error = %v", err)
	}

	finished := make(chan struct{})
	go func() {
		su.Run()
		close(finished)
	}()
	su.Stop()
	su.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if su.Snapshot().SampledAt.IsZero() {
		t.Error("Run should sample once on start")
	}
}
