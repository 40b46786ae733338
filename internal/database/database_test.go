package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientOptions(t *testing.T) {
	o := DefaultOptions("mongodb://localhost:27017", "growthpath")
	opts := ClientOptions(o)

	if opts.MaxPoolSize == nil || *opts.MaxPoolSize != 10 {
		t.Errorf("MaxPoolSize = %v, want 10", opts.MaxPoolSize)
	}
	if opts.MinPoolSize == nil || *opts.MinPoolSize != 5 {
		t.Errorf("MinPoolSize = %v, want 5", opts.MinPoolSize)
	}
	if opts.RetryWrites == nil || !*opts.RetryWrites {
		t.Error("RetryWrites should be enabled")
	}
	if opts.TLSConfig == nil {
		t.Error("TLS should be enabled by default")
	}
	if opts.ServerSelectionTimeout == nil || *opts.ServerSelectionTimeout != 30*time.Second {
		t.Errorf("ServerSelectionTimeout = %v, want 30s", opts.ServerSelectionTimeout)
	}
	if opts.Timeout == nil || *opts.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", opts.Timeout)
	}

	o.TLS = false
	if ClientOptions(o).TLSConfig != nil {
		t.Error("TLS config set although TLS is disabled")
	}
}

func TestConnectorReusesHandle(t *testing.T) {
	var dials atomic.Int32
	c := NewConnector(DefaultOptions("mongodb://example", "test"))
	c.dial = func(ctx context.Context, o Options) (*DB, error) {
		dials.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &DB{}, nil
	}

	var wg sync.WaitGroup
	handles := make([]*DB, 16)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := c.Connect(context.Background())
			if err != nil {
				t.Errorf("Connect() error = %v", err)
				return
			}
			handles[i] = db
		}(i)
	}
	wg.Wait()

	if n := dials.Load(); n != 1 {
		t.Fatalf("dial called %d times, want 1", n)
	}
	for i, h := range handles {
		if h != handles[0] {
			t.Fatalf("handle %d differs from the first handle", i)
		}
	}
}

func TestConnectorDoesNotCacheFailure(t *testing.T) {
	boom := errors.New("no servers")
	attempts := 0
	c := NewConnector(DefaultOptions("mongodb://example", "test"))
	c.dial = func(ctx context.Context, o Options) (*DB, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return &DB{}, nil
	}

	if _, err := c.Connect(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("first Connect() error = %v, want %v", err, boom)
	}
	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("dial attempts = %d, want 2", attempts)
	}
}

func TestOpenRequiresURI(t *testing.T) {
	if _, err := open(context.Background(), Options{Database: "x"}); err == nil {
		t.Error("open() accepted an empty URI")
	}
}
