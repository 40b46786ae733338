package sentry

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDisabledServiceIsNoop(t *testing.T) {
	tests := []struct {
		name string
		svc  *SentryService
	}{
		{"empty dsn", NewSentryService("", "test")},
		{"invalid dsn", NewSentryService("not a dsn", "test")},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.svc.Enabled() {
				t.Fatal("expected service to be disabled")
			}
			tt.svc.CaptureRequestError(httptest.NewRequest("GET", "/health", nil), "health.check", errors.New("boom"))
			tt.svc.CaptureException(errors.New("boom"))
			if !tt.svc.Flush(time.Millisecond) {
				t.Error("Flush() on a disabled service should report success")
			}
		})
	}
}
