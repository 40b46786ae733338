// Package sentry reports unexpected server errors to Sentry. Without a DSN
// every method is a no-op.
package sentry

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// SentryService provides Sentry error tracking functionality.
type SentryService struct {
	initialized bool
}

// NewSentryService initializes the Sentry client for dsn. An empty dsn or a
// failed initialization yields a disabled service.
func NewSentryService(dsn, environment string) *SentryService {
	if dsn == "" {
		log.Info().Msg("SENTRY_DSN not set, Sentry disabled")
		return &SentryService{}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		log.Error().Err(err).Msg("Sentry initialization failed")
		return &SentryService{}
	}

	log.Info().Str("environment", environment).Msg("Sentry initialized")
	return &SentryService{initialized: true}
}

// Enabled reports whether events are being sent.
func (s *SentryService) Enabled() bool {
	return s != nil && s.initialized
}

// CaptureRequestError reports err raised while serving r, tagged with the
// operation and the chi request id.
func (s *SentryService) CaptureRequestError(r *http.Request, op string, err error) {
	if !s.Enabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", op)
		scope.SetTag("method", r.Method)
		scope.SetTag("path", r.URL.Path)
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureException(err)
	})
}

// CaptureException reports an error raised outside a request.
func (s *SentryService) CaptureException(err error) {
	if !s.Enabled() {
		return
	}
	sentry.CaptureException(err)
}

// Flush waits up to timeout for queued events to be sent.
func (s *SentryService) Flush(timeout time.Duration) bool {
	if !s.Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}
