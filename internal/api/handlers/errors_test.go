package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/growthpath/growthpath-be/internal/auth"
	"github.com/growthpath/growthpath-be/internal/models"
	"github.com/growthpath/growthpath-be/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type capturingReporter struct {
	ops  []string
	errs []error
}

func (c *capturingReporter) CaptureRequestError(_ *http.Request, op string, err error) {
	c.ops = append(c.ops, op)
	c.errs = append(c.errs, err)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %q", rec.Body.String())
	}
	return body
}

func TestErrorResponderMapping(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		err     error
		status  int
		message string
	}{
		{"validation", "child.create", services.ValidationError{Field: "name", Message: "name is required"}, http.StatusBadRequest, "name is required"},
		{"wrapped validation", "user.register", fmt.Errorf("register: %w", services.ValidationError{Field: "email", Message: "email is invalid"}), http.StatusBadRequest, "email is invalid"},
		{"credentials", "user.login", services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"conflict", "user.register", services.ErrEmailTaken, http.StatusConflict, "Email already registered"},
		{"child not found", "child.get", services.ErrNotFound, http.StatusNotFound, "Child not found"},
		{"path not found", "path.get", fmt.Errorf("lookup: %w", services.ErrNotFound), http.StatusNotFound, "Path not found"},
		{"user not found", "user.profile", services.ErrNotFound, http.StatusNotFound, "User not found"},
		{"unknown resource", "event.list", services.ErrNotFound, http.StatusNotFound, "Not found"},
		{"unexpected", "child.list", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/user/children", nil)

			errorResponder{}.fail(rec, req, tt.op, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			body := decodeBody(t, rec)
			if body["status"] != "error" || body["message"] != tt.message {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestErrorResponderReportsOnlyUnexpectedErrors(t *testing.T) {
	reporter := &capturingReporter{}
	responder := errorResponder{reporter: reporter}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/paths", nil)

	responder.fail(httptest.NewRecorder(), req, "path.search", services.ErrNotFound)
	responder.fail(httptest.NewRecorder(), req, "user.login", services.ErrInvalidCredentials)
	if len(reporter.ops) != 0 {
		t.Fatalf("expected no reports for expected errors, got %v", reporter.ops)
	}

	boom := errors.New("boom")
	responder.fail(httptest.NewRecorder(), req, "path.search", boom)
	if len(reporter.ops) != 1 || reporter.ops[0] != "path.search" || !errors.Is(reporter.errs[0], boom) {
		t.Errorf("unexpected reports %v %v", reporter.ops, reporter.errs)
	}
}

func TestErrorResponderLogsUnexpectedErrors(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = original }()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/activity", nil)
	errorResponder{}.fail(httptest.NewRecorder(), req, "event.list", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "boom") || !strings.Contains(out, "event.list") {
		t.Fatalf("expected log to include error and op, got %q", out)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"name":"Leo"}`, true},
		{"empty", ``, false},
		{"malformed", `{"name":`, false},
		{"oversized", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst struct {
				Name string `json:"name"`
			}
			if got := decodeJSON(rec, req, &dst); got != tt.ok {
				t.Fatalf("decodeJSON() = %v, want %v", got, tt.ok)
			}
			if !tt.ok && rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			if tt.ok && dst.Name != "Leo" {
				t.Errorf("decoded name = %q", dst.Name)
			}
		})
	}
}

func TestRespondSuccessAddsStatus(t *testing.T) {
	rec := httptest.NewRecorder()

	respondSuccess(rec, http.StatusCreated, map[string]interface{}{"message": "created"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeBody(t, rec)
	if body["status"] != "success" || body["message"] != "created" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestIdentityRequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := identity(rec, req); ok {
		t.Fatal("identity() should fail without a session")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	want := models.Identity{ID: "65f1c0ffee0000000000abcd", Email: "ann@x.com"}
	req = req.WithContext(auth.WithIdentity(req.Context(), want))
	got, ok := identity(rec, req)
	if !ok || got != want {
		t.Errorf("identity() = %+v, %v", got, ok)
	}
}
