package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/growthpath/growthpath-be/internal/auth"
	"github.com/growthpath/growthpath-be/internal/models"
	"github.com/growthpath/growthpath-be/internal/repository"
	"github.com/growthpath/growthpath-be/internal/services"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// ErrorReporter receives unexpected errors raised while serving a request.
type ErrorReporter interface {
	CaptureRequestError(r *http.Request, op string, err error)
}

var notFoundMessages = map[string]string{
	"user":  "User not found",
	"child": "Child not found",
	"path":  "Path not found",
}

// errorResponder translates service errors into the JSON error envelope.
type errorResponder struct {
	reporter ErrorReporter
}

// fail writes the response for err. op names the operation as
// "<resource>.<action>" and picks the not-found message.
func (e errorResponder) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrEmailTaken):
		respondWithError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, repository.ErrNotFound):
		resource, _, _ := strings.Cut(op, ".")
		msg, ok := notFoundMessages[resource]
		if !ok {
			msg = "Not found"
		}
		respondWithError(w, http.StatusNotFound, msg)
	default:
		log.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("Request failed")
		if e.reporter != nil {
			e.reporter.CaptureRequestError(r, op, err)
		}
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// respondJSON writes payload with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondSuccess writes {"status":"success", ...fields}.
func respondSuccess(w http.ResponseWriter, status int, fields map[string]interface{}) {
	body := map[string]interface{}{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	respondJSON(w, status, body)
}

// respondWithError writes {"status":"error","message":...}.
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"status": "error", "message": message})
}

// decodeJSON reads a bounded JSON body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		err = errEmptyBody
	}
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Invalid request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// identity returns the caller resolved by the session middleware, writing a
// 401 when it is missing.
func identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}
