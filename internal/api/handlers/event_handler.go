package handlers

import (
	"net/http"
	"strconv"

	"github.com/growthpath/growthpath-be/internal/services"
)

// EventHandler handles HTTP requests for the activity feed.
type EventHandler struct {
	errorResponder
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider, reporter ErrorReporter) *EventHandler {
	return &EventHandler{errorResponder: errorResponder{reporter: reporter}, service: service}
}

// GetRecent handles the request to get the caller's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = services.DefaultEventLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), caller.ID, limit)
	if err != nil {
		h.fail(w, r, "user.activity", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"events": events})
}
