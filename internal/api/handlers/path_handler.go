package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/growthpath/growthpath-be/internal/services"
)

// PathHandler handles HTTP requests for the path catalog.
type PathHandler struct {
	errorResponder
	service services.PathServiceProvider
}

// NewPathHandler creates a new PathHandler.
func NewPathHandler(service services.PathServiceProvider, reporter ErrorReporter) *PathHandler {
	return &PathHandler{errorResponder: errorResponder{reporter: reporter}, service: service}
}

// Search lists paths filtered by ?q= and ?category=.
func (h *PathHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paths, err := h.service.SearchPaths(r.Context(), q.Get("q"), q.Get("category"))
	if err != nil {
		h.fail(w, r, "path.search", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"paths": paths})
}

// Get returns a single path by id or slug.
func (h *PathHandler) Get(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.GetPath(r.Context(), chi.URLParam(r, "pathId"))
	if err != nil {
		h.fail(w, r, "path.get", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"path": path})
}
