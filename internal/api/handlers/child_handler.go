package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/growthpath/growthpath-be/internal/services"
)

// ChildHandler handles HTTP requests for the signed-in user's children.
type ChildHandler struct {
	errorResponder
	service services.ChildServiceProvider
}

// NewChildHandler creates a new ChildHandler.
func NewChildHandler(service services.ChildServiceProvider, reporter ErrorReporter) *ChildHandler {
	return &ChildHandler{errorResponder: errorResponder{reporter: reporter}, service: service}
}

// GetAll lists the user's children.
func (h *ChildHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	children, err := h.service.ListChildren(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, "user.children", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"children": children})
}

// Create adds a child profile.
func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var payload services.ChildInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	child, err := h.service.CreateChild(r.Context(), caller.ID, payload)
	if err != nil {
		h.fail(w, r, "child.create", err)
		return
	}
	respondSuccess(w, http.StatusCreated, map[string]interface{}{"child": child})
}

// DeleteFromBody removes the child named by {"childId": ...} in the body.
func (h *ChildHandler) DeleteFromBody(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var payload struct {
		ChildID string `json:"childId"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.ChildID == "" {
		respondWithError(w, http.StatusBadRequest, "childId is required")
		return
	}
	h.delete(w, r, caller.ID, payload.ChildID)
}

// Get returns one child.
func (h *ChildHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	child, err := h.service.GetChild(r.Context(), caller.ID, chi.URLParam(r, "childId"))
	if err != nil {
		h.fail(w, r, "child.get", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"child": child})
}

// Update replaces a child's name, gender and birthday.
func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var payload services.ChildInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	child, err := h.service.UpdateChild(r.Context(), caller.ID, chi.URLParam(r, "childId"), payload)
	if err != nil {
		h.fail(w, r, "child.update", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"child": child})
}

// Delete removes a child and all of its enrollments.
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	h.delete(w, r, caller.ID, chi.URLParam(r, "childId"))
}

func (h *ChildHandler) delete(w http.ResponseWriter, r *http.Request, userID, childID string) {
	if err := h.service.DeleteChild(r.Context(), userID, childID); err != nil {
		h.fail(w, r, "child.delete", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"message": "Child deleted successfully"})
}

// GetPaths lists the paths a child is enrolled in.
func (h *ChildHandler) GetPaths(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	paths, err := h.service.GetChildPaths(r.Context(), caller.ID, chi.URLParam(r, "childId"))
	if err != nil {
		h.fail(w, r, "child.paths", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"paths": paths})
}

// GetSkills lists the age-appropriate skills across a child's paths.
func (h *ChildHandler) GetSkills(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	skills, err := h.service.GetChildSkills(r.Context(), caller.ID, chi.URLParam(r, "childId"))
	if err != nil {
		h.fail(w, r, "child.skills", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"skills": skills})
}

// Enroll assigns a path to a child.
func (h *ChildHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	path, err := h.service.EnrollChild(r.Context(), caller.ID, chi.URLParam(r, "childId"), chi.URLParam(r, "pathId"))
	if err != nil {
		h.fail(w, r, "child.enroll", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"path": path})
}

// Unenroll removes a path from a child.
func (h *ChildHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.service.UnenrollChild(r.Context(), caller.ID, chi.URLParam(r, "childId"), chi.URLParam(r, "pathId")); err != nil {
		h.fail(w, r, "child.unenroll", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"message": "Path removed"})
}
