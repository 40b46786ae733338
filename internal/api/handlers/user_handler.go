package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/growthpath/growthpath-be/internal/auth"
	"github.com/growthpath/growthpath-be/internal/models"
	"github.com/growthpath/growthpath-be/internal/services"
	"github.com/rs/zerolog/log"
)

// SessionManager mints session tokens and resolves them from requests.
type SessionManager interface {
	Issue(identity models.Identity) (string, time.Time, error)
	Resolve(r *http.Request) (models.Identity, bool)
}

// UserHandler handles HTTP requests for accounts, sessions and profiles.
type UserHandler struct {
	errorResponder
	service      services.UserServiceProvider
	sessions     SessionManager
	cookieSecure bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, sessions SessionManager, cookieSecure bool, reporter ErrorReporter) *UserHandler {
	return &UserHandler{
		errorResponder: errorResponder{reporter: reporter},
		service:        service,
		sessions:       sessions,
		cookieSecure:   cookieSecure,
	}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name          string                `json:"name"`
	FirstName     string                `json:"firstName"` // accepted as an alias of name
	FamilyName    string                `json:"familyName"`
	Email         string                `json:"email"`
	Password      string                `json:"password"`
	Children      []services.ChildInput `json:"children"`
	SelectedPaths []string              `json:"selectedPaths"`
}

// Register handles new user registration, including onboarding children.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	name := payload.Name
	if name == "" {
		name = payload.FirstName
	}

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		Name:          name,
		FamilyName:    payload.FamilyName,
		Email:         payload.Email,
		Password:      payload.Password,
		Children:      payload.Children,
		SelectedPaths: payload.SelectedPaths,
	})
	if err != nil {
		h.fail(w, r, "user.register", err)
		return
	}

	respondSuccess(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"userId":  user.ID.Hex(),
	})
}

// Login verifies credentials and sets the session cookie.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("email", models.NormalizeEmail(payload.Email)).Msg("Failed authentication attempt")
		}
		h.fail(w, r, "user.login", err)
		return
	}

	token, expiresAt, err := h.sessions.Issue(user)
	if err != nil {
		h.fail(w, r, "user.login", err)
		return
	}
	auth.SetSessionCookie(w, token, expiresAt, h.cookieSecure)

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"user":      user,
		"expiresAt": expiresAt.UTC(),
	})
}

// Logout clears the session cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieSecure)
	respondSuccess(w, http.StatusOK, map[string]interface{}{"message": "Logged out"})
}

// Session reports whether the request carries a valid session for an
// existing user.
func (h *UserHandler) Session(w http.ResponseWriter, r *http.Request) {
	claimed, ok := h.sessions.Resolve(r)
	if !ok {
		respondSuccess(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}

	current, err := h.service.GetIdentity(r.Context(), claimed.ID)
	if err != nil {
		log.Debug().Err(err).Str("user_id", claimed.ID).Msg("Session refers to an unknown user")
		respondSuccess(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          current,
	})
}

// GetProfile returns the signed-in user's profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	profile, err := h.service.GetProfile(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, "user.profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles updating the signed-in user's profile information.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var payload services.ProfileInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), caller.ID, payload)
	if err != nil {
		h.fail(w, r, "user.update", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"user": profile})
}

// ChangePassword handles changing the signed-in user's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), caller.ID, payload.CurrentPassword, payload.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		h.fail(w, r, "user.password", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"message": "Password updated successfully"})
}
