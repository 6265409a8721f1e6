package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/beliefatlas/apiserver/internal/services"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// PrivacyHandler exposes the profile-data deletion action behind the
// privacy controls.
type PrivacyHandler struct {
	privacyService *services.PrivacyService
	userService    *services.UserService
}

func NewPrivacyHandler(privacyService *services.PrivacyService, userService *services.UserService) *PrivacyHandler {
	return &PrivacyHandler{
		privacyService: privacyService,
		userService:    userService,
	}
}

// PrivacyRouter registers privacy routes on the given router.
func PrivacyRouter(r chi.Router, privacyService *services.PrivacyService, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPrivacyHandler(privacyService, userService)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Delete("/me/profile-data", handler.DeleteMyProfileData)
	r.With(handler.requireAdmin).Delete("/{userID}/profile-data", handler.DeleteUserProfileData)
}

// DeleteMyProfileData erases the caller's profile, survey responses,
// and avatar.
func (h *PrivacyHandler) DeleteMyProfileData(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.privacyService.DeleteProfileData(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete profile data")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteUserProfileData lets an admin erase another user's data.
func (h *PrivacyHandler) DeleteUserProfileData(w http.ResponseWriter, r *http.Request) {
	targetID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if targetID == "" {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.privacyService.DeleteProfileData(r.Context(), targetID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete profile data")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PrivacyHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if user.Role != types.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
