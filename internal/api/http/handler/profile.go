package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// DirectoryService defines account directory operations.
type DirectoryService interface {
	ListAll(ctx context.Context) ([]model.Profile, error)
	ListAdmins(ctx context.Context) ([]model.Profile, error)
	Update(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.Profile, error)
}

// Profile handles the caller's own profile.
type Profile struct {
	directory      DirectoryService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewProfile(directory DirectoryService, contextManager model.ContextManager, logger *logger.Logger) *Profile {
	return &Profile{directory: directory, contextManager: contextManager, logger: logger}
}

type updateProfileRequest struct {
	Name *string `json:"name"`
}

// Me returns the caller's profile as resolved by the authentication middleware.
func (h *Profile) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.contextManager.GetProfileFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrInvalidCredentials)
		return
	}

	WriteJSON(w, http.StatusOK, toProfileResponse(caller))
}

// UpdateMe changes the caller's display name. Documents keep the name they were uploaded with.
func (h *Profile) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.contextManager.GetProfileFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrInvalidCredentials)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	updated, err := h.directory.Update(r.Context(), caller.ID, model.ProfilePatch{Name: req.Name})
	if err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Info("Profile handler: profile updated",
		"user_id", caller.ID)

	WriteJSON(w, http.StatusOK, toProfileResponse(updated))
}
