package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/glasshq/glass-server/internal/api/middleware"
	"github.com/glasshq/glass-server/internal/domain"
	"github.com/glasshq/glass-server/internal/storage"
)

// ProfileHandler handles the caller's own profile.
type ProfileHandler struct {
	store  storage.Storage
	logger *logrus.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(store storage.Storage, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

// Me upserts the caller's profile from their token claims and returns
// it. First login creates the row; later logins refresh email and name.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	profile, err := h.store.UpsertProfile(r.Context(), &domain.Profile{
		Subject: identity.Subject,
		Email:   identity.Email,
		Name:    identity.Name,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
