package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/glasshq/glass-server/internal/domain"
	"github.com/glasshq/glass-server/internal/storage"
)

// APIKeyHandler handles API key management. All routes are admin-only.
type APIKeyHandler struct {
	store  storage.Storage
	logger *logrus.Logger
}

// NewAPIKeyHandler creates a new API key handler.
func NewAPIKeyHandler(store storage.Storage, logger *logrus.Logger) *APIKeyHandler {
	return &APIKeyHandler{store: store, logger: logger}
}

// Create mints a new API key. The plaintext key appears only in this
// response; the store keeps a hash.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	key, err := generateAPIKey()
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	apiKey := &domain.APIKey{
		ID:        uuid.NewString(),
		Name:      req.Name,
		KeyHash:   hashAPIKey(key),
		KeyPrefix: key[:12],
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.CreateAPIKey(r.Context(), apiKey); err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, domain.CreateAPIKeyResponse{
		ID:        apiKey.ID,
		Name:      apiKey.Name,
		Key:       key,
		KeyPrefix: apiKey.KeyPrefix,
		CreatedAt: apiKey.CreatedAt,
	})
}

// List returns all API keys without their hashes.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, keys)
}

// Delete revokes an API key.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.store.DeleteAPIKey(r.Context(), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
