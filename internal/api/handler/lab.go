package handler

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/glasshq/glass-server/internal/api/middleware"
	"github.com/glasshq/glass-server/internal/domain"
	"github.com/glasshq/glass-server/internal/storage"
	"github.com/glasshq/glass-server/internal/validation"
)

// LabHandler handles lab CRUD operations.
type LabHandler struct {
	store  storage.Storage
	logger *logrus.Logger
}

// NewLabHandler creates a new lab handler.
func NewLabHandler(store storage.Storage, logger *logrus.Logger) *LabHandler {
	return &LabHandler{store: store, logger: logger}
}

// List returns all labs. Admin callers see every lab; everyone else
// only sees visible ones.
func (h *LabHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var (
		labs []*domain.Lab
		err  error
	)
	if identity != nil && identity.Admin {
		labs, err = h.store.ListLabs(r.Context())
	} else {
		labs, err = h.store.ListVisibleLabs(r.Context())
	}
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, labs)
}

// Get returns a single lab by id.
func (h *LabHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	lab, err := h.store.GetLab(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, lab)
}

// Mine returns the labs owned by the authenticated caller.
func (h *LabHandler) Mine(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	labs, err := h.store.ListLabsByOwner(r.Context(), identity.Subject)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, labs)
}

// ListByTeam returns the labs linked to a team. The team must exist.
func (h *LabHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if _, err := h.store.GetTeam(r.Context(), teamID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	labs, err := h.store.ListLabsByTeam(r.Context(), teamID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, labs)
}

// Create creates a new lab owned by the authenticated caller.
func (h *LabHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLabRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := validation.ValidateCreateLab(&req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	identity := middleware.GetIdentity(r.Context())

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	lab := &domain.Lab{
		OwnerID:     identity.Subject,
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
		Location:    req.Location,
		LogoURL:     req.LogoURL,
		Visible:     domain.Flag(visible),
		Photos:      req.Photos,
		Equipment:   domain.BuildEquipment(req.Equipment, req.PriorityEquipment),
		Techniques:  req.Techniques,
		TeamIDs:     req.TeamIDs,
	}

	created, err := h.store.CreateLab(r.Context(), lab)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// Update applies a partial update to a lab. Only the owner or an admin
// may modify a lab.
func (h *LabHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req domain.UpdateLabRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := validation.ValidateUpdateLab(&req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.authorizeLab(r, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	updated, err := h.store.UpdateLab(r.Context(), id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete removes a lab and its child collections.
func (h *LabHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.authorizeLab(r, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.store.DeleteLab(r.Context(), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorizeLab verifies the caller owns the lab or is an admin.
func (h *LabHandler) authorizeLab(r *http.Request, id int64) error {
	identity := middleware.GetIdentity(r.Context())
	if identity.Admin {
		return nil
	}

	lab, err := h.store.GetLab(r.Context(), id)
	if err != nil {
		return err
	}
	if lab.OwnerID != identity.Subject {
		return fmt.Errorf("%w: not the lab owner", domain.ErrForbidden)
	}
	return nil
}
