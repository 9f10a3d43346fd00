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

// TeamHandler handles team CRUD operations.
type TeamHandler struct {
	store  storage.Storage
	logger *logrus.Logger
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(store storage.Storage, logger *logrus.Logger) *TeamHandler {
	return &TeamHandler{store: store, logger: logger}
}

// List returns all teams, filtered to visible ones for non-admins.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var (
		teams []*domain.Team
		err   error
	)
	if identity != nil && identity.Admin {
		teams, err = h.store.ListTeams(r.Context())
	} else {
		teams, err = h.store.ListVisibleTeams(r.Context())
	}
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, teams)
}

// Get returns a single team by id.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	team, err := h.store.GetTeam(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}

// Mine returns the teams owned by the authenticated caller.
func (h *TeamHandler) Mine(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	teams, err := h.store.ListTeamsByOwner(r.Context(), identity.Subject)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, teams)
}

// ListByLab returns the teams linked to a lab. The lab must exist.
func (h *TeamHandler) ListByLab(w http.ResponseWriter, r *http.Request) {
	labID, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if _, err := h.store.GetLab(r.Context(), labID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	teams, err := h.store.ListTeamsByLab(r.Context(), labID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, teams)
}

// Create creates a new team owned by the authenticated caller.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := validation.ValidateCreateTeam(&req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	identity := middleware.GetIdentity(r.Context())

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	team := &domain.Team{
		OwnerID:     identity.Subject,
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
		Visible:     domain.Flag(visible),
		Members:     req.Members,
		FocusAreas:  req.FocusAreas,
		Photos:      req.Photos,
	}

	created, err := h.store.CreateTeam(r.Context(), team)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// Update applies a partial update to a team. Only the owner or an admin
// may modify a team.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req domain.UpdateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := validation.ValidateUpdateTeam(&req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.authorizeTeam(r, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	updated, err := h.store.UpdateTeam(r.Context(), id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete removes a team, its child collections, and its lab links.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.authorizeTeam(r, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.store.DeleteTeam(r.Context(), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorizeTeam verifies the caller owns the team or is an admin.
func (h *TeamHandler) authorizeTeam(r *http.Request, id int64) error {
	identity := middleware.GetIdentity(r.Context())
	if identity.Admin {
		return nil
	}

	team, err := h.store.GetTeam(r.Context(), id)
	if err != nil {
		return err
	}
	if team.OwnerID != identity.Subject {
		return fmt.Errorf("%w: not the team owner", domain.ErrForbidden)
	}
	return nil
}
