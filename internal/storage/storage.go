package storage

import (
	"context"

	"github.com/glasshq/glass-server/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
//
// Create and Update make the stored entity and every child collection
// reflect exactly the provided state: named collections are replaced
// wholesale (delete-then-reinsert), unnamed collections are left
// untouched, and the whole write happens atomically where the backend
// supports it. Both re-read and return the fully assembled entity.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Labs
	ListLabs(ctx context.Context) ([]*domain.Lab, error)
	ListVisibleLabs(ctx context.Context) ([]*domain.Lab, error)
	GetLab(ctx context.Context, id int64) (*domain.Lab, error)
	ListLabsByOwner(ctx context.Context, ownerID string) ([]*domain.Lab, error)
	ListLabsByTeam(ctx context.Context, teamID int64) ([]*domain.Lab, error)
	CreateLab(ctx context.Context, lab *domain.Lab) (*domain.Lab, error)
	UpdateLab(ctx context.Context, id int64, upd *domain.UpdateLabRequest) (*domain.Lab, error)
	DeleteLab(ctx context.Context, id int64) error

	// Teams
	ListTeams(ctx context.Context) ([]*domain.Team, error)
	ListVisibleTeams(ctx context.Context) ([]*domain.Team, error)
	GetTeam(ctx context.Context, id int64) (*domain.Team, error)
	ListTeamsByOwner(ctx context.Context, ownerID string) ([]*domain.Team, error)
	ListTeamsByLab(ctx context.Context, labID int64) ([]*domain.Team, error)
	CreateTeam(ctx context.Context, team *domain.Team) (*domain.Team, error)
	UpdateTeam(ctx context.Context, id int64, upd *domain.UpdateTeamRequest) (*domain.Team, error)
	DeleteTeam(ctx context.Context, id int64) error

	// Profiles
	GetProfile(ctx context.Context, subject string) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	SetProfileCustomer(ctx context.Context, subject, customerID string) error
	UpdateSubscriptionByCustomer(ctx context.Context, customerID, status, plan string) error

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context) (int, error)
}
