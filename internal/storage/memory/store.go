// Package memory provides an in-memory implementation of the storage
// interface for testing. Semantics mirror the SQL store: whole-collection
// replacement, max-id+1 assignment, leads-first member ordering, and
// blank photo URLs filtered on read.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/glasshq/glass-server/internal/domain"
)

// Store is an in-memory implementation of the storage interface.
type Store struct {
	mu sync.RWMutex

	labs     map[int64]*domain.Lab
	teams    map[int64]*domain.Team
	profiles map[string]*domain.Profile
	apiKeys  map[string]*domain.APIKey
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		labs:     make(map[int64]*domain.Lab),
		teams:    make(map[int64]*domain.Team),
		profiles: make(map[string]*domain.Profile),
		apiKeys:  make(map[string]*domain.APIKey),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// Helpers
// ============================================

func nextID[V any](m map[int64]V) int64 {
	var max int64
	for id := range m {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func filterPhotos(photos []domain.Photo) []domain.Photo {
	out := make([]domain.Photo, 0, len(photos))
	for _, p := range photos {
		if strings.TrimSpace(p.URL) != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortMembers(members []domain.Member) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Lead != members[j].Lead {
			return bool(members[i].Lead)
		}
		return members[i].Name < members[j].Name
	})
}

// cloneLab returns a presentation copy: filtered photos, non-nil
// collections, independent slices.
func cloneLab(lab *domain.Lab) *domain.Lab {
	out := *lab
	out.Photos = filterPhotos(lab.Photos)
	out.Equipment = append([]domain.EquipmentItem{}, lab.Equipment...)
	out.Techniques = append([]domain.Technique{}, lab.Techniques...)
	out.TeamIDs = append([]int64{}, lab.TeamIDs...)
	return &out
}

func cloneTeam(team *domain.Team) *domain.Team {
	out := *team
	out.Members = append([]domain.Member{}, team.Members...)
	sortMembers(out.Members)
	out.FocusAreas = append([]string{}, team.FocusAreas...)
	out.Photos = filterPhotos(team.Photos)
	return &out
}

func cloneProfile(profile *domain.Profile) *domain.Profile {
	out := *profile
	return &out
}

// ============================================
// Labs
// ============================================

func (s *Store) ListLabs(ctx context.Context) ([]*domain.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLabs(func(*domain.Lab) bool { return true }), nil
}

func (s *Store) ListVisibleLabs(ctx context.Context) ([]*domain.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLabs(func(lab *domain.Lab) bool { return bool(lab.Visible) }), nil
}

func (s *Store) ListLabsByOwner(ctx context.Context, ownerID string) ([]*domain.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLabs(func(lab *domain.Lab) bool { return lab.OwnerID == ownerID }), nil
}

func (s *Store) ListLabsByTeam(ctx context.Context, teamID int64) ([]*domain.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLabs(func(lab *domain.Lab) bool {
		for _, id := range lab.TeamIDs {
			if id == teamID {
				return true
			}
		}
		return false
	}), nil
}

// collectLabs returns matching labs ordered by id ascending.
// Callers must hold the lock.
func (s *Store) collectLabs(match func(*domain.Lab) bool) []*domain.Lab {
	labs := []*domain.Lab{}
	for _, lab := range s.labs {
		if match(lab) {
			labs = append(labs, cloneLab(lab))
		}
	}
	sort.Slice(labs, func(i, j int) bool { return labs[i].ID < labs[j].ID })
	return labs
}

func (s *Store) GetLab(ctx context.Context, id int64) (*domain.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lab, ok := s.labs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneLab(lab), nil
}

func (s *Store) CreateLab(ctx context.Context, lab *domain.Lab) (*domain.Lab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneLab(lab)
	stored.Photos = append([]domain.Photo{}, lab.Photos...)
	stored.ID = nextID(s.labs)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.labs[stored.ID] = stored

	return cloneLab(stored), nil
}

func (s *Store) UpdateLab(ctx context.Context, id int64, upd *domain.UpdateLabRequest) (*domain.Lab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lab, ok := s.labs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	if upd.Name != nil {
		lab.Name = *upd.Name
	}
	if upd.Description != nil {
		lab.Description = *upd.Description
	}
	if upd.Website != nil {
		lab.Website = *upd.Website
	}
	if upd.Location != nil {
		lab.Location = *upd.Location
	}
	if upd.LogoURL != nil {
		lab.LogoURL = *upd.LogoURL
	}
	if upd.Visible != nil {
		lab.Visible = domain.Flag(*upd.Visible)
	}
	if upd.Photos != nil {
		lab.Photos = append([]domain.Photo{}, upd.Photos...)
	}
	if upd.Equipment != nil {
		lab.Equipment = domain.BuildEquipment(upd.Equipment, upd.PriorityEquipment)
	}
	if upd.Techniques != nil {
		lab.Techniques = append([]domain.Technique{}, upd.Techniques...)
	}
	if upd.TeamIDs != nil {
		lab.TeamIDs = append([]int64{}, upd.TeamIDs...)
	}
	lab.UpdatedAt = time.Now().UTC()

	return cloneLab(lab), nil
}

func (s *Store) DeleteLab(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.labs, id)
	return nil
}

// ============================================
// Teams
// ============================================

func (s *Store) ListTeams(ctx context.Context) ([]*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTeams(func(*domain.Team) bool { return true }), nil
}

func (s *Store) ListVisibleTeams(ctx context.Context) ([]*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTeams(func(team *domain.Team) bool { return bool(team.Visible) }), nil
}

func (s *Store) ListTeamsByOwner(ctx context.Context, ownerID string) ([]*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTeams(func(team *domain.Team) bool { return team.OwnerID == ownerID }), nil
}

func (s *Store) ListTeamsByLab(ctx context.Context, labID int64) ([]*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lab, ok := s.labs[labID]
	if !ok {
		return []*domain.Team{}, nil
	}
	linked := make(map[int64]bool, len(lab.TeamIDs))
	for _, id := range lab.TeamIDs {
		linked[id] = true
	}
	return s.collectTeams(func(team *domain.Team) bool { return linked[team.ID] }), nil
}

func (s *Store) collectTeams(match func(*domain.Team) bool) []*domain.Team {
	teams := []*domain.Team{}
	for _, team := range s.teams {
		if match(team) {
			teams = append(teams, cloneTeam(team))
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams
}

func (s *Store) GetTeam(ctx context.Context, id int64) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTeam(team), nil
}

func (s *Store) CreateTeam(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneTeam(team)
	stored.Photos = append([]domain.Photo{}, team.Photos...)
	stored.ID = nextID(s.teams)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.teams[stored.ID] = stored

	return cloneTeam(stored), nil
}

func (s *Store) UpdateTeam(ctx context.Context, id int64, upd *domain.UpdateTeamRequest) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	if upd.Name != nil {
		team.Name = *upd.Name
	}
	if upd.Description != nil {
		team.Description = *upd.Description
	}
	if upd.AvatarURL != nil {
		team.AvatarURL = *upd.AvatarURL
	}
	if upd.Visible != nil {
		team.Visible = domain.Flag(*upd.Visible)
	}
	if upd.Members != nil {
		team.Members = append([]domain.Member{}, upd.Members...)
	}
	if upd.FocusAreas != nil {
		team.FocusAreas = append([]string{}, upd.FocusAreas...)
	}
	if upd.Photos != nil {
		team.Photos = append([]domain.Photo{}, upd.Photos...)
	}
	team.UpdatedAt = time.Now().UTC()

	return cloneTeam(team), nil
}

func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.teams, id)
	// Mirror the SQL store's ON DELETE CASCADE on the join table.
	for _, lab := range s.labs {
		kept := lab.TeamIDs[:0]
		for _, teamID := range lab.TeamIDs {
			if teamID != id {
				kept = append(kept, teamID)
			}
		}
		lab.TeamIDs = kept
	}
	return nil
}

// ============================================
// Profiles
// ============================================

func (s *Store) GetProfile(ctx context.Context, subject string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[subject]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProfile(profile), nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.profiles[profile.Subject]
	if !ok {
		stored := cloneProfile(profile)
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.profiles[profile.Subject] = stored
		return cloneProfile(stored), nil
	}
	existing.Email = profile.Email
	existing.Name = profile.Name
	existing.UpdatedAt = now
	return cloneProfile(existing), nil
}

func (s *Store) SetProfileCustomer(ctx context.Context, subject, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[subject]
	if !ok {
		return domain.ErrNotFound
	}
	profile.StripeCustomerID = customerID
	profile.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UpdateSubscriptionByCustomer(ctx context.Context, customerID, status, plan string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, profile := range s.profiles {
		if profile.StripeCustomerID == customerID {
			profile.SubscriptionStatus = status
			profile.SubscriptionPlan = plan
			profile.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotFound
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.apiKeys {
		if existing.KeyHash == key.KeyHash {
			return domain.ErrAlreadyExists
		}
	}
	stored := *key
	s.apiKeys[key.ID] = &stored
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			out := *key
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := []*domain.APIKey{}
	for _, key := range s.apiKeys {
		out := *key
		keys = append(keys, &out)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apiKeys[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.apiKeys[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}
