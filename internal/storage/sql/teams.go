package sql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/glasshq/glass-server/internal/domain"
)

const teamColumns = `id, owner_id, name, description, avatar_url, visible, created_at, updated_at`

func getTeam(ctx context.Context, db dbi, id int64) (*domain.Team, error) {
	var team domain.Team
	err := db.GetContext(ctx, &team,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := loadTeamChildren(ctx, db, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// loadTeamChildren populates every child collection of a team. Members
// come back leads-first, then alphabetically by name, for deterministic
// display order.
func loadTeamChildren(ctx context.Context, db dbi, team *domain.Team) error {
	if err := db.SelectContext(ctx, &team.Members,
		`SELECT name, role, email, link_url, lead FROM team_members
		 WHERE team_id = $1 ORDER BY lead DESC, name`, team.ID); err != nil {
		return err
	}
	if err := db.SelectContext(ctx, &team.FocusAreas,
		`SELECT area FROM team_focus_areas WHERE team_id = $1 ORDER BY position`, team.ID); err != nil {
		return err
	}
	if err := db.SelectContext(ctx, &team.Photos,
		`SELECT name, url FROM team_photos WHERE team_id = $1 AND TRIM(url) <> '' ORDER BY position`, team.ID); err != nil {
		return err
	}
	if team.Members == nil {
		team.Members = []domain.Member{}
	}
	if team.FocusAreas == nil {
		team.FocusAreas = []string{}
	}
	if team.Photos == nil {
		team.Photos = []domain.Photo{}
	}
	return nil
}

func listTeams(ctx context.Context, db dbi, query string, args ...any) ([]*domain.Team, error) {
	var teams []*domain.Team
	if err := db.SelectContext(ctx, &teams, query, args...); err != nil {
		return nil, err
	}
	for _, team := range teams {
		if err := loadTeamChildren(ctx, db, team); err != nil {
			return nil, err
		}
	}
	if teams == nil {
		teams = []*domain.Team{}
	}
	return teams, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]*domain.Team, error) {
	return listTeams(ctx, s.db, `SELECT `+teamColumns+` FROM teams ORDER BY id`)
}

func (s *Store) ListVisibleTeams(ctx context.Context) ([]*domain.Team, error) {
	return listTeams(ctx, s.db, `SELECT `+teamColumns+` FROM teams WHERE visible ORDER BY id`)
}

func (s *Store) GetTeam(ctx context.Context, id int64) (*domain.Team, error) {
	return getTeam(ctx, s.db, id)
}

func (s *Store) ListTeamsByOwner(ctx context.Context, ownerID string) ([]*domain.Team, error) {
	return listTeams(ctx, s.db,
		`SELECT `+teamColumns+` FROM teams WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (s *Store) ListTeamsByLab(ctx context.Context, labID int64) ([]*domain.Team, error) {
	return listTeams(ctx, s.db,
		`SELECT t.id, t.owner_id, t.name, t.description, t.avatar_url, t.visible, t.created_at, t.updated_at
		 FROM teams t JOIN lab_teams lt ON lt.team_id = t.id
		 WHERE lt.lab_id = $1 ORDER BY t.id`, labID)
}

// ============================================
// Child-collection replacers
// ============================================

func replaceTeamMembers(ctx context.Context, db dbi, teamID int64, members []domain.Member) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	for i, m := range members {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO team_members (team_id, name, role, email, link_url, lead, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			teamID, m.Name, m.Role, m.Email, m.LinkURL, m.Lead, i); err != nil {
			return err
		}
	}
	return nil
}

func replaceTeamFocusAreas(ctx context.Context, db dbi, teamID int64, areas []string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM team_focus_areas WHERE team_id = $1`, teamID); err != nil {
		return err
	}
	if len(areas) == 0 {
		return nil
	}
	for i, area := range areas {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO team_focus_areas (team_id, area, position) VALUES ($1, $2, $3)`,
			teamID, area, i); err != nil {
			return err
		}
	}
	return nil
}

func replaceTeamPhotos(ctx context.Context, db dbi, teamID int64, photos []domain.Photo) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM team_photos WHERE team_id = $1`, teamID); err != nil {
		return err
	}
	if len(photos) == 0 {
		return nil
	}
	for i, p := range photos {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO team_photos (team_id, name, url, position) VALUES ($1, $2, $3, $4)`,
			teamID, p.Name, p.URL, i); err != nil {
			return err
		}
	}
	return nil
}

// ============================================
// Writes
// ============================================

func (s *Store) CreateTeam(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	var created *domain.Team
	// Like CreateLab, a unique violation here can only be the id race.
	err := retryOnIDConflict(func() error {
		return s.withTx(ctx, func(tx *sqlx.Tx) error {
			id, err := nextID(ctx, tx, "teams")
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO teams (`+teamColumns+`)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				id, team.OwnerID, team.Name, team.Description, team.AvatarURL,
				team.Visible, now, now); err != nil {
				return err
			}

			if err := replaceTeamMembers(ctx, tx, id, team.Members); err != nil {
				return err
			}
			if err := replaceTeamPhotos(ctx, tx, id, team.Photos); err != nil {
				return err
			}
			if err := replaceTeamFocusAreas(ctx, tx, id, team.FocusAreas); err != nil {
				return err
			}

			created, err = getTeam(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateTeam(ctx context.Context, id int64, upd *domain.UpdateTeamRequest) (*domain.Team, error) {
	var updated *domain.Team
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var team domain.Team
		err := tx.GetContext(ctx, &team, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
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
		team.UpdatedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx,
			`UPDATE teams SET name = $1, description = $2, avatar_url = $3, visible = $4,
			 updated_at = $5 WHERE id = $6`,
			team.Name, team.Description, team.AvatarURL, team.Visible,
			team.UpdatedAt, id); err != nil {
			return err
		}

		if upd.Members != nil {
			if err := replaceTeamMembers(ctx, tx, id, upd.Members); err != nil {
				return err
			}
		}
		if upd.Photos != nil {
			if err := replaceTeamPhotos(ctx, tx, id, upd.Photos); err != nil {
				return err
			}
		}
		if upd.FocusAreas != nil {
			if err := replaceTeamFocusAreas(ctx, tx, id, upd.FocusAreas); err != nil {
				return err
			}
		}

		updated, err = getTeam(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
