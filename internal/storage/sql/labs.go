package sql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/glasshq/glass-server/internal/domain"
)

const labColumns = `id, owner_id, name, description, website, location, logo_url, visible, created_at, updated_at`

func getLab(ctx context.Context, db dbi, id int64) (*domain.Lab, error) {
	var lab domain.Lab
	err := db.GetContext(ctx, &lab,
		`SELECT `+labColumns+` FROM labs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := loadLabChildren(ctx, db, &lab); err != nil {
		return nil, err
	}
	return &lab, nil
}

// loadLabChildren populates every child collection of a lab. Photo rows
// with a blank URL are filtered out; missing collections become empty
// slices, never nil.
func loadLabChildren(ctx context.Context, db dbi, lab *domain.Lab) error {
	if err := db.SelectContext(ctx, &lab.Photos,
		`SELECT name, url FROM lab_photos WHERE lab_id = $1 AND TRIM(url) <> '' ORDER BY position`, lab.ID); err != nil {
		return err
	}
	if err := db.SelectContext(ctx, &lab.Equipment,
		`SELECT tag, priority FROM lab_equipment WHERE lab_id = $1 ORDER BY position`, lab.ID); err != nil {
		return err
	}
	if err := db.SelectContext(ctx, &lab.Techniques,
		`SELECT name, description FROM lab_techniques WHERE lab_id = $1 ORDER BY position`, lab.ID); err != nil {
		return err
	}
	if err := db.SelectContext(ctx, &lab.TeamIDs,
		`SELECT team_id FROM lab_teams WHERE lab_id = $1 ORDER BY team_id`, lab.ID); err != nil {
		return err
	}
	if lab.Photos == nil {
		lab.Photos = []domain.Photo{}
	}
	if lab.Equipment == nil {
		lab.Equipment = []domain.EquipmentItem{}
	}
	if lab.Techniques == nil {
		lab.Techniques = []domain.Technique{}
	}
	if lab.TeamIDs == nil {
		lab.TeamIDs = []int64{}
	}
	return nil
}

func listLabs(ctx context.Context, db dbi, query string, args ...any) ([]*domain.Lab, error) {
	var labs []*domain.Lab
	if err := db.SelectContext(ctx, &labs, query, args...); err != nil {
		return nil, err
	}
	for _, lab := range labs {
		if err := loadLabChildren(ctx, db, lab); err != nil {
			return nil, err
		}
	}
	if labs == nil {
		labs = []*domain.Lab{}
	}
	return labs, nil
}

func (s *Store) ListLabs(ctx context.Context) ([]*domain.Lab, error) {
	return listLabs(ctx, s.db, `SELECT `+labColumns+` FROM labs ORDER BY id`)
}

func (s *Store) ListVisibleLabs(ctx context.Context) ([]*domain.Lab, error) {
	return listLabs(ctx, s.db, `SELECT `+labColumns+` FROM labs WHERE visible ORDER BY id`)
}

func (s *Store) GetLab(ctx context.Context, id int64) (*domain.Lab, error) {
	return getLab(ctx, s.db, id)
}

func (s *Store) ListLabsByOwner(ctx context.Context, ownerID string) ([]*domain.Lab, error) {
	return listLabs(ctx, s.db,
		`SELECT `+labColumns+` FROM labs WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (s *Store) ListLabsByTeam(ctx context.Context, teamID int64) ([]*domain.Lab, error) {
	return listLabs(ctx, s.db,
		`SELECT l.id, l.owner_id, l.name, l.description, l.website, l.location, l.logo_url, l.visible, l.created_at, l.updated_at
		 FROM labs l JOIN lab_teams lt ON lt.lab_id = l.id
		 WHERE lt.team_id = $1 ORDER BY l.id`, teamID)
}

// ============================================
// Child-collection replacers
// ============================================

// Each replacer makes the stored child rows for a lab exactly equal the
// provided list: delete everything for the parent, then bulk insert.
// An empty list stops after the delete.

func replaceLabPhotos(ctx context.Context, db dbi, labID int64, photos []domain.Photo) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM lab_photos WHERE lab_id = $1`, labID); err != nil {
		return err
	}
	if len(photos) == 0 {
		return nil
	}
	for i, p := range photos {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO lab_photos (lab_id, name, url, position) VALUES ($1, $2, $3, $4)`,
			labID, p.Name, p.URL, i); err != nil {
			return err
		}
	}
	return nil
}

func replaceLabEquipment(ctx context.Context, db dbi, labID int64, items []domain.EquipmentItem) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM lab_equipment WHERE lab_id = $1`, labID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i, item := range items {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO lab_equipment (lab_id, tag, priority, position) VALUES ($1, $2, $3, $4)`,
			labID, item.Tag, item.Priority, i); err != nil {
			return err
		}
	}
	return nil
}

func replaceLabTechniques(ctx context.Context, db dbi, labID int64, techniques []domain.Technique) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM lab_techniques WHERE lab_id = $1`, labID); err != nil {
		return err
	}
	if len(techniques) == 0 {
		return nil
	}
	for i, t := range techniques {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO lab_techniques (lab_id, name, description, position) VALUES ($1, $2, $3, $4)`,
			labID, t.Name, t.Description, i); err != nil {
			return err
		}
	}
	return nil
}

func replaceLabTeams(ctx context.Context, db dbi, labID int64, teamIDs []int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM lab_teams WHERE lab_id = $1`, labID); err != nil {
		return err
	}
	if len(teamIDs) == 0 {
		return nil
	}
	for _, teamID := range teamIDs {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO lab_teams (lab_id, team_id) VALUES ($1, $2)`,
			labID, teamID); err != nil {
			return err
		}
	}
	return nil
}

// ============================================
// Writes
// ============================================

func (s *Store) CreateLab(ctx context.Context, lab *domain.Lab) (*domain.Lab, error) {
	var created *domain.Lab
	// The only unique constraint on labs is the primary key, so a
	// violation here is always the id race between concurrent creates.
	err := retryOnIDConflict(func() error {
		return s.withTx(ctx, func(tx *sqlx.Tx) error {
			id, err := nextID(ctx, tx, "labs")
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO labs (`+labColumns+`)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				id, lab.OwnerID, lab.Name, lab.Description, lab.Website, lab.Location,
				lab.LogoURL, lab.Visible, now, now); err != nil {
				return err
			}

			// Every child collection is written on create, even when empty,
			// so the stored state is deterministic.
			if err := replaceLabPhotos(ctx, tx, id, lab.Photos); err != nil {
				return err
			}
			if err := replaceLabEquipment(ctx, tx, id, lab.Equipment); err != nil {
				return err
			}
			if err := replaceLabTechniques(ctx, tx, id, lab.Techniques); err != nil {
				return err
			}
			if err := replaceLabTeams(ctx, tx, id, lab.TeamIDs); err != nil {
				return err
			}

			created, err = getLab(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateLab(ctx context.Context, id int64, upd *domain.UpdateLabRequest) (*domain.Lab, error) {
	var updated *domain.Lab
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var lab domain.Lab
		err := tx.GetContext(ctx, &lab, `SELECT `+labColumns+` FROM labs WHERE id = $1`, id)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
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
		lab.UpdatedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx,
			`UPDATE labs SET name = $1, description = $2, website = $3, location = $4,
			 logo_url = $5, visible = $6, updated_at = $7 WHERE id = $8`,
			lab.Name, lab.Description, lab.Website, lab.Location,
			lab.LogoURL, lab.Visible, lab.UpdatedAt, id); err != nil {
			return err
		}

		// Only collections named in the patch are replaced.
		if upd.Photos != nil {
			if err := replaceLabPhotos(ctx, tx, id, upd.Photos); err != nil {
				return err
			}
		}
		if upd.Equipment != nil {
			items := domain.BuildEquipment(upd.Equipment, upd.PriorityEquipment)
			if err := replaceLabEquipment(ctx, tx, id, items); err != nil {
				return err
			}
		}
		if upd.Techniques != nil {
			if err := replaceLabTechniques(ctx, tx, id, upd.Techniques); err != nil {
				return err
			}
		}
		if upd.TeamIDs != nil {
			if err := replaceLabTeams(ctx, tx, id, upd.TeamIDs); err != nil {
				return err
			}
		}

		// Re-read inside the transaction; a concurrent delete surfaces
		// as ErrNotFound rather than being papered over.
		updated, err = getLab(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteLab(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM labs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
