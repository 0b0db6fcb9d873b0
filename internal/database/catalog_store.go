package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cinemax/models"
)

// CatalogStore persists and reads the category/entry/season/episode/server tree.
type CatalogStore struct {
	db *DB
}

func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// EntryExists reports whether an entry with the given title and year is stored.
func (s *CatalogStore) EntryExists(ctx context.Context, title, year string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM entries WHERE title = $1 AND year = $2`,
		title, year,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	return count > 0, nil
}

// CreateEntry writes the entry and everything beneath it in one transaction.
// Nothing is left behind when any statement fails.
func (s *CatalogStore) CreateEntry(ctx context.Context, draft *models.EntryDraft) (int64, error) {
	if draft == nil {
		return 0, errors.New("entry draft is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	categoryID, err := categoryIDByName(ctx, tx, draft.Category)
	if err != nil {
		return 0, err
	}

	subcategoryID, err := upsertSubcategory(ctx, tx, draft.Subcategory)
	if err != nil {
		return 0, err
	}

	e := draft.Entry
	var entryID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO entries (title, description, poster, thumbnail, category_id, subcategory_id,
			country, rating, duration, year, parental_rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		e.Title, e.Description, e.Poster, e.Thumbnail, categoryID, subcategoryID,
		e.Country, e.Rating, e.Duration, e.Year, e.ParentalRating,
	).Scan(&entryID)
	if err != nil {
		return 0, classify("insert entry", err)
	}

	for _, srv := range draft.Servers {
		if err := insertServer(ctx, tx, &entryID, nil, srv); err != nil {
			return 0, err
		}
	}

	for _, season := range draft.Seasons {
		var seasonID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO seasons (entry_id, season_number, poster) VALUES ($1, $2, $3) RETURNING id`,
			entryID, season.Number, nullString(season.Poster),
		).Scan(&seasonID)
		if err != nil {
			return 0, classify(fmt.Sprintf("insert season %d", season.Number), err)
		}

		for _, ep := range season.Episodes {
			var episodeID int64
			err := tx.QueryRowContext(ctx, `
				INSERT INTO episodes (season_id, episode_number, title, duration, description, thumbnail)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				seasonID, ep.Number, ep.Title, ep.Duration, ep.Description, ep.Thumbnail,
			).Scan(&episodeID)
			if err != nil {
				return 0, classify(fmt.Sprintf("insert episode S%02dE%02d", season.Number, ep.Number), err)
			}
			for _, srv := range ep.Servers {
				if err := insertServer(ctx, tx, nil, &episodeID, srv); err != nil {
					return 0, err
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classify("commit entry", err)
	}
	return entryID, nil
}

// AttachServers inserts additional servers for existing entries or episodes in one transaction.
func (s *CatalogStore) AttachServers(ctx context.Context, servers []models.Server) error {
	if len(servers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, srv := range servers {
		draft := models.ServerDraft{Name: srv.Name, URL: srv.URL, IsDRM: srv.IsDRM, LicenseURL: srv.LicenseURL}
		if err := insertServer(ctx, tx, srv.EntryID, srv.EpisodeID, draft); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit servers: %w", err)
	}
	return nil
}

func categoryIDByName(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve category %q: %w", name, err)
	}
	return id, nil
}

func upsertSubcategory(ctx context.Context, tx *sql.Tx, name string) (sql.NullInt64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return sql.NullInt64{}, nil
	}
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO subcategories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`, name).Scan(&id)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("upsert subcategory %q: %w", name, err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func insertServer(ctx context.Context, tx *sql.Tx, entryID, episodeID *int64, srv models.ServerDraft) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO servers (entry_id, episode_id, name, url, is_drm, license_url)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		nullInt(entryID), nullInt(episodeID), srv.Name, srv.URL, srv.IsDRM, nullString(srv.LicenseURL),
	)
	if err != nil {
		return classify(fmt.Sprintf("insert server %q", srv.Name), err)
	}
	return nil
}

func nullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
