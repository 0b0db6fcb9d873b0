package database

import (
	"context"
	"database/sql"
	"fmt"

	"cinemax/models"
)

// ListCategories returns every category ordered by id.
func (s *CatalogStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListEntries returns the entries of one category with their subcategory name joined in.
func (s *CatalogStore) ListEntries(ctx context.Context, categoryID int64) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.title, e.description, e.poster, e.thumbnail, e.category_id, e.subcategory_id,
			COALESCE(sc.name, ''), e.country, e.rating, e.duration, e.year, e.parental_rating
		FROM entries e
		LEFT JOIN subcategories sc ON sc.id = e.subcategory_id
		WHERE e.category_id = $1
		ORDER BY e.id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var (
			e     models.Entry
			subID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Poster, &e.Thumbnail, &e.CategoryID, &subID,
			&e.Subcategory, &e.Country, &e.Rating, &e.Duration, &e.Year, &e.ParentalRating); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if subID.Valid {
			id := subID.Int64
			e.SubcategoryID = &id
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEntryServers returns servers attached directly to an entry.
func (s *CatalogStore) ListEntryServers(ctx context.Context, entryID int64) ([]models.Server, error) {
	return s.listServers(ctx, `entry_id`, entryID)
}

// ListEpisodeServers returns servers attached to an episode.
func (s *CatalogStore) ListEpisodeServers(ctx context.Context, episodeID int64) ([]models.Server, error) {
	return s.listServers(ctx, `episode_id`, episodeID)
}

func (s *CatalogStore) listServers(ctx context.Context, owner string, id int64) ([]models.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, episode_id, name, url, is_drm, COALESCE(license_url, '')
		FROM servers
		WHERE `+owner+` = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

	var out []models.Server
	for rows.Next() {
		var (
			srv                models.Server
			entryID, episodeID sql.NullInt64
		)
		if err := rows.Scan(&srv.ID, &entryID, &episodeID, &srv.Name, &srv.URL, &srv.IsDRM, &srv.LicenseURL); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		if entryID.Valid {
			v := entryID.Int64
			srv.EntryID = &v
		}
		if episodeID.Valid {
			v := episodeID.Int64
			srv.EpisodeID = &v
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}

// ListSeasons returns the seasons of an entry ordered by season number.
func (s *CatalogStore) ListSeasons(ctx context.Context, entryID int64) ([]models.Season, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, season_number, COALESCE(poster, '')
		FROM seasons
		WHERE entry_id = $1
		ORDER BY season_number, id`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query seasons: %w", err)
	}
	defer rows.Close()

	var out []models.Season
	for rows.Next() {
		var season models.Season
		if err := rows.Scan(&season.ID, &season.EntryID, &season.SeasonNumber, &season.Poster); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		out = append(out, season)
	}
	return out, rows.Err()
}

// ListEpisodes returns the episodes of a season ordered by episode number.
func (s *CatalogStore) ListEpisodes(ctx context.Context, seasonID int64) ([]models.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, season_id, episode_number, title, duration, description, thumbnail
		FROM episodes
		WHERE season_id = $1
		ORDER BY episode_number, id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []models.Episode
	for rows.Next() {
		var ep models.Episode
		if err := rows.Scan(&ep.ID, &ep.SeasonID, &ep.EpisodeNumber, &ep.Title, &ep.Duration, &ep.Description, &ep.Thumbnail); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}
