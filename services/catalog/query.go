package catalog

import (
	"context"
	"strconv"
	"strings"

	"cinemax/models"
)

// GetAll rebuilds the full Category > Entry > Season > Episode > Server tree
// from committed state.
func (s *Service) GetAll(ctx context.Context) (*models.Catalog, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	out := &models.Catalog{Categories: make([]models.CatalogCategory, 0, len(categories))}
	for _, cat := range categories {
		entries, err := s.store.ListEntries(ctx, cat.ID)
		if err != nil {
			return nil, err
		}

		cc := models.CatalogCategory{
			MainCategory:  cat.Name,
			SubCategories: []string{},
			Entries:       make([]models.CatalogEntry, 0, len(entries)),
		}
		seen := map[string]bool{}

		for _, e := range entries {
			ce, err := s.catalogEntry(ctx, cat.Name, e)
			if err != nil {
				return nil, err
			}
			if e.Subcategory != "" && !seen[e.Subcategory] {
				seen[e.Subcategory] = true
				cc.SubCategories = append(cc.SubCategories, e.Subcategory)
			}
			cc.Entries = append(cc.Entries, ce)
		}
		out.Categories = append(out.Categories, cc)
	}
	return out, nil
}

func (s *Service) catalogEntry(ctx context.Context, category string, e models.Entry) (models.CatalogEntry, error) {
	ce := models.CatalogEntry{
		Title:          e.Title,
		SubCategory:    e.Subcategory,
		Country:        e.Country,
		Description:    e.Description,
		Poster:         e.Poster,
		Thumbnail:      e.Thumbnail,
		Rating:         e.Rating,
		Duration:       e.Duration,
		Year:           atoi(e.Year),
		ParentalRating: e.ParentalRating,
	}

	servers, err := s.store.ListEntryServers(ctx, e.ID)
	if err != nil {
		return ce, err
	}
	ce.Servers = catalogServers(servers)

	if category != models.CategorySeries {
		return ce, nil
	}

	seasons, err := s.store.ListSeasons(ctx, e.ID)
	if err != nil {
		return ce, err
	}
	for _, season := range seasons {
		cs := models.CatalogSeason{Season: season.SeasonNumber, SeasonPoster: season.Poster, Episodes: []models.CatalogEpisode{}}
		episodes, err := s.store.ListEpisodes(ctx, season.ID)
		if err != nil {
			return ce, err
		}
		for _, ep := range episodes {
			epServers, err := s.store.ListEpisodeServers(ctx, ep.ID)
			if err != nil {
				return ce, err
			}
			cs.Episodes = append(cs.Episodes, models.CatalogEpisode{
				Episode:     ep.EpisodeNumber,
				Title:       ep.Title,
				Duration:    ep.Duration,
				Description: ep.Description,
				Thumbnail:   ep.Thumbnail,
				Servers:     catalogServers(epServers),
			})
		}
		ce.Seasons = append(ce.Seasons, cs)
	}
	return ce, nil
}

func catalogServers(in []models.Server) []models.CatalogServer {
	out := make([]models.CatalogServer, 0, len(in))
	for _, srv := range in {
		out = append(out, models.CatalogServer{Name: srv.Name, URL: srv.URL, DRM: srv.IsDRM, LicenseURL: srv.LicenseURL})
	}
	return out
}

// atoi converts stored year text to an integer, 0 when empty or not numeric.
func atoi(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
