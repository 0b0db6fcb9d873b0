package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"cinemax/internal/database"
	"cinemax/models"
)

const (
	manualMovie  = "movie"
	manualSeries = "series"
	manualLive   = "live"
)

// AddManual stores a hand-entered movie, series or live channel. Missing
// required fields are returned as a *ValidationError; every other outcome is
// reported in the result.
func (s *Service) AddManual(ctx context.Context, in models.ManualEntry) (models.ImportResult, error) {
	draft, err := s.manualDraft(in)
	if err != nil {
		return models.ImportResult{}, err
	}

	title, year := draft.Entry.Title, draft.Entry.Year
	id, err := s.insertDraft(ctx, draft)
	switch {
	case errors.Is(err, ErrDuplicate):
		return skippedResult(title, year), nil
	case err != nil:
		log.Printf("[import] manual add %q: %v", title, err)
		return errorResult(fmt.Sprintf("Database error: %v", err)), nil
	}

	log.Printf("[import] manually added %q as entry %d", title, id)
	return models.ImportResult{
		Status:  models.ImportSuccess,
		Message: fmt.Sprintf("Successfully added '%s'.", title),
		EntryID: id,
	}, nil
}

func (s *Service) manualDraft(in models.ManualEntry) (*models.EntryDraft, error) {
	title := strings.TrimSpace(in.Title)
	kind := strings.ToLower(strings.TrimSpace(in.Type))
	source := strings.TrimSpace(in.SourceURL)
	hasTree := kind == manualSeries && len(in.Seasons) > 0

	if title == "" || kind == "" || (source == "" && !hasTree) {
		return nil, invalid("Title, type, and source URL are required.")
	}

	var category string
	switch kind {
	case manualMovie:
		category = models.CategoryMovies
	case manualSeries:
		category = models.CategorySeries
	case manualLive:
		category = models.CategoryLiveTV
	default:
		return nil, invalid("Unknown content type %q.", in.Type)
	}

	subcategory := strings.TrimSpace(in.Category)
	if subcategory == "" {
		subcategory = models.DefaultSubcategory
	}
	year := strings.TrimSpace(string(in.Year))
	if year == "" {
		year = strconv.Itoa(s.now().Year())
	}
	image := strings.TrimSpace(in.Image)

	draft := &models.EntryDraft{
		Category:    category,
		Subcategory: subcategory,
		Entry: models.Entry{
			Title:       title,
			Description: strings.TrimSpace(in.Description),
			Poster:      image,
			Thumbnail:   image,
			Rating:      float64(in.Rating),
			Duration:    strings.TrimSpace(in.Duration),
			Year:        year,
		},
	}

	if !hasTree {
		draft.Servers = []models.ServerDraft{{
			Name:       kind + " Source",
			URL:        source,
			IsDRM:      in.IsDRM,
			LicenseURL: strings.TrimSpace(in.LicenseURL),
		}}
		return draft, nil
	}

	for _, season := range in.Seasons {
		sd := models.SeasonDraft{Number: season.SeasonNumber}
		for _, ep := range season.Episodes {
			ed := models.EpisodeDraft{Number: ep.EpisodeNumber, Title: strings.TrimSpace(ep.Title)}
			if u := strings.TrimSpace(ep.URL); u != "" {
				ed.Servers = []models.ServerDraft{{Name: "Default Server", URL: u}}
			}
			sd.Episodes = append(sd.Episodes, ed)
		}
		draft.Seasons = append(draft.Seasons, sd)
	}
	return draft, nil
}

// insertDraft writes a draft unless its title and year are already stored.
func (s *Service) insertDraft(ctx context.Context, draft *models.EntryDraft) (int64, error) {
	exists, err := s.store.EntryExists(ctx, draft.Entry.Title, draft.Entry.Year)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrDuplicate
	}
	id, err := s.store.CreateEntry(ctx, draft)
	if errors.Is(err, database.ErrConstraint) {
		return 0, fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return id, err
}

// TreeResult summarises a JSON catalog import.
type TreeResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportTree loads a catalog in the get_all_data shape. Each entry is written
// in its own transaction; existing title/year pairs are skipped.
func (s *Service) ImportTree(ctx context.Context, tree *models.Catalog) (TreeResult, error) {
	var res TreeResult
	if tree == nil || len(tree.Categories) == 0 {
		return res, invalid("No catalog data received.")
	}

	categories := make([]string, len(tree.Categories))
	for i, cat := range tree.Categories {
		name, ok := canonicalCategory(cat.MainCategory)
		if !ok {
			return res, invalid("Unknown category %q.", cat.MainCategory)
		}
		categories[i] = name
	}

	for i, cat := range tree.Categories {
		for _, entry := range cat.Entries {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			draft := treeDraft(categories[i], entry)
			if draft.Entry.Title == "" {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: entry without title", categories[i]))
				continue
			}
			_, err := s.insertDraft(ctx, draft)
			switch {
			case errors.Is(err, ErrDuplicate):
				res.Skipped++
			case err != nil:
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", draft.Entry.Title, err))
			default:
				res.Imported++
			}
		}
	}

	log.Printf("[import] catalog tree: imported=%d skipped=%d failed=%d", res.Imported, res.Skipped, res.Failed)
	return res, nil
}

func canonicalCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, known := range []string{models.CategoryMovies, models.CategorySeries, models.CategoryLiveTV} {
		if strings.EqualFold(name, known) {
			return known, true
		}
	}
	return "", false
}

func treeDraft(category string, e models.CatalogEntry) *models.EntryDraft {
	year := ""
	if e.Year > 0 {
		year = strconv.Itoa(e.Year)
	}
	draft := &models.EntryDraft{
		Category:    category,
		Subcategory: strings.TrimSpace(e.SubCategory),
		Entry: models.Entry{
			Title:          strings.TrimSpace(e.Title),
			Description:    e.Description,
			Poster:         e.Poster,
			Thumbnail:      e.Thumbnail,
			Country:        e.Country,
			Rating:         e.Rating,
			Duration:       e.Duration,
			Year:           year,
			ParentalRating: e.ParentalRating,
		},
		Servers: treeServers(e.Servers),
	}
	for _, season := range e.Seasons {
		sd := models.SeasonDraft{Number: season.Season, Poster: season.SeasonPoster}
		for _, ep := range season.Episodes {
			sd.Episodes = append(sd.Episodes, models.EpisodeDraft{
				Number:      ep.Episode,
				Title:       ep.Title,
				Duration:    ep.Duration,
				Description: ep.Description,
				Thumbnail:   ep.Thumbnail,
				Servers:     treeServers(ep.Servers),
			})
		}
		draft.Seasons = append(draft.Seasons, sd)
	}
	return draft
}

func treeServers(in []models.CatalogServer) []models.ServerDraft {
	var out []models.ServerDraft
	for _, srv := range in {
		if strings.TrimSpace(srv.URL) == "" {
			continue
		}
		out = append(out, models.ServerDraft{Name: srv.Name, URL: srv.URL, IsDRM: srv.DRM, LicenseURL: srv.LicenseURL})
	}
	return out
}
