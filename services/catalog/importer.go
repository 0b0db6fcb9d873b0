package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sourcegraph/conc/panics"

	"cinemax/internal/database"
	"cinemax/models"
	"cinemax/services/metadata"
)

// YearResult summarises one bulk import page.
type YearResult struct {
	Generated int                   `json:"generated"`
	Skipped   int                   `json:"skipped"`
	Results   []models.ImportResult `json:"results,omitempty"`
}

// ImportSingle imports one TMDB title. It never returns an error: every
// failure, including a panic, is reported in the result.
func (s *Service) ImportSingle(ctx context.Context, tmdbID int64, kind Kind) (result models.ImportResult) {
	start := time.Now()
	defer func() { s.record(kind, result.Status, time.Since(start)) }()

	var pc panics.Catcher
	pc.Try(func() { result = s.importSingle(ctx, tmdbID, kind) })
	if r := pc.Recovered(); r != nil {
		log.Printf("[import] recovered while importing %s %d: %s", kind, tmdbID, r.String())
		result = models.ImportResult{
			Status:  models.ImportError,
			Message: fmt.Sprintf("Failed to import TMDB %s %d. Reason: %v", kind, tmdbID, r.Value),
		}
	}
	return result
}

func (s *Service) importSingle(ctx context.Context, tmdbID int64, kind Kind) models.ImportResult {
	switch kind {
	case KindMovie:
		movie, err := s.source.Movie(ctx, tmdbID)
		if err != nil {
			log.Printf("[import] fetch movie %d: %v", tmdbID, err)
			return errorResult("Could not fetch details for movie.")
		}
		draft := MapMovie(movie, s.providers)
		if res, dup := s.checkDuplicate(ctx, draft.Entry.Title, draft.Entry.Year); dup {
			return res
		}
		return s.persist(ctx, draft)

	case KindSeries:
		series, err := s.source.Series(ctx, tmdbID)
		if err != nil {
			log.Printf("[import] fetch series %d: %v", tmdbID, err)
			return errorResult("Could not fetch details for TV series.")
		}
		title, year := seriesKey(series)
		if res, dup := s.checkDuplicate(ctx, title, year); dup {
			return res
		}
		seasons, err := s.fetchSeasons(ctx, series)
		if err != nil {
			return failedResult(title, err)
		}
		return s.persist(ctx, MapSeries(series, seasons, s.providers))
	}

	return errorResult(fmt.Sprintf("Unsupported content type %q.", kind))
}

// checkDuplicate returns a result and true when the import must stop before writing.
func (s *Service) checkDuplicate(ctx context.Context, title, year string) (models.ImportResult, bool) {
	exists, err := s.store.EntryExists(ctx, title, year)
	if err != nil {
		return failedResult(title, err), true
	}
	if exists {
		return skippedResult(title, year), true
	}
	return models.ImportResult{}, false
}

// fetchSeasons loads every non-special season, pausing between requests.
// Any season that cannot be fetched fails the whole import before anything is written.
func (s *Service) fetchSeasons(ctx context.Context, series *metadata.Series) ([]*metadata.SeasonDetails, error) {
	var out []*metadata.SeasonDetails
	first := true
	for _, summary := range series.Seasons {
		if summary.SeasonNumber == 0 {
			continue
		}
		if !first {
			if err := s.pause(ctx); err != nil {
				return nil, err
			}
		}
		first = false

		season, err := s.source.Season(ctx, series.ID, summary.SeasonNumber)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Printf("[import] fetch season %d of %q: %v", summary.SeasonNumber, series.Name, err)
			return nil, fmt.Errorf("season %d: %w", summary.SeasonNumber, err)
		}
		out = append(out, season)
	}
	return out, nil
}

func (s *Service) pause(ctx context.Context) error {
	if s.seasonDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.seasonDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) persist(ctx context.Context, draft *models.EntryDraft) models.ImportResult {
	title := draft.Entry.Title
	id, err := s.store.CreateEntry(ctx, draft)
	if errors.Is(err, database.ErrConstraint) {
		return skippedResult(title, draft.Entry.Year)
	}
	if err != nil {
		log.Printf("[import] write %q: %v", title, err)
		return failedResult(title, err)
	}
	log.Printf("[import] imported %q (%s) as entry %d with %d episodes", title, draft.Entry.Year, id, draft.EpisodeCount())
	return models.ImportResult{
		Status:  models.ImportSuccess,
		Message: fmt.Sprintf("IMPORTED: '%s'.", title),
		EntryID: id,
	}
}

// ImportYear imports one discover page of titles released in year. Items are
// processed sequentially; only a failure to fetch the page itself is returned.
func (s *Service) ImportYear(ctx context.Context, kind Kind, year, page int, skipDuplicates bool) (YearResult, error) {
	var res YearResult
	if year <= 0 {
		return res, invalid("Year is required.")
	}
	if page < 1 {
		page = 1
	}

	listing, err := s.source.Discover(ctx, kind.MediaType(), year, page)
	if err != nil {
		return res, fmt.Errorf("discover %s %d page %d: %w", kind.label(), year, page, err)
	}

	for _, item := range listing.Results {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if skipDuplicates {
			exists, err := s.store.EntryExists(ctx, item.DisplayTitle(), yearOf(item.Date()))
			if err != nil {
				log.Printf("[import] duplicate check for %q: %v", item.DisplayTitle(), err)
			} else if exists {
				res.Skipped++
				continue
			}
		}
		res.Results = append(res.Results, s.ImportSingle(ctx, item.ID, kind))
		res.Generated++
	}

	log.Printf("[import] %s %d page %d: generated=%d skipped=%d", kind.label(), year, page, res.Generated, res.Skipped)
	return res, nil
}

// Search proxies a TMDB search; mediaType defaults to multi.
func (s *Service) Search(ctx context.Context, mediaType, query string) ([]metadata.SearchResult, error) {
	if query == "" {
		return nil, invalid("Search query is required.")
	}
	results, err := s.source.Search(ctx, mediaType, query)
	if err != nil {
		return nil, err
	}
	return rankResults(query, results), nil
}

func errorResult(msg string) models.ImportResult {
	return models.ImportResult{Status: models.ImportError, Message: msg}
}

func failedResult(title string, err error) models.ImportResult {
	return errorResult(fmt.Sprintf("Failed to import '%s'. Reason: %v", title, err))
}

func skippedResult(title, year string) models.ImportResult {
	return models.ImportResult{
		Status:  models.ImportWarning,
		Message: fmt.Sprintf("SKIPPED: '%s' (%s) already exists.", title, year),
	}
}
