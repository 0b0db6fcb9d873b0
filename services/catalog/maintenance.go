package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cinemax/models"
)

// DeleteItem removes the entry with title in the named category.
func (s *Service) DeleteItem(ctx context.Context, title, category string) (int64, error) {
	title, category = strings.TrimSpace(title), strings.TrimSpace(category)
	if title == "" || category == "" {
		return 0, invalid("Title and category are required for deletion.")
	}
	n, err := s.store.DeleteEntry(ctx, title, category)
	if err != nil {
		return 0, err
	}
	log.Printf("[catalog] deleted %d entries titled %q from %s", n, title, category)
	return n, nil
}

// ClearAll deletes every entry and everything attached to it.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	log.Printf("[catalog] cleared all catalog data")
	return nil
}

// RemoveDuplicates keeps the oldest entry of each title/year pair per category.
func (s *Service) RemoveDuplicates(ctx context.Context) (int64, error) {
	n, err := s.store.RemoveDuplicates(ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("[catalog] removed %d duplicate entries", n)
	return n, nil
}

// AutoEmbed scopes.
const (
	ScopeMovies = "movies"
	ScopeSeries = "series"
	ScopeAll    = "all"
)

// AutoEmbedResult counts the movies and episodes that received new servers.
type AutoEmbedResult struct {
	Movies   int `json:"movies"`
	Episodes int `json:"episodes"`
}

// AutoEmbed attaches embed servers for the chosen providers to entries whose
// TMDB id can be recovered from an existing server URL. Providers an entry
// already has, matched by server name, are not added twice.
func (s *Service) AutoEmbed(ctx context.Context, scope string, providerNames []string) (AutoEmbedResult, error) {
	var res AutoEmbedResult

	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		scope = ScopeAll
	}
	if scope != ScopeMovies && scope != ScopeSeries && scope != ScopeAll {
		return res, invalid("Unknown scope %q.", scope)
	}

	providers := s.providers
	if len(providerNames) > 0 {
		var unknown []string
		providers, unknown = ResolveProviders(providerNames)
		if len(unknown) > 0 {
			return res, invalid("Unknown provider(s): %s.", strings.Join(unknown, ", "))
		}
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return res, err
	}

	for _, cat := range categories {
		switch {
		case cat.Name == models.CategoryMovies && scope != ScopeSeries:
			n, err := s.embedMovies(ctx, cat.ID, providers)
			res.Movies += n
			if err != nil {
				return res, err
			}
		case cat.Name == models.CategorySeries && scope != ScopeMovies:
			n, err := s.embedSeries(ctx, cat.ID, providers)
			res.Episodes += n
			if err != nil {
				return res, err
			}
		}
	}

	log.Printf("[catalog] auto-embed (%s): %d movies, %d episodes updated", scope, res.Movies, res.Episodes)
	return res, nil
}

func (s *Service) embedMovies(ctx context.Context, categoryID int64, providers []Provider) (int, error) {
	entries, err := s.store.ListEntries(ctx, categoryID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, e := range entries {
		servers, err := s.store.ListEntryServers(ctx, e.ID)
		if err != nil {
			return updated, err
		}
		tmdbID, ok := tmdbIDFrom(servers)
		if !ok {
			continue
		}

		have := serverNames(servers)
		entryID := e.ID
		var add []models.Server
		for _, p := range providers {
			if have[strings.ToLower(p.Name)] {
				continue
			}
			add = append(add, models.Server{EntryID: &entryID, Name: p.Name, URL: p.MovieURL(tmdbID)})
		}
		if len(add) == 0 {
			continue
		}
		if err := s.store.AttachServers(ctx, add); err != nil {
			return updated, fmt.Errorf("attach servers to %q: %w", e.Title, err)
		}
		updated++
	}
	return updated, nil
}

type episodeServers struct {
	season  int
	episode models.Episode
	servers []models.Server
}

func (s *Service) embedSeries(ctx context.Context, categoryID int64, providers []Provider) (int, error) {
	entries, err := s.store.ListEntries(ctx, categoryID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, e := range entries {
		var (
			all    []episodeServers
			tmdbID int64
			found  bool
		)

		seasons, err := s.store.ListSeasons(ctx, e.ID)
		if err != nil {
			return updated, err
		}
		for _, season := range seasons {
			episodes, err := s.store.ListEpisodes(ctx, season.ID)
			if err != nil {
				return updated, err
			}
			for _, ep := range episodes {
				servers, err := s.store.ListEpisodeServers(ctx, ep.ID)
				if err != nil {
					return updated, err
				}
				if !found {
					tmdbID, found = tmdbIDFrom(servers)
				}
				all = append(all, episodeServers{season: season.SeasonNumber, episode: ep, servers: servers})
			}
		}
		if !found {
			continue
		}

		var add []models.Server
		touched := 0
		for _, es := range all {
			have := serverNames(es.servers)
			episodeID := es.episode.ID
			before := len(add)
			for _, p := range providers {
				if have[strings.ToLower(p.Name)] {
					continue
				}
				add = append(add, models.Server{
					EpisodeID: &episodeID,
					Name:      p.Name,
					URL:       p.EpisodeURL(tmdbID, es.season, es.episode.EpisodeNumber),
				})
			}
			if len(add) > before {
				touched++
			}
		}
		if len(add) == 0 {
			continue
		}
		if err := s.store.AttachServers(ctx, add); err != nil {
			return updated, fmt.Errorf("attach servers to %q: %w", e.Title, err)
		}
		updated += touched
	}
	return updated, nil
}

func tmdbIDFrom(servers []models.Server) (int64, bool) {
	for _, srv := range servers {
		if id, ok := ExtractTMDBID(srv.URL); ok {
			return id, true
		}
	}
	return 0, false
}

func serverNames(servers []models.Server) map[string]bool {
	names := make(map[string]bool, len(servers))
	for _, srv := range servers {
		names[strings.ToLower(strings.TrimSpace(srv.Name))] = true
	}
	return names
}
