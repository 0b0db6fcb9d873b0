package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"cinemax/models"
	"cinemax/services/metadata"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks cinemax/services/catalog Source

// Source is the external metadata catalogue, normally *metadata.Client.
type Source interface {
	Movie(ctx context.Context, tmdbID int64) (*metadata.Movie, error)
	Series(ctx context.Context, tmdbID int64) (*metadata.Series, error)
	Season(ctx context.Context, seriesID int64, number int) (*metadata.SeasonDetails, error)
	Search(ctx context.Context, mediaType, query string) ([]metadata.SearchResult, error)
	Discover(ctx context.Context, mediaType string, year, page int) (*metadata.ResultPage, error)
}

// Store persists the catalog, normally *database.CatalogStore.
type Store interface {
	EntryExists(ctx context.Context, title, year string) (bool, error)
	CreateEntry(ctx context.Context, draft *models.EntryDraft) (int64, error)
	AttachServers(ctx context.Context, servers []models.Server) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	ListEntries(ctx context.Context, categoryID int64) ([]models.Entry, error)
	ListEntryServers(ctx context.Context, entryID int64) ([]models.Server, error)
	ListSeasons(ctx context.Context, entryID int64) ([]models.Season, error)
	ListEpisodes(ctx context.Context, seasonID int64) ([]models.Episode, error)
	ListEpisodeServers(ctx context.Context, episodeID int64) ([]models.Server, error)

	DeleteEntry(ctx context.Context, title, category string) (int64, error)
	ClearAll(ctx context.Context) error
	RemoveDuplicates(ctx context.Context) (int64, error)
}

// Recorder receives import outcomes, normally the Prometheus collector.
type Recorder interface {
	ObserveImport(kind, status string, elapsed time.Duration)
}

// Kind selects the TMDB document family an import works on.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// ParseKind accepts movie, series and the TMDB spelling tv.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies":
		return KindMovie, nil
	case "series", "tv":
		return KindSeries, nil
	}
	return "", invalid("Unsupported content type %q.", raw)
}

// MediaType is the TMDB path segment for the kind.
func (k Kind) MediaType() string {
	if k == KindSeries {
		return metadata.MediaTV
	}
	return metadata.MediaMovie
}

func (k Kind) label() string {
	if k == KindSeries {
		return "TV series"
	}
	return "movie"
}

const DefaultSeasonDelay = 250 * time.Millisecond

// Service implements catalog import, query and maintenance operations.
type Service struct {
	source      Source
	store       Store
	providers   []Provider
	seasonDelay time.Duration
	recorder    Recorder
	now         func() time.Time
}

type Option func(*Service)

// WithProviders replaces the default embed providers attached on import.
func WithProviders(providers []Provider) Option {
	return func(s *Service) {
		if len(providers) > 0 {
			s.providers = providers
		}
	}
}

// WithSeasonDelay sets the pause between season fetches. Negative values are ignored.
func WithSeasonDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.seasonDelay = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(source Source, store Store, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, errors.New("catalog source is required")
	}
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	s := &Service{
		source:      source,
		store:       store,
		providers:   DefaultProviders,
		seasonDelay: DefaultSeasonDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) record(kind Kind, status models.ImportStatus, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.ObserveImport(string(kind), string(status), elapsed)
	}
}
