package catalog

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"cinemax/internal/database"
	"cinemax/internal/database/dbtest"
	"cinemax/services/catalog/mocks"
	"cinemax/services/metadata"
)

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *fakeRecorder) ObserveImport(kind, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, kind+":"+status)
}

type harness struct {
	svc      *Service
	source   *mocks.MockSource
	db       *database.DB
	store    *database.CatalogStore
	recorder *fakeRecorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)
	rec := &fakeRecorder{}

	opts = append([]Option{WithSeasonDelay(0), WithRecorder(rec)}, opts...)
	svc, err := NewService(source, store, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &harness{svc: svc, source: source, db: db, store: store, recorder: rec}
}

func movieDoc(id int64, title, date string) *metadata.Movie {
	return &metadata.Movie{
		ID:          id,
		Title:       title,
		ReleaseDate: date,
		Runtime:     intPtr(125),
		PosterPath:  "/p.jpg",
		Genres:      []metadata.Genre{{Name: "Action"}},
	}
}

func episodes(n int) []metadata.EpisodeDetails {
	out := make([]metadata.EpisodeDetails, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, metadata.EpisodeDetails{EpisodeNumber: i, Name: "Episode", Runtime: intPtr(50)})
	}
	return out
}
