package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cinemax/internal/database/dbtest"
	"cinemax/models"
	"cinemax/services/metadata"
)

func TestImportSingleIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.EXPECT().Movie(gomock.Any(), int64(603)).Return(movieDoc(603, "The Matrix", "1999-03-30"), nil).Times(2)

	first := h.svc.ImportSingle(ctx, 603, KindMovie)
	assert.Equal(t, models.ImportSuccess, first.Status)
	assert.Equal(t, "IMPORTED: 'The Matrix'.", first.Message)
	assert.NotZero(t, first.EntryID)

	second := h.svc.ImportSingle(ctx, 603, KindMovie)
	assert.Equal(t, models.ImportWarning, second.Status)
	assert.Equal(t, "SKIPPED: 'The Matrix' (1999) already exists.", second.Message)

	assert.Equal(t, 1, dbtest.CountRows(t, h.db, "entries"))
	assert.Equal(t, 2, dbtest.CountRows(t, h.db, "servers"))
	assert.Equal(t, []string{"movie:success", "movie:warning"}, h.recorder.outcomes)
}

func TestImportSingleFetchFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.EXPECT().Movie(gomock.Any(), int64(1)).Return(nil, metadata.ErrKeysExhausted)
	h.source.EXPECT().Series(gomock.Any(), int64(2)).Return(nil, &metadata.FetchError{Endpoint: "tv/2", Status: 404, Err: errors.New("not found")})

	res := h.svc.ImportSingle(ctx, 1, KindMovie)
	assert.Equal(t, models.ImportError, res.Status)
	assert.Equal(t, "Could not fetch details for movie.", res.Message)

	res = h.svc.ImportSingle(ctx, 2, KindSeries)
	assert.Equal(t, models.ImportError, res.Status)
	assert.Equal(t, "Could not fetch details for TV series.", res.Message)

	assert.Zero(t, dbtest.CountRows(t, h.db, "entries"))
}

func TestImportSeriesSkipsSpecialsSeason(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.source.EXPECT().Series(gomock.Any(), int64(1399)).Return(&metadata.Series{
		ID:           1399,
		Name:         "Game of Thrones",
		FirstAirDate: "2011-04-17",
		Seasons:      []metadata.SeasonSummary{{SeasonNumber: 0}, {SeasonNumber: 1}, {SeasonNumber: 2}},
	}, nil)
	h.source.EXPECT().Season(gomock.Any(), int64(1399), 1).Return(&metadata.SeasonDetails{SeasonNumber: 1, Episodes: episodes(3)}, nil)
	h.source.EXPECT().Season(gomock.Any(), int64(1399), 2).Return(&metadata.SeasonDetails{SeasonNumber: 2, Episodes: episodes(2)}, nil)

	res := h.svc.ImportSingle(ctx, 1399, KindSeries)
	require.Equal(t, models.ImportSuccess, res.Status, res.Message)

	assert.Equal(t, 2, dbtest.CountRows(t, h.db, "seasons"))
	assert.Equal(t, 5, dbtest.CountRows(t, h.db, "episodes"))
	assert.Equal(t, 10, dbtest.CountRows(t, h.db, "servers"))
}

func TestImportSeriesFailsOnUnfetchableSeason(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	series := &metadata.Series{
		ID:           7,
		Name:         "Rate Limited",
		FirstAirDate: "2020-03-01",
		Seasons:      []metadata.SeasonSummary{{SeasonNumber: 1}, {SeasonNumber: 2}, {SeasonNumber: 3}},
	}
	limited := &metadata.FetchError{Status: 429, Err: metadata.ErrKeysExhausted}

	h.source.EXPECT().Series(gomock.Any(), int64(7)).Return(series, nil)
	h.source.EXPECT().Season(gomock.Any(), int64(7), 1).Return(&metadata.SeasonDetails{SeasonNumber: 1, Episodes: episodes(2)}, nil)
	h.source.EXPECT().Season(gomock.Any(), int64(7), 2).Return(nil, limited)

	res := h.svc.ImportSingle(ctx, 7, KindSeries)
	require.Equal(t, models.ImportError, res.Status, res.Message)
	assert.Contains(t, res.Message, "Failed to import 'Rate Limited'.")
	assert.Equal(t, 0, dbtest.CountRows(t, h.db, "entries"))
	assert.Equal(t, 0, dbtest.CountRows(t, h.db, "seasons"))
	assert.Equal(t, 0, dbtest.CountRows(t, h.db, "episodes"))

	// Nothing was written, so a later retry imports the full series.
	h.source.EXPECT().Series(gomock.Any(), int64(7)).Return(series, nil)
	for n := 1; n <= 3; n++ {
		h.source.EXPECT().Season(gomock.Any(), int64(7), n).Return(&metadata.SeasonDetails{SeasonNumber: n, Episodes: episodes(2)}, nil)
	}
	res = h.svc.ImportSingle(ctx, 7, KindSeries)
	require.Equal(t, models.ImportSuccess, res.Status, res.Message)
	assert.Equal(t, 3, dbtest.CountRows(t, h.db, "seasons"))
}

func TestImportSeriesDuplicateSkipsSeasonFetches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.store.CreateEntry(ctx, &models.EntryDraft{
		Category: models.CategorySeries,
		Entry:    models.Entry{Title: "Dark", Year: "2017"},
	})
	require.NoError(t, err)

	h.source.EXPECT().Series(gomock.Any(), int64(70523)).Return(&metadata.Series{
		ID: 70523, Name: "Dark", FirstAirDate: "2017-12-01",
		Seasons: []metadata.SeasonSummary{{SeasonNumber: 1}},
	}, nil)

	res := h.svc.ImportSingle(ctx, 70523, KindSeries)
	assert.Equal(t, models.ImportWarning, res.Status)
	assert.Equal(t, "SKIPPED: 'Dark' (2017) already exists.", res.Message)
}

func TestImportSeriesRollsBackOnEpisodeFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dbtest.FailEpisodeInsert(t, h.db, 2)

	h.source.EXPECT().Series(gomock.Any(), int64(1399)).Return(&metadata.Series{
		ID:           1399,
		Name:         "Game of Thrones",
		FirstAirDate: "2011-04-17",
		Genres:       []metadata.Genre{{Name: "Drama"}},
		Seasons:      []metadata.SeasonSummary{{SeasonNumber: 1}},
	}, nil)
	h.source.EXPECT().Season(gomock.Any(), int64(1399), 1).Return(&metadata.SeasonDetails{SeasonNumber: 1, Episodes: episodes(3)}, nil)

	res := h.svc.ImportSingle(ctx, 1399, KindSeries)
	assert.Equal(t, models.ImportError, res.Status)
	assert.True(t, strings.HasPrefix(res.Message, "Failed to import 'Game of Thrones'. Reason: "), res.Message)

	for _, table := range []string{"entries", "seasons", "episodes", "servers", "subcategories"} {
		assert.Zero(t, dbtest.CountRows(t, h.db, table), table)
	}
}

func TestImportSingleRecoversPanic(t *testing.T) {
	h := newHarness(t)
	h.source.EXPECT().Movie(gomock.Any(), int64(9)).DoAndReturn(func(context.Context, int64) (*metadata.Movie, error) {
		panic("decoder exploded")
	})

	res := h.svc.ImportSingle(context.Background(), 9, KindMovie)
	assert.Equal(t, models.ImportError, res.Status)
	assert.Contains(t, res.Message, "decoder exploded")
	assert.Equal(t, []string{"movie:error"}, h.recorder.outcomes)
}

func TestImportYearSkipsExisting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	page := &metadata.ResultPage{Page: 1, TotalPages: 4}
	for id := int64(1); id <= 20; id++ {
		page.Results = append(page.Results, metadata.SearchResult{ID: id, Title: fmt.Sprintf("Movie %d", id), ReleaseDate: "2020-05-01"})
	}
	for id := 1; id <= 5; id++ {
		_, err := h.store.CreateEntry(ctx, &models.EntryDraft{
			Category: models.CategoryMovies,
			Entry:    models.Entry{Title: fmt.Sprintf("Movie %d", id), Year: "2020"},
		})
		require.NoError(t, err)
	}

	h.source.EXPECT().Discover(gomock.Any(), metadata.MediaMovie, 2020, 1).Return(page, nil)
	h.source.EXPECT().Movie(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, id int64) (*metadata.Movie, error) {
		return movieDoc(id, fmt.Sprintf("Movie %d", id), "2020-05-01"), nil
	}).Times(15)

	res, err := h.svc.ImportYear(ctx, KindMovie, 2020, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Generated)
	assert.Equal(t, 5, res.Skipped)
	require.Len(t, res.Results, 15)
	for _, r := range res.Results {
		assert.Equal(t, models.ImportSuccess, r.Status, r.Message)
	}
	assert.Equal(t, 20, dbtest.CountRows(t, h.db, "entries"))
}

func TestImportYearWithoutSkipCountsEveryItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.store.CreateEntry(ctx, &models.EntryDraft{
		Category: models.CategorySeries,
		Entry:    models.Entry{Title: "Show", Year: "2021"},
	})
	require.NoError(t, err)

	h.source.EXPECT().Discover(gomock.Any(), metadata.MediaTV, 2021, 3).Return(&metadata.ResultPage{
		Results: []metadata.SearchResult{{ID: 5, Name: "Show", FirstAirDate: "2021-02-02"}},
	}, nil)
	h.source.EXPECT().Series(gomock.Any(), int64(5)).Return(&metadata.Series{ID: 5, Name: "Show", FirstAirDate: "2021-02-02"}, nil)

	res, err := h.svc.ImportYear(ctx, KindSeries, 2021, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, models.ImportWarning, res.Results[0].Status)
}

func TestImportYearPageFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.source.EXPECT().Discover(gomock.Any(), metadata.MediaMovie, 2020, 1).Return(nil, metadata.ErrKeysExhausted)

	_, err := h.svc.ImportYear(context.Background(), KindMovie, 2020, 0, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, metadata.ErrKeysExhausted)
}

func TestSearchRequiresQuery(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Search(context.Background(), "multi", "")
	assert.True(t, IsValidation(err))

	h.source.EXPECT().Search(gomock.Any(), "movie", "heat").Return([]metadata.SearchResult{{ID: 949, Title: "Heat"}}, nil)
	results, err := h.svc.Search(context.Background(), "movie", "heat")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("tv")
	require.NoError(t, err)
	assert.Equal(t, KindSeries, k)
	assert.Equal(t, metadata.MediaTV, k.MediaType())

	k, err = ParseKind("Movie")
	require.NoError(t, err)
	assert.Equal(t, metadata.MediaMovie, k.MediaType())

	_, err = ParseKind("person")
	assert.True(t, IsValidation(err))
}
