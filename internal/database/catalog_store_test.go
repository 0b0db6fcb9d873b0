package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinemax/internal/database"
	"cinemax/internal/database/dbtest"
	"cinemax/models"
)

func seriesDraft(title, year string) *models.EntryDraft {
	episode := func(n int) models.EpisodeDraft {
		return models.EpisodeDraft{
			Number:   n,
			Title:    "Episode",
			Duration: "45m",
			Servers:  []models.ServerDraft{{Name: "VidSrc", URL: "https://vidsrc.net/embed/tv/1/1/1"}},
		}
	}
	return &models.EntryDraft{
		Category:    models.CategorySeries,
		Subcategory: "Drama",
		Entry:       models.Entry{Title: title, Year: year, Rating: 8.1},
		Seasons: []models.SeasonDraft{
			{Number: 1, Poster: "p1", Episodes: []models.EpisodeDraft{episode(1), episode(2)}},
			{Number: 2, Episodes: []models.EpisodeDraft{episode(1)}},
		},
	}
}

func TestMigrateSeedsCategories(t *testing.T) {
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	cats, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{models.CategoryMovies, models.CategorySeries, models.CategoryLiveTV}, names)

	version, err := db.Version(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
}

func TestCreateEntryWritesTree(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	id, err := store.CreateEntry(ctx, seriesDraft("Dark", "2017"))
	require.NoError(t, err)
	require.NotZero(t, id)

	exists, err := store.EntryExists(ctx, "Dark", "2017")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.EntryExists(ctx, "Dark", "2018")
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := store.ListEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Drama", entries[0].Subcategory)
	assert.InDelta(t, 8.1, entries[0].Rating, 0.001)

	seasons, err := store.ListSeasons(ctx, id)
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	assert.Equal(t, "p1", seasons[0].Poster)
	assert.Equal(t, "", seasons[1].Poster)

	episodes, err := store.ListEpisodes(ctx, seasons[0].ID)
	require.NoError(t, err)
	require.Len(t, episodes, 2)

	servers, err := store.ListEpisodeServers(ctx, episodes[0].ID)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.NotNil(t, servers[0].EpisodeID)
	assert.Nil(t, servers[0].EntryID)
}

func TestCreateEntryReusesSubcategory(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	_, err := store.CreateEntry(ctx, seriesDraft("Dark", "2017"))
	require.NoError(t, err)
	_, err = store.CreateEntry(ctx, seriesDraft("1899", "2022"))
	require.NoError(t, err)

	assert.Equal(t, 1, dbtest.CountRows(t, db, "subcategories"))
}

func TestCreateEntryDuplicateIsConstraintError(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	_, err := store.CreateEntry(ctx, seriesDraft("Dark", "2017"))
	require.NoError(t, err)

	_, err = store.CreateEntry(ctx, seriesDraft("Dark", "2017"))
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrConstraint)
	assert.Equal(t, 1, dbtest.CountRows(t, db, "entries"))
}

func TestCreateEntryRollsBackOnEpisodeFailure(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)
	dbtest.FailEpisodeInsert(t, db, 2)

	_, err := store.CreateEntry(ctx, seriesDraft("Dark", "2017"))
	require.Error(t, err)

	for _, table := range []string{"entries", "seasons", "episodes", "servers"} {
		assert.Zero(t, dbtest.CountRows(t, db, table), table)
	}
}

func TestCreateEntryUnknownCategory(t *testing.T) {
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	draft := seriesDraft("Dark", "2017")
	draft.Category = "Podcasts"
	_, err := store.CreateEntry(context.Background(), draft)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCreateEntryRollbackWithMock(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM categories`).
		WithArgs(models.CategoryMovies).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO subcategories`).
		WithArgs("Action").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO entries`).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	store := database.NewCatalogStore(database.Wrap(sqlDB, database.DriverPostgres))
	_, err = store.CreateEntry(context.Background(), &models.EntryDraft{
		Category:    models.CategoryMovies,
		Subcategory: "Action",
		Entry:       models.Entry{Title: "Heat", Year: "1995"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	_, err := store.CreateEntry(ctx, seriesDraft("Dark", "2017"))
	require.NoError(t, err)
	_, err = store.CreateEntry(ctx, &models.EntryDraft{
		Category: models.CategoryMovies,
		Entry:    models.Entry{Title: "Heat", Year: "1995"},
		Servers:  []models.ServerDraft{{Name: "VidSrc", URL: "https://vidsrc.net/embed/movie/949"}},
	})
	require.NoError(t, err)

	n, err := store.DeleteEntry(ctx, "Dark", models.CategoryMovies)
	require.NoError(t, err)
	assert.Zero(t, n, "title in a different category is untouched")

	n, err = store.DeleteEntry(ctx, "Dark", models.CategorySeries)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Zero(t, dbtest.CountRows(t, db, "episodes"))
	assert.Equal(t, 1, dbtest.CountRows(t, db, "servers"))

	require.NoError(t, store.ClearAll(ctx))
	for _, table := range []string{"entries", "seasons", "episodes", "servers"} {
		assert.Zero(t, dbtest.CountRows(t, db, table), table)
	}
	assert.Equal(t, 3, dbtest.CountRows(t, db, "categories"))
}

func TestRemoveDuplicates(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec(`DELETE FROM entries\s+WHERE id IN \(\s+SELECT e.id`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	store := database.NewCatalogStore(database.Wrap(sqlDB, database.DriverSQLite))
	removed, err := store.RemoveDuplicates(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveDuplicatesNoopOnCleanCatalog(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	_, err := store.CreateEntry(ctx, seriesDraft("Dark", "2017"))
	require.NoError(t, err)

	removed, err := store.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 1, dbtest.CountRows(t, db, "entries"))
}

func TestAttachServers(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCatalogStore(db)

	id, err := store.CreateEntry(ctx, &models.EntryDraft{
		Category: models.CategoryMovies,
		Entry:    models.Entry{Title: "Heat", Year: "1995"},
	})
	require.NoError(t, err)

	err = store.AttachServers(ctx, []models.Server{
		{EntryID: &id, Name: "VidJoy", URL: "https://vidjoy.pro/embed/movie/949"},
		{EntryID: &id, Name: "DRM", URL: "https://cdn/x.mpd", IsDRM: true, LicenseURL: "https://lic"},
	})
	require.NoError(t, err)

	servers, err := store.ListEntryServers(ctx, id)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.True(t, servers[1].IsDRM)
	assert.Equal(t, "https://lic", servers[1].LicenseURL)
	assert.Equal(t, "", servers[0].LicenseURL)
}
