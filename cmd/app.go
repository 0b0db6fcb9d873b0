package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cinemax/config"
	"cinemax/internal/database"
	"cinemax/internal/metrics"
	"cinemax/services/catalog"
	"cinemax/services/metadata"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Manager
	settings config.Settings
	db       *database.DB
	metrics  *metrics.Collector
	keys     *metadata.KeyPool
	tmdb     *metadata.Client
	catalog  *catalog.Service
	logs     io.Closer
}

// newApp loads settings, opens and migrates the database, and builds the
// TMDB client and catalog service.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.NewManager(resolveConfigPath())
	settings, err := cfg.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	a := &app{cfg: cfg, settings: settings, logs: setupLogging(settings.Log)}

	a.db, err = database.Open(settings.Database.Driver, settings.Database.DSN)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.db.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.metrics = metrics.New()
	a.keys = metadata.NewKeyPool(settings.Metadata.EffectiveKeys())
	if a.keys.Len() == 0 {
		slog.Warn("no TMDB API keys configured; imports will fail", "env", config.EnvTMDBKeys)
	}
	a.tmdb = metadata.NewClient(a.keys,
		metadata.WithLanguage(settings.Metadata.Language),
		metadata.WithTimeout(settings.Metadata.RequestTimeout()),
		metadata.WithMinInterval(settings.Metadata.MinInterval()),
		metadata.WithObserver(a.metrics),
	)

	providers, unknown := catalog.ResolveProviders(settings.Import.DefaultProviders)
	if len(unknown) > 0 {
		slog.Warn("ignoring unknown embed providers", "providers", strings.Join(unknown, ","))
	}
	opts := []catalog.Option{
		catalog.WithSeasonDelay(settings.Import.SeasonDelay()),
		catalog.WithRecorder(a.metrics),
	}
	if len(providers) > 0 {
		opts = append(opts, catalog.WithProviders(providers))
	}
	a.catalog, err = catalog.NewService(a.tmdb, database.NewCatalogStore(a.db), opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("close database", "error", err)
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
