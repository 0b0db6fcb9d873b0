package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"cinemax/api"
	"cinemax/handlers"
)

var (
	servePort   int
	setPassword string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin dashboard and the catalog API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server port from config")
	serveCmd.Flags().StringVar(&setPassword, "set-password", "", "store a new admin password before starting")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if setPassword != "" {
		hash, err := handlers.HashPassword(setPassword)
		if err != nil {
			return err
		}
		a.settings.Server.AdminPasswordHash = hash
		if err := a.cfg.Save(a.settings); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		log.Printf("[admin] password updated in %s", a.cfg.Path())
	}
	if servePort > 0 {
		a.settings.Server.Port = servePort
	}

	admin, err := handlers.NewAdminUIHandler(a.settings.Server.AdminPasswordHash, a.settings.Import.DefaultProviders)
	if err != nil {
		return err
	}
	if !admin.HasPassword() {
		slog.Warn("admin password not set; dashboard and API are open", "hint", "cinemax serve --set-password <password>")
	}

	r := mux.NewRouter()
	api.Register(r, api.Deps{
		Catalog:  handlers.NewCatalogHandler(a.catalog),
		Admin:    admin,
		Settings: handlers.NewSettingsHandler(a.cfg, a.keys, admin),
		Metrics:  a.metrics.Handler(),
		DB:       a.db,
	})

	addr := net.JoinHostPort(a.settings.Server.Host, strconv.Itoa(a.settings.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Bulk imports of a full discover page can run for minutes.
		WriteTimeout: 15 * time.Minute,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr, "driver", a.db.Driver, "tmdb_keys", a.keys.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	slog.Info("shutdown complete")
	return nil
}
