package api

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"cinemax/handlers"
)

// RequestIDHeader carries the per-request id echoed back to clients.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Pinger reports whether the catalog database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the handlers mounted by Register.
type Deps struct {
	Catalog  http.Handler
	Admin    *handlers.AdminUIHandler
	Settings *handlers.SettingsHandler
	Metrics  http.Handler
	DB       Pinger
}

// RequestID returns the id assigned by requestIDMiddleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware tags every API request with an id, reusing the caller's when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// localhostOnlyMiddleware restricts access to localhost requests only
func localhostOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = strings.Trim(host, "[]")
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			http.Error(w, "Debug endpoints only accessible from localhost", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register mounts the catalog API, the admin dashboard and the operational endpoints.
func Register(r *mux.Router, d Deps) {
	// The action endpoint answers on both paths used by existing dashboards.
	for _, path := range []string{"/api", "/api.php"} {
		r.Handle(path, chain(d.Catalog, d.Admin)).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	}

	if d.Settings != nil {
		settings := r.PathPrefix("/api/settings").Subrouter()
		settings.Use(corsMiddleware, requestIDMiddleware)
		if d.Admin != nil {
			settings.Use(d.Admin.RequireAPIAuth)
		}
		settings.HandleFunc("", d.Settings.GetSettings).Methods(http.MethodGet)
		settings.HandleFunc("", d.Settings.PutSettings).Methods(http.MethodPut)
	}

	if d.Admin != nil {
		r.HandleFunc("/admin/login", d.Admin.LoginPage).Methods(http.MethodGet)
		r.HandleFunc("/admin/login", d.Admin.LoginSubmit).Methods(http.MethodPost)
		r.HandleFunc("/admin/logout", d.Admin.Logout).Methods(http.MethodGet, http.MethodPost)
		r.HandleFunc("/admin/static/app.js", d.Admin.RequireAuth(d.Admin.Script)).Methods(http.MethodGet)
		r.HandleFunc("/admin", d.Admin.RequireAuth(d.Admin.Dashboard)).Methods(http.MethodGet)
		r.HandleFunc("/admin/", d.Admin.RequireAuth(d.Admin.Dashboard)).Methods(http.MethodGet)
		r.Handle("/", http.RedirectHandler("/admin", http.StatusFound)).Methods(http.MethodGet)
	}

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", healthHandler(d.DB)).Methods(http.MethodGet)

	pprofRouter := r.PathPrefix("/debug/pprof").Subrouter()
	pprofRouter.Use(localhostOnlyMiddleware)
	pprofRouter.HandleFunc("/", pprof.Index)
	pprofRouter.HandleFunc("/cmdline", pprof.Cmdline)
	pprofRouter.HandleFunc("/profile", pprof.Profile)
	pprofRouter.HandleFunc("/symbol", pprof.Symbol)
	pprofRouter.HandleFunc("/trace", pprof.Trace)
	pprofRouter.HandleFunc("/{profile}", func(w http.ResponseWriter, req *http.Request) {
		pprof.Handler(mux.Vars(req)["profile"]).ServeHTTP(w, req)
	})
}

func chain(h http.Handler, admin *handlers.AdminUIHandler) http.Handler {
	if admin != nil {
		h = admin.RequireAPIAuth(h)
	}
	return corsMiddleware(requestIDMiddleware(h))
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
