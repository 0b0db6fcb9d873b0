package handlers

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

//go:embed admin_templates/*
var adminTemplates embed.FS

const (
	adminSessionCookieName = "cinemax_admin_session"
	adminSessionDuration   = 24 * time.Hour
)

// adminSessionStore manages admin session tokens
type adminSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]time.Time // token -> expiry
	now      func() time.Time
}

func newAdminSessionStore() *adminSessionStore {
	return &adminSessionStore{sessions: make(map[string]time.Time), now: time.Now}
}

func (s *adminSessionStore) create() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sessions[token] = now.Add(adminSessionDuration)

	// Cleanup expired sessions
	for t, exp := range s.sessions {
		if exp.Before(now) {
			delete(s.sessions, t)
		}
	}
	return token, nil
}

func (s *adminSessionStore) validate(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.sessions[token]
	if !ok {
		return false
	}
	return exp.After(s.now())
}

func (s *adminSessionStore) revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// AdminUIHandler serves the dashboard, its script, and the login flow.
type AdminUIHandler struct {
	mu           sync.RWMutex
	passwordHash string
	providers    []string
	sessions     *adminSessionStore

	dashboardTemplate *template.Template
	loginTemplate     *template.Template
}

// AdminPageData holds data for the dashboard template
type AdminPageData struct {
	CurrentYear int
	Providers   []string
	AuthEnabled bool
}

// LoginPageData holds data for the login template
type LoginPageData struct {
	Error string
}

// NewAdminUIHandler parses the embedded templates. An empty password hash
// leaves the dashboard and API open.
func NewAdminUIHandler(passwordHash string, providers []string) (*AdminUIHandler, error) {
	dashboard, err := template.ParseFS(adminTemplates, "admin_templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	login, err := template.ParseFS(adminTemplates, "admin_templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login template: %w", err)
	}
	return &AdminUIHandler{
		passwordHash:      strings.TrimSpace(passwordHash),
		providers:         providers,
		sessions:          newAdminSessionStore(),
		dashboardTemplate: dashboard,
		loginTemplate:     login,
	}, nil
}

// SetPasswordHash swaps the bcrypt hash after a settings update.
func (h *AdminUIHandler) SetPasswordHash(hash string) {
	h.mu.Lock()
	h.passwordHash = strings.TrimSpace(hash)
	h.mu.Unlock()
}

// HasPassword returns true if a password is configured
func (h *AdminUIHandler) HasPassword() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.passwordHash != ""
}

// IsAuthenticated checks if the request has a valid admin session
func (h *AdminUIHandler) IsAuthenticated(r *http.Request) bool {
	if !h.HasPassword() {
		return true
	}
	cookie, err := r.Cookie(adminSessionCookieName)
	if err != nil {
		return false
	}
	return h.sessions.validate(cookie.Value)
}

// RequireAuth is middleware that redirects to login if not authenticated
func (h *AdminUIHandler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.IsAuthenticated(r) {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// RequireAPIAuth rejects unauthenticated API calls with a JSON 401.
func (h *AdminUIHandler) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.IsAuthenticated(r) {
			writeActionError(w, http.StatusUnauthorized, "Authentication required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Dashboard serves the main admin dashboard
func (h *AdminUIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		CurrentYear: time.Now().Year(),
		Providers:   h.providers,
		AuthEnabled: h.HasPassword(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.dashboardTemplate.ExecuteTemplate(w, "dashboard", data); err != nil {
		log.Printf("[admin] dashboard template: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

// Script serves the dashboard JavaScript.
func (h *AdminUIHandler) Script(w http.ResponseWriter, r *http.Request) {
	js, err := adminTemplates.ReadFile("admin_templates/app.js")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(js)
}

// LoginPage serves the login page (GET)
func (h *AdminUIHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.IsAuthenticated(r) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, http.StatusOK, "")
}

// LoginSubmit handles login form submission (POST)
func (h *AdminUIHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !h.HasPassword() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, http.StatusBadRequest, "Invalid request")
		return
	}

	password := r.FormValue("password")
	if strings.TrimSpace(password) == "" {
		h.renderLogin(w, http.StatusBadRequest, "Password is required")
		return
	}

	h.mu.RLock()
	hash := h.passwordHash
	h.mu.RUnlock()
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		log.Printf("[admin] failed login from %s", r.RemoteAddr)
		h.renderLogin(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := h.sessions.create()
	if err != nil {
		log.Printf("[admin] %v", err)
		h.renderLogin(w, http.StatusInternalServerError, "Could not start session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminSessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(adminSessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout handles logout requests
func (h *AdminUIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(adminSessionCookieName); err == nil {
		h.sessions.revoke(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminSessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (h *AdminUIHandler) renderLogin(w http.ResponseWriter, status int, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.loginTemplate.ExecuteTemplate(w, "login", LoginPageData{Error: errMsg}); err != nil {
		log.Printf("[admin] login template: %v", err)
	}
}

// HashPassword returns the bcrypt hash stored in server.adminPasswordHash.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
