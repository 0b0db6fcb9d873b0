package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"cinemax/config"
)

// KeyReloader accepts a fresh TMDB key list.
type KeyReloader interface {
	Replace(keys []string)
}

type SettingsHandler struct {
	Manager *config.Manager
	Keys    KeyReloader
	Admin   *AdminUIHandler
}

func NewSettingsHandler(m *config.Manager, keys KeyReloader, admin *AdminUIHandler) *SettingsHandler {
	return &SettingsHandler{Manager: m, Keys: keys, Admin: admin}
}

// SettingsResponse wraps config.Settings with additional runtime information.
type SettingsResponse struct {
	config.Settings
	PasswordSet bool `json:"passwordSet"`
	KeyCount    int  `json:"keyCount"`
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	resp := SettingsResponse{
		Settings:    s,
		PasswordSet: s.Server.AdminPasswordHash != "",
		KeyCount:    len(s.Metadata.EffectiveKeys()),
	}
	resp.Server.AdminPasswordHash = ""
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.Manager.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// Fields missing from the body keep their stored values.
	s := current
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&s); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	// The password hash only changes through the CLI.
	s.Server.AdminPasswordHash = current.Server.AdminPasswordHash

	if err := h.Manager.Save(s); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.reloadServices(s)

	s.Server.AdminPasswordHash = ""
	writeJSON(w, http.StatusOK, s)
}

// reloadServices reloads services that cache configuration at startup
func (h *SettingsHandler) reloadServices(s config.Settings) {
	if h.Keys != nil {
		keys := s.Metadata.EffectiveKeys()
		h.Keys.Replace(keys)
		log.Printf("[settings] reloaded TMDB key pool with %d key(s)", len(keys))
	}
	if h.Admin != nil {
		h.Admin.SetPasswordHash(s.Server.AdminPasswordHash)
	}
}
