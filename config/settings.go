package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// EnvTMDBKeys overrides metadata.tmdbApiKeys with a comma-separated list.
const EnvTMDBKeys = "TMDB_API_KEYS"

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Metadata MetadataSettings `json:"metadata"`
	Database DatabaseSettings `json:"database"`
	Import   ImportSettings   `json:"import"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// AdminPasswordHash is a bcrypt hash; empty leaves the dashboard open.
	AdminPasswordHash string `json:"adminPasswordHash,omitempty"`
}

type MetadataSettings struct {
	TMDBAPIKeys           []string `json:"tmdbApiKeys"`
	Language              string   `json:"language"`
	RequestTimeoutSeconds int      `json:"requestTimeoutSeconds"`
	MinIntervalMs         int      `json:"minIntervalMs"`
}

// EffectiveKeys returns the keys from TMDB_API_KEYS when set, else the configured ones.
func (m MetadataSettings) EffectiveKeys() []string {
	if env := strings.TrimSpace(os.Getenv(EnvTMDBKeys)); env != "" {
		return splitList(env)
	}
	return m.TMDBAPIKeys
}

func (m MetadataSettings) RequestTimeout() time.Duration {
	if m.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(m.RequestTimeoutSeconds) * time.Second
}

func (m MetadataSettings) MinInterval() time.Duration {
	if m.MinIntervalMs < 0 {
		return 0
	}
	return time.Duration(m.MinIntervalMs) * time.Millisecond
}

// DatabaseSettings selects the catalog database.
type DatabaseSettings struct {
	Driver string `json:"driver"` // sqlite3 | postgres
	DSN    string `json:"dsn"`
}

// ImportSettings tunes TMDB imports.
type ImportSettings struct {
	SeasonDelayMs    int      `json:"seasonDelayMs"`
	DefaultProviders []string `json:"defaultProviders"`
}

func (i ImportSettings) SeasonDelay() time.Duration {
	if i.SeasonDelayMs < 0 {
		return 0
	}
	return time.Duration(i.SeasonDelayMs) * time.Millisecond
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 7777},
		Metadata: MetadataSettings{
			TMDBAPIKeys:           []string{},
			Language:              "en",
			RequestTimeoutSeconds: 15,
			MinIntervalMs:         20,
		},
		Database: DatabaseSettings{Driver: "sqlite3", DSN: "cache/catalog.db"},
		Import: ImportSettings{
			SeasonDelayMs:    250,
			DefaultProviders: []string{"VidSrc", "VidJoy"},
		},
		Log: LogConfig{
			File:       "cache/logs/cinemax.log",
			Level:      "info",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	fs   afero.Fs
	path string
}

func NewManager(configPath string) *Manager {
	return NewManagerWithFs(afero.NewOsFs(), configPath)
}

// NewManagerWithFs is used by tests with an in-memory filesystem.
func NewManagerWithFs(fsys afero.Fs, configPath string) *Manager {
	return &Manager{fs: fsys, path: configPath}
}

func (m *Manager) Path() string { return m.path }

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return m.fs.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := m.fs.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return Settings{}, err
	}

	// Older files carry a single tmdbApiKey string.
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, err
	}
	if meta, ok := raw["metadata"].(map[string]interface{}); ok {
		if single, ok := meta["tmdbApiKey"].(string); ok {
			if _, hasList := meta["tmdbApiKeys"]; !hasList && strings.TrimSpace(single) != "" {
				meta["tmdbApiKeys"] = splitList(single)
			}
			delete(meta, "tmdbApiKey")
		}
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	if err := json.Unmarshal(normalized, &s); err != nil {
		return Settings{}, err
	}

	if s.Metadata.TMDBAPIKeys == nil {
		s.Metadata.TMDBAPIKeys = []string{}
	}
	if strings.TrimSpace(s.Database.Driver) == "" {
		s.Database.Driver = "sqlite3"
	}
	if s.Import.DefaultProviders == nil {
		s.Import.DefaultProviders = DefaultSettings().Import.DefaultProviders
	}
	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := m.fs.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = m.fs.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = m.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = m.fs.Remove(tmp)
		return err
	}
	return m.fs.Rename(tmp, m.path)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
