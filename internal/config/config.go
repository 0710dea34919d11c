package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/duopane/internal/logging"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Panels    PanelsConfig    `json:"panels"`
	History   HistoryConfig   `json:"history"`
	Favorites FavoritesConfig `json:"favorites"`
	Watch     WatchConfig     `json:"watch"`
	Access    AccessConfig    `json:"access"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Store     StoreConfig     `json:"store"`
}

// PanelsConfig holds panel refresh and listing settings
type PanelsConfig struct {
	RefreshIntervalSeconds int    `json:"refreshIntervalSeconds"`
	ShowHidden             bool   `json:"showHidden"`
	DefaultSort            string `json:"defaultSort"` // "name" | "date" | "size" | "type" | "permissions" | "owner"
	SortAscending          bool   `json:"sortAscending"`
	StartupCacheMaxAgeHrs  int    `json:"startupCacheMaxAgeHours"`
}

// HistoryConfig bounds the navigation and selections histories
type HistoryConfig struct {
	MaxEntries    int `json:"maxEntries"`    // per direction, per side
	SelectionsMax int `json:"selectionsMax"`
}

// FavoritesConfig controls the favorites tree
type FavoritesConfig struct {
	MaxDirectories int             `json:"maxDirectories"`
	MaxDepth       int             `json:"maxDepth"`
	Exclude        []string        `json:"exclude"` // doublestar globs matched against directory names
	ShowVolumes    bool            `json:"showVolumes"`
	Entries        []FavoriteEntry `json:"entries"`
}

// FavoriteEntry represents a single favorite or a group of favorites
type FavoriteEntry struct {
	Name     string          `json:"name"`
	Path     string          `json:"path,omitempty"` // Empty for groups
	Type     string          `json:"type,omitempty"` // "group" for folder groups
	Items    []FavoriteEntry `json:"items,omitempty"`
}

// WatchConfig controls filesystem notifications
type WatchConfig struct {
	Enabled    bool `json:"enabled"`
	DebounceMs int  `json:"debounceMs"`
}

// AccessConfig selects how permission prompts are answered
type AccessConfig struct {
	Policy string `json:"policy"` // "prompt" | "grant" | "deny"
}

// LoggingConfig mirrors logging.Config
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	OutputPath string `json:"outputPath"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
}

// MetricsConfig holds the optional Prometheus listener
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// StoreConfig locates the state database
type StoreConfig struct {
	Path string `json:"path"`
}

// RefreshInterval returns the polling interval as a duration.
func (p PanelsConfig) RefreshInterval() time.Duration {
	if p.RefreshIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(p.RefreshIntervalSeconds) * time.Second
}

// StartupCacheMaxAge returns how old a persisted listing may be before it is ignored.
func (p PanelsConfig) StartupCacheMaxAge() time.Duration {
	if p.StartupCacheMaxAgeHrs <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(p.StartupCacheMaxAgeHrs) * time.Hour
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a configuration manager for the default config path
func NewManager() *Manager {
	return NewManagerAt(ConfigPath())
}

// NewManagerAt creates a configuration manager for an explicit file
func NewManagerAt(path string) *Manager {
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Panels: PanelsConfig{
			RefreshIntervalSeconds: 60,
			ShowHidden:             false,
			DefaultSort:            "name",
			SortAscending:          true,
			StartupCacheMaxAgeHrs:  24,
		},
		History: HistoryConfig{
			MaxEntries:    50,
			SelectionsMax: 32,
		},
		Favorites: FavoritesConfig{
			MaxDirectories: 64,
			MaxDepth:       2,
			Exclude:        []string{"node_modules", ".git", "__pycache__"},
			ShowVolumes:    true,
			Entries: []FavoriteEntry{
				{Name: "Home", Path: home},
				{Name: "Documents", Path: filepath.Join(home, "Documents")},
				{Name: "Downloads", Path: filepath.Join(home, "Downloads")},
			},
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 200,
		},
		Access: AccessConfig{
			Policy: "prompt",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: filepath.Join(filepath.Dir(ConfigPath()), "duopane.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Store: StoreConfig{
			Path: filepath.Join(filepath.Dir(ConfigPath()), "duopane.db"),
		},
	}
}

// ConfigPath returns the config file path: ~/.config/duopane/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "duopane", "config.json")
}

// Path returns the file this manager reads and writes
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the configuration from the config file.
// If the file doesn't exist, creates it with defaults.
// If parsing fails, stores the error and keeps defaults.
// Keys missing from the file keep their default values.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parseErr = nil
	log := logging.L().With(zap.String("path", m.path))

	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Error("config: create directory", zap.Error(err))
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		log.Info("config: creating default config")
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Error("config: save default config", zap.Error(saveErr))
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Error("config: read", zap.Error(err))
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Warn("config: parse error, using defaults", zap.Error(err))
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	log.Debug("config: loaded")
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetShowHidden updates the show hidden files setting
func (m *Manager) SetShowHidden(show bool) error {
	m.mu.Lock()
	m.config.Panels.ShowHidden = show
	m.mu.Unlock()
	return m.Save()
}

// SetDefaultSort updates the default sort key and direction
func (m *Manager) SetDefaultSort(key string, ascending bool) error {
	m.mu.Lock()
	m.config.Panels.DefaultSort = key
	m.config.Panels.SortAscending = ascending
	m.mu.Unlock()
	return m.Save()
}

// AddFavorite adds a new top-level favorite
func (m *Manager) AddFavorite(name, path string) error {
	m.mu.Lock()
	m.config.Favorites.Entries = append(m.config.Favorites.Entries, FavoriteEntry{
		Name: name,
		Path: path,
	})
	m.mu.Unlock()
	return m.Save()
}

// ErrFavoriteNotFound is returned by RemoveFavorite for an unknown path
var ErrFavoriteNotFound = errors.New("no favorite with that path")

// RemoveFavorite removes a top-level favorite by path
func (m *Manager) RemoveFavorite(path string) error {
	m.mu.Lock()
	removed := false
	for i, fav := range m.config.Favorites.Entries {
		if fav.Path == path {
			m.config.Favorites.Entries = append(m.config.Favorites.Entries[:i], m.config.Favorites.Entries[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()
	if !removed {
		return fmt.Errorf("%w: %s", ErrFavoriteNotFound, path)
	}
	return m.Save()
}

// GenerateConfig backs up the config at path and writes a fresh default config.
// Returns the backup path if a backup was created, or empty string if no existing config
func GenerateConfig(configPath string) (backupPath string, err error) {
	if _, err := os.Stat(configPath); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(configPath), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}

		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}

	return backupPath, nil
}
