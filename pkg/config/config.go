// Package config loads and saves the taskrepo configuration and owns the
// paths of every auxiliary state file. Components never derive home
// directory layouts themselves; they take a *Config (or the narrow
// interface they need) instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	appDirName = ".taskrepo"
	configFile = "config.toml"
)

type Config struct {
	// ParentDir holds the tasks-* repositories.
	ParentDir string `toml:"parent_dir"`
	// SortBy lists sort fields in order; "-" prefix means descending.
	SortBy []string `toml:"sort_by"`
	// DefaultRepo receives new tasks when no --repo is given.
	DefaultRepo string `toml:"default_repo"`
	// ConflictStrategy is one of auto, local, remote, interactive.
	ConflictStrategy string `toml:"conflict_strategy"`

	Calendar CalendarConfig `toml:"calendar"`

	// dir is the directory the config was loaded from.
	dir string `toml:"-"`
}

type CalendarConfig struct {
	Enabled    bool   `toml:"enabled"`
	CalendarID string `toml:"calendar_id"`
}

// Dir returns the configuration/state directory (~/.taskrepo by default).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

func defaults(dir string) *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ParentDir:        filepath.Join(home, "tasks"),
		SortBy:           []string{"priority", "due", "created"},
		ConflictStrategy: "auto",
		Calendar:         CalendarConfig{CalendarID: "primary"},
		dir:              dir,
	}
}

// Load reads the config file, returning defaults when it does not exist.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom reads the config from an explicit state directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := defaults(dir)
	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	d := defaults(dir)
	if cfg.ParentDir == "" {
		cfg.ParentDir = d.ParentDir
	}
	if len(cfg.SortBy) == 0 {
		cfg.SortBy = d.SortBy
	}
	if cfg.ConflictStrategy == "" {
		cfg.ConflictStrategy = d.ConflictStrategy
	}
	if cfg.Calendar.CalendarID == "" {
		cfg.Calendar.CalendarID = "primary"
	}
	cfg.dir = dir
	return cfg, nil
}

// Save writes the config back to its state directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, configFile), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// ConfigPath returns the path of the config file itself.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, configFile)
}

// Auxiliary state file paths. pkg/gcal and pkg/idmap take these instead
// of hardcoding a home-directory layout.

func (c *Config) CredentialsFile() string { return filepath.Join(c.dir, "gcal_credentials.json") }
func (c *Config) TokenFile() string       { return filepath.Join(c.dir, "gcal_token.json") }
func (c *Config) MappingFile() string     { return filepath.Join(c.dir, "gcal_mapping.json") }
func (c *Config) ColorCacheFile() string  { return filepath.Join(c.dir, "project_colors.json") }
func (c *Config) IDCacheFile() string     { return filepath.Join(c.dir, "id_cache.json") }
