package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dbFileName       = "treeport.db"
	settingsFileName = "config.yaml"
)

// Config holds resolved configuration for the treeport directory, its
// database and its settings.
type Config struct {
	Dir          string // resolved .treeport directory path
	DBPath       string // full path to treeport.db
	SettingsPath string // full path to config.yaml
	EnvVarSet    bool   // whether TREEPORT_PATH was used
	Settings     Settings
}

// Settings are the tunables read from config.yaml.
type Settings struct {
	// FallbackActor is "importer" or "ghost".
	FallbackActor        string        `yaml:"fallback_actor" json:"fallback_actor"`
	RepairAttempts       int           `yaml:"repair_attempts" json:"repair_attempts"`
	RepairInitialBackoff time.Duration `yaml:"repair_initial_backoff" json:"repair_initial_backoff"`
	// Parallelism bounds concurrent restores of one import command.
	Parallelism int    `yaml:"parallelism" json:"parallelism"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
}

// DefaultSettings returns the settings used when config.yaml is absent.
func DefaultSettings() Settings {
	return Settings{
		FallbackActor:        "importer",
		RepairAttempts:       3,
		RepairInitialBackoff: 200 * time.Millisecond,
		Parallelism:          2,
		LogLevel:             "warn",
	}
}

// Resolve returns the current configuration by checking TREEPORT_PATH first,
// then falling back to $PWD/.treeport, and loads config.yaml when present.
func Resolve() (*Config, error) {
	var dir string
	var envVarSet bool

	if envPath := os.Getenv("TREEPORT_PATH"); envPath != "" {
		dir = envPath
		envVarSet = true
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cwd, ".treeport")
	}

	cfg := &Config{
		Dir:          dir,
		DBPath:       filepath.Join(dir, dbFileName),
		SettingsPath: filepath.Join(dir, settingsFileName),
		EnvVarSet:    envVarSet,
	}
	settings, err := LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings
	return cfg, nil
}

// LoadSettings reads settings from path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate reports settings that cannot be used.
func (s Settings) Validate() error {
	switch s.FallbackActor {
	case "importer", "ghost":
	default:
		return fmt.Errorf("fallback_actor must be importer or ghost, got %q", s.FallbackActor)
	}
	if s.RepairAttempts < 1 {
		return fmt.Errorf("repair_attempts must be at least 1, got %d", s.RepairAttempts)
	}
	if s.RepairInitialBackoff < 0 {
		return fmt.Errorf("repair_initial_backoff must not be negative")
	}
	if s.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", s.Parallelism)
	}
	return nil
}

// WriteSettings writes s to path as YAML.
func WriteSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Exists checks if the treeport directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.Dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(c.DBPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var (
	defaultUsername     string
	defaultUsernameOnce sync.Once
)

// DefaultUsername returns the username imports act as when none is given.
// It tries git config user.name first and falls back to the OS username.
// The result is cached for the lifetime of the process.
func DefaultUsername() string {
	defaultUsernameOnce.Do(func() {
		defaultUsername = resolveUsername()
	})
	return defaultUsername
}

func resolveUsername() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "config", "user.name").Output()
	if err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}

	u, err := user.Current()
	if err == nil && u.Username != "" {
		return u.Username
	}

	return "unknown"
}
