package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cptspacemanspiff/battery-monitor/internal/platform"
)

const (
	minCollectionIntervalSeconds = 1
	maxCollectionIntervalSeconds = 3600
	minRetentionDays             = 1
	maxRetentionDays             = 3650
	minCleanupIntervalHours      = 1
	maxCleanupIntervalHours      = 720
)

type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Collection CollectionConfig `toml:"collection"`
	Cleanup    CleanupConfig    `toml:"cleanup"`
	HTTP       HTTPConfig       `toml:"http"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

type CollectionConfig struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	Backend         string `toml:"backend"`
}

type CleanupConfig struct {
	RetentionDays int `toml:"retention_days"`
	IntervalHours int `toml:"interval_hours"`
}

// HTTPConfig controls the status API. An empty Listen disables it.
type HTTPConfig struct {
	Listen string `toml:"listen"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DBPath: "/var/lib/battery-monitor/data.db",
		},
		Collection: CollectionConfig{
			IntervalSeconds: 30,
			Backend:         "auto",
		},
		Cleanup: CleanupConfig{
			RetentionDays: 30,
			IntervalHours: 24,
		},
		HTTP: HTTPConfig{
			Listen: "127.0.0.1:9851",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return NormalizeAndValidate(cfg)
}

func NormalizeAndValidate(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	sanitized := *cfg

	var err error
	sanitized.Storage.DBPath, err = sanitizePath("storage.db_path", sanitized.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	if err := validateRange("collection.interval_seconds", sanitized.Collection.IntervalSeconds, minCollectionIntervalSeconds, maxCollectionIntervalSeconds); err != nil {
		return nil, err
	}
	sanitized.Collection.Backend = strings.ToLower(strings.TrimSpace(sanitized.Collection.Backend))
	if sanitized.Collection.Backend == "" {
		sanitized.Collection.Backend = "auto"
	}
	if !slices.Contains(platform.Backends, sanitized.Collection.Backend) {
		return nil, fmt.Errorf("collection.backend must be one of %s, got %q",
			strings.Join(platform.Backends, ", "), cfg.Collection.Backend)
	}
	if err := validateRange("cleanup.retention_days", sanitized.Cleanup.RetentionDays, minRetentionDays, maxRetentionDays); err != nil {
		return nil, err
	}
	if err := validateRange("cleanup.interval_hours", sanitized.Cleanup.IntervalHours, minCleanupIntervalHours, maxCleanupIntervalHours); err != nil {
		return nil, err
	}

	sanitized.HTTP.Listen = strings.TrimSpace(sanitized.HTTP.Listen)
	if sanitized.HTTP.Listen != "" && !strings.Contains(sanitized.HTTP.Listen, ":") {
		return nil, fmt.Errorf("http.listen must be host:port, got %q", cfg.HTTP.Listen)
	}

	return &sanitized, nil
}

// Save validates cfg and writes it to path as TOML. The file is replaced
// atomically so a running daemon never reads a partial config.
func Save(path string, cfg *Config) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config path must not be empty")
	}

	sanitized, err := NormalizeAndValidate(cfg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# battery-monitor-daemon configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(sanitized); err != nil {
		return fmt.Errorf("encode config TOML: %w", err)
	}
	return replaceFile(path, buf.Bytes())
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err = f.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

func sanitizePath(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%s must be an absolute path, got %q", name, value)
	}
	return cleaned, nil
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, value)
	}

	return nil
}
