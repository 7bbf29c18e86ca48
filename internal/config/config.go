// Package config provides configuration loading and structs for the gradsys server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/parser"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool                  `yaml:"debug"`
	Server  ServerConfig          `yaml:"server"`
	Storage StorageConfig         `yaml:"storage"`
	Grading GradingConfig         `yaml:"grading"`
	Schema  SchemaConfig          `yaml:"schema"`
	PDF     extract.LayoutOptions `yaml:"pdf"`
	Watch   WatchConfig           `yaml:"watch"`
	Client  ClientConfig          `yaml:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// StorageConfig holds paths for the database and the course index.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
}

// GradingConfig holds the grade scale, per-course credit bounds and the graduation policy.
type GradingConfig struct {
	Scale         map[string]float64 `yaml:"scale"`
	PassSymbols   []string           `yaml:"pass_symbols"`
	PassThreshold float64            `yaml:"pass_threshold"`
	MinCredits    float64            `yaml:"min_credits"`
	MaxCredits    float64            `yaml:"max_credits"`
	MinGPA        float64            `yaml:"min_gpa"`
	MinECTS       int                `yaml:"min_ects"`
}

// SchemaConfig lists the transcript columns. Empty means parser.DefaultFieldSpecs.
type SchemaConfig struct {
	Fields []parser.FieldSpec `yaml:"fields"`
}

// WatchConfig holds inbox directory watch settings. Files dropped into a watched
// directory are submitted for the student named by the file's base name.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// AutoProcess evaluates eligibility right after a watched file is stored.
	AutoProcess bool `yaml:"auto_process"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Client modes.
const (
	ClientModeLive    = "live"
	ClientModeFixture = "fixture"
)

// ClientConfig selects how the CLI reaches transcript data: the live HTTP API or a
// fixture file for demos and front-end work without a server.
type ClientConfig struct {
	Mode        string        `yaml:"mode"`
	ServerURL   string        `yaml:"server_url"`
	FixturePath string        `yaml:"fixture_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	if cfg.Client.FixturePath != "" {
		cfg.Client.FixturePath = expandPath(cfg.Client.FixturePath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Client.Mode {
	case ClientModeLive:
	case ClientModeFixture:
		if c.Client.FixturePath == "" {
			return fmt.Errorf("config: client.fixture_path is required in fixture mode")
		}
	default:
		return fmt.Errorf("config: unknown client.mode %q (want %s or %s)", c.Client.Mode, ClientModeLive, ClientModeFixture)
	}
	if c.Grading.MaxCredits < c.Grading.MinCredits {
		return fmt.Errorf("config: grading.max_credits %v below min_credits %v", c.Grading.MaxCredits, c.Grading.MinCredits)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
