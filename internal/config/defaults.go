package config

import (
	"time"

	"github.com/hyperjump/gradsys/internal/grading"
	"github.com/hyperjump/gradsys/internal/parser"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 20 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/gradsys/data/db/transcripts.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/gradsys/data/indices/courses"
	}
	if len(cfg.Grading.Scale) == 0 {
		cfg.Grading.Scale = grading.DefaultPoints()
		// P and S belong to the default scale only.
		if cfg.Grading.PassSymbols == nil {
			cfg.Grading.PassSymbols = []string{"P", "S"}
		}
	}
	if cfg.Grading.PassThreshold == 0 {
		cfg.Grading.PassThreshold = 1.0
	}
	if cfg.Grading.MaxCredits == 0 {
		cfg.Grading.MaxCredits = 30
	}
	if cfg.Grading.MinGPA == 0 {
		cfg.Grading.MinGPA = 2.0
	}
	if cfg.Grading.MinECTS == 0 {
		cfg.Grading.MinECTS = 240
	}
	if len(cfg.Schema.Fields) == 0 {
		cfg.Schema.Fields = parser.DefaultFieldSpecs()
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".csv", ".pdf", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	if cfg.Client.Mode == "" {
		cfg.Client.Mode = ClientModeLive
	}
	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = "http://localhost:8080"
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 30 * time.Second
	}
}
