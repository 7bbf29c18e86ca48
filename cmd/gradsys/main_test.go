package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/gradsys/internal/config"
	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/pipeline"
	"github.com/hyperjump/gradsys/internal/storage"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positional are moved first",
			args:     []string{"t-1", "--output", "json"},
			expected: []string{"--output", "json", "t-1"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"--output", "json", "t-1"},
			expected: []string{"--output", "json", "t-1"},
		},
		{
			name:     "positional only returns unchanged",
			args:     []string{"CS 101"},
			expected: []string{"CS 101"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"CS", "101", "-limit", "5"},
			expected: []string{"-limit", "5", "CS", "101"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInputFormat(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		path    string
		want    extract.Format
		wantErr bool
	}{
		{"from extension", "", "grades.XLSX", extract.FormatXLSX, false},
		{"flag wins", "csv", "export.txt", extract.FormatCSV, false},
		{"unknown extension", "", "notes.docx", "", true},
		{"unknown flag", "odt", "grades.csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inputFormat(tt.flag, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("inputFormat() err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("inputFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfigOrDefaults_explicitMissingPathFails(t *testing.T) {
	if _, err := loadConfigOrDefaults(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath: filepath.Join(dir, "transcripts.db"),
			IndexPath:    filepath.Join(dir, "courses"),
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestBuildPipeline_defaults(t *testing.T) {
	cfg := testConfig(t)
	p, err := buildPipeline(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := p.Run(context.Background(), pipeline.Input{
		Content: []byte("code,name,credits,grade\nCS101,Intro,3,A\nMA201,Calculus,4,B\n"),
		Format:  extract.FormatCSV,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !tr.IsValidForProcessing || len(tr.Rows) != 2 {
		t.Errorf("unexpected transcript: valid=%v rows=%d", tr.IsValidForProcessing, len(tr.Rows))
	}
}

func TestBuildPipeline_invalidScale(t *testing.T) {
	cfg := testConfig(t)
	cfg.Grading.Scale = map[string]float64{"A": -1}
	if _, err := buildPipeline(cfg, nil, false); err == nil {
		t.Error("expected error for a negative grade point")
	}
}

func TestIngestFile(t *testing.T) {
	cfg := testConfig(t)
	components, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	path := filepath.Join(t.TempDir(), "s-7.csv")
	if err := os.WriteFile(path, []byte("code,name,credits,grade\nCS101,Intro,3,A\n"), 0600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ingestFile(ctx, components.Registrar, path, cfg.Watch.Extensions, true, zap.NewNop())
	// A second event for the same content is a no-op.
	ingestFile(ctx, components.Registrar, path, cfg.Watch.Extensions, true, zap.NewNop())

	list, err := components.Registrar.List(ctx, storage.ListFilter{StudentUserID: "s-7"}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d transcripts, want 1", len(list))
	}
	if list[0].ProcessedAt == nil {
		t.Error("auto process should stamp processed_at")
	}
	if list[0].Eligible {
		t.Error("3 ECTS must not satisfy the default policy")
	}
}

func TestInitializeComponents_reindexesStoredTranscripts(t *testing.T) {
	cfg := testConfig(t)
	components, err := initializeComponents(cfg, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "s-8.csv")
	if err := os.WriteFile(path, []byte("code,name,credits,grade\nPH110,Physics,5,B\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := components.Registrar.SubmitFile(context.Background(), path, "s-8", nil); err != nil {
		t.Fatal(err)
	}
	components.Close()
	if err := os.RemoveAll(cfg.Storage.IndexPath); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.InfoLevel)
	reopened, err := initializeComponents(cfg, zap.New(core), true)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	n, err := reopened.CourseIndex.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DocCount() = %d, want 1", n)
	}
	if got := logs.FilterMessage("course index rebuilt").Len(); got != 1 {
		t.Errorf("rebuild logged %d times, want 1", got)
	}
}
