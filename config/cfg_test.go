package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rupor-github/gencfg"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Build.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.Build.DataDir)
	}
	if cfg.Build.OutputDir != "static" {
		t.Errorf("OutputDir = %q, want static", cfg.Build.OutputDir)
	}
	if cfg.Build.BooksPrefix != "books" {
		t.Errorf("BooksPrefix = %q, want books", cfg.Build.BooksPrefix)
	}
	if cfg.Build.Parallel != 0 {
		t.Errorf("Parallel = %d, want 0", cfg.Build.Parallel)
	}
	if cfg.Build.Watch.Debounce != 750*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 750ms", cfg.Build.Watch.Debounce)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("console level = %q, want normal", cfg.Logging.ConsoleLogger.Level)
	}
	if cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("file level = %q, want none", cfg.Logging.FileLogger.Level)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
build:
  data_dir: /srv/app/data
  output_dir: /srv/app/static
  illustrations_dir: /srv/app/pictures
  parallel: 4
  watch:
    debounce: 2s
logging:
  console:
    level: debug
  file:
    level: debug
    destination: ` + filepath.Join(tmpDir, "test.log") + `
    mode: append
reporting:
  destination: ` + filepath.Join(tmpDir, "report.zip") + `
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Build.DataDir != "/srv/app/data" {
		t.Errorf("DataDir = %q", cfg.Build.DataDir)
	}
	if cfg.Build.Parallel != 4 {
		t.Errorf("Parallel = %d, want 4", cfg.Build.Parallel)
	}
	if cfg.Build.Watch.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Build.Watch.Debounce)
	}
	if got := cfg.Build.IllustrationsPath("ignored"); got != "/srv/app/pictures" {
		t.Errorf("IllustrationsPath() = %q", got)
	}
	// values absent in the file come from defaults
	if cfg.Build.BooksPrefix != "books" {
		t.Errorf("BooksPrefix = %q, want default", cfg.Build.BooksPrefix)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("file mode = %q, want append", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `version: 1
build:
  data_dir: data
  invalid indent
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "unknown.yaml")

	configWithUnknown := `version: 1
unknown_field: value
build:
  data_dir: data
`

	if err := os.WriteFile(configPath, []byte(configWithUnknown), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	tests := map[string]string{
		"version":  "version: 2\n",
		"parallel": "version: 1\nbuild:\n  parallel: -1\n",
		"debounce": "version: 1\nbuild:\n  watch:\n    debounce: 0s\n",
		"level":    "version: 1\nlogging:\n  console:\n    level: loud\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	// Verify it's valid YAML by trying to unmarshal
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Build.Parallel = 3

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	// Verify we can load it back
	cfg2 := &Config{}
	if _, err = unmarshalConfig(data, cfg2, true); err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Build.Parallel != 3 {
		t.Errorf("Parallel after dump/load = %d, want 3", cfg2.Build.Parallel)
	}
	if cfg2.Build.Watch.Debounce != cfg.Build.Watch.Debounce {
		t.Errorf("Debounce after dump/load = %v, want %v", cfg2.Build.Watch.Debounce, cfg.Build.Watch.Debounce)
	}
}

func TestBuildConfig_Paths(t *testing.T) {
	b := BuildConfig{}
	if got, want := b.IllustrationsPath("data"), filepath.Join("data", "illustrations"); got != want {
		t.Errorf("IllustrationsPath() = %q, want %q", got, want)
	}
	if got, want := b.AppDefPath("data"), filepath.Join("data", "appdef.xml"); got != want {
		t.Errorf("AppDefPath() = %q, want %q", got, want)
	}
	if got, want := b.LockPath("static"), filepath.Join("static", ".pkbuild.lock"); got != want {
		t.Errorf("LockPath() = %q, want %q", got, want)
	}

	b.AppDef = "conf/./appdef.xml"
	b.LockFile = "/run/lock//pk.lock"
	if got, want := b.AppDefPath("data"), filepath.Join("conf", "appdef.xml"); got != want {
		t.Errorf("AppDefPath() = %q, want %q", got, want)
	}
	if got := b.LockPath("static"); got != "/run/lock/pk.lock" {
		t.Errorf("LockPath() = %q", got)
	}
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	data := []byte("version: 99\n")

	_, err := unmarshalConfig(data, &Config{}, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error (errors.Unwrap non-nil), got bare error: %v", err)
	}
}
