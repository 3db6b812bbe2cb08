package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	WatchConfig struct {
		Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
	}

	BuildConfig struct {
		DataDir          string      `yaml:"data_dir" validate:"required"`
		OutputDir        string      `yaml:"output_dir" validate:"required"`
		IllustrationsDir string      `yaml:"illustrations_dir"`
		AppDef           string      `yaml:"appdef"`
		BooksPrefix      string      `yaml:"books_prefix" validate:"required"`
		StateFile        string      `yaml:"state_file" validate:"required,filepath"`
		LockFile         string      `yaml:"lock_file" validate:"omitempty,filepath"`
		Parallel         int         `yaml:"parallel" validate:"gte=0"`
		Watch            WatchConfig `yaml:"watch"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Build     BuildConfig    `yaml:"build"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// IllustrationsPath returns directory figures are looked up in.
func (b *BuildConfig) IllustrationsPath(dataDir string) string {
	if b.IllustrationsDir != "" {
		return filepath.Clean(b.IllustrationsDir)
	}
	return filepath.Join(dataDir, "illustrations")
}

// AppDefPath returns location of the application definition.
func (b *BuildConfig) AppDefPath(dataDir string) string {
	if b.AppDef != "" {
		return filepath.Clean(b.AppDef)
	}
	return filepath.Join(dataDir, "appdef.xml")
}

// LockPath returns location of the build lock for given output directory.
func (b *BuildConfig) LockPath(outputDir string) string {
	if b.LockFile != "" {
		return filepath.Clean(b.LockFile)
	}
	return filepath.Join(outputDir, ".pkbuild.lock")
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitizing failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
