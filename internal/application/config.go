// Package application wires configuration, prompt loading and the
// evaluation run together.
package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/infrastructure/storage"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// Environment variables applied to every configured model after the file is
// parsed.
const (
	EnvAPIKey = "API_KEY"
	EnvProxy  = "PROXY"
)

// DefaultViewerAddr is where the results viewer listens when unset.
const DefaultViewerAddr = "127.0.0.1:3000"

// Config is the complete description of an evaluation run and of the
// results viewer that reads its output.
type Config struct {
	// PromptsDir holds the *.md prompt files, one prompt per file.
	PromptsDir string `yaml:"promptsDir" validate:"required"`

	// OutputDir is where the file store writes summaries. It is ignored by
	// the redis and s3 backends and overridden by storage.dir.
	OutputDir string `yaml:"outputDir"`

	// Storage selects where run summaries are persisted.
	Storage storage.Config `yaml:"storage"`

	// Models lists the backends to evaluate, in the order results are
	// produced.
	Models []domain.ModelConfig `yaml:"models" validate:"required,min=1,dive"`

	// EvaluationParams control repetition, concurrency, timeouts and the
	// similarity stage.
	EvaluationParams domain.EvaluationParams `yaml:"evaluationParams"`

	// Viewer configures the HTTP results viewer.
	Viewer ViewerConfig `yaml:"viewer"`
}

// ViewerConfig configures the results viewer.
type ViewerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:3000".
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// ConfigLoader parses, overrides and validates run configuration.
type ConfigLoader struct {
	validator *validator.Validate
	// lookupEnv reads overrides; os.LookupEnv outside tests.
	lookupEnv func(string) (string, bool)
}

// NewConfigLoader creates a loader with the custom validators registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v, lookupEnv: os.LookupEnv}, nil
}

// LoadConfig reads and validates the YAML file at path. Every error is
// prefixed with "failed to load config"; a missing file also matches
// ports.ErrConfigNotFound.
func LoadConfig(path string) (*Config, error) {
	loader, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	return loader.LoadFromFile(path)
}

// LoadFromFile reads and validates the YAML file at path.
func (cl *ConfigLoader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w",
				ports.NewConfigError(path, fmt.Errorf("%w: %w", ports.ErrConfigNotFound, err)))
		}
		return nil, fmt.Errorf("failed to load config: %w", ports.NewConfigError(path, err))
	}
	cfg, err := cl.load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadFromReader reads and validates YAML from r.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := cl.load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (cl *ConfigLoader) load(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config is empty")
		}
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	cl.applyEnvOverrides(&cfg)
	cfg.applyDefaults()

	if err := cl.validator.Struct(&cfg); err != nil {
		return nil, describeValidationErrors(err)
	}
	if err := validateSemantics(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides replaces every model's API key and proxy URL with the
// API_KEY and PROXY environment variables when they are set.
func (cl *ConfigLoader) applyEnvOverrides(cfg *Config) {
	key, hasKey := cl.lookupEnv(EnvAPIKey)
	proxy, hasProxy := cl.lookupEnv(EnvProxy)
	for i := range cfg.Models {
		if hasKey && key != "" {
			cfg.Models[i].APIKey = key
		}
		if hasProxy && proxy != "" {
			cfg.Models[i].ProxyURL = proxy
		}
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = cfg.OutputDir
	}
	cfg.Storage.Normalize()
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.Storage.Dir
	}
	if cfg.Viewer.Addr == "" {
		cfg.Viewer.Addr = DefaultViewerAddr
	}
}
