package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stevedore-deploy/stevedore/internal/logger"
)

// Config holds operator settings shared by all stevedore commands.
type Config struct {
	// DefaultTarget is the target spec ("[host]:path") used when a command
	// is invoked without an explicit --target flag.
	DefaultTarget string `yaml:"default_target"`
	// HookTimeout bounds execution of the on-start and on-stop hooks.
	HookTimeout time.Duration `yaml:"hook_timeout"`
	// HealthCheckTimeout bounds execution of the health-check hook.
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout"`
	// LogLevel is the minimum level emitted by the logger (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for operator settings.
	DefaultConfigFilename = "stevedore-settings.yaml"

	// DefaultHookTimeout is applied to on-start/on-stop hooks when unset.
	DefaultHookTimeout = 60 * time.Second

	// DefaultHealthCheckTimeout is applied to the health-check hook when unset.
	DefaultHealthCheckTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned when the log level does not parse.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but a missing settings file is not an error:
// the settings file is optional, every field has a usable default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults for unset fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %s", errUnknownLogLevel, cfg.LogLevel)
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = DefaultHookTimeout
	}

	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = DefaultHealthCheckTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
