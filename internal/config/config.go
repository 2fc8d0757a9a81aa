// Package config loads the formflow command configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Session store backends.
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// Config is the formflow configuration file.
type Config struct {
	Locale   string   `yaml:"locale" validate:"max=16"`
	LogLevel string   `yaml:"log_level" validate:"oneof=debug info warn warning error fatal panic trace"`
	Backend  Backend  `yaml:"backend"`
	Server   Server   `yaml:"server"`
	Sessions Sessions `yaml:"sessions"`
}

// Backend describes the form backend the transport client talks to.
type Backend struct {
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Server configures the session API.
type Server struct {
	Addr         string `yaml:"addr" validate:"required"`
	FormsDir     string `yaml:"forms_dir"`
	TemplatesDir string `yaml:"templates_dir"`
	BasePath     string `yaml:"base_path"`
}

// Sessions selects where session checkpoints are kept.
type Sessions struct {
	Backend  string        `yaml:"backend" validate:"oneof=memory redis"`
	RedisURL string        `yaml:"redis_url" validate:"required_if=Backend redis,omitempty,url"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
	Idle     time.Duration `yaml:"idle" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Locale:   "en",
		LogLevel: "info",
		Backend: Backend{
			Timeout: 30 * time.Second,
		},
		Server: Server{
			Addr: ":8080",
		},
		Sessions: Sessions{
			Backend: SessionsMemory,
			TTL:     24 * time.Hour,
			Idle:    30 * time.Minute,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and reports each invalid key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	issues := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, fmt.Errorf("config: %s fails %q", fe.Namespace(), fe.Tag()))
	}
	return errors.Join(issues...)
}
