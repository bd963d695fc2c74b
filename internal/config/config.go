// Package config resolves host settings: built-in defaults, then an optional
// YAML file, then CARBONCLICKS_* environment variables. Command-line flags are
// applied last by the cmd package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the hosts read.
type Config struct {
	Addr       string `yaml:"addr" env:"CARBONCLICKS_ADDR"`
	APIBaseURL string `yaml:"apiBaseURL" env:"CARBONCLICKS_API_BASE_URL"`
	GraphQLURL string `yaml:"graphqlURL" env:"CARBONCLICKS_GRAPHQL_URL"`
	// FormsDir holds extra form definitions that override the built-ins.
	FormsDir string `yaml:"formsDir" env:"CARBONCLICKS_FORMS_DIR"`

	Theme   string `yaml:"theme" env:"CARBONCLICKS_THEME"`
	Variant string `yaml:"variant" env:"CARBONCLICKS_THEME_VARIANT"`

	// SubmitTimeout bounds each boundary call. Zero means no timeout.
	SubmitTimeout time.Duration `yaml:"submitTimeout" env:"CARBONCLICKS_SUBMIT_TIMEOUT"`
	// SimulatedDelay overrides the delay of simulated boundaries when set.
	SimulatedDelay time.Duration `yaml:"simulatedDelay" env:"CARBONCLICKS_SIMULATED_DELAY"`

	LogLevel  string `yaml:"logLevel" env:"CARBONCLICKS_LOG_LEVEL"`
	LogFormat string `yaml:"logFormat" env:"CARBONCLICKS_LOG_FORMAT"`

	// MockAPI mounts the demo backend on the web host and points the
	// boundaries at it when no API URL is configured.
	MockAPI bool `yaml:"mockAPI" env:"CARBONCLICKS_MOCK_API"`

	OTLPEndpoint string `yaml:"otlpEndpoint" env:"CARBONCLICKS_OTEL_ENDPOINT"`
	ServiceName  string `yaml:"serviceName" env:"CARBONCLICKS_SERVICE_NAME"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Addr:        ":8080",
		Theme:       "carbonclicks",
		LogLevel:    "info",
		LogFormat:   "json",
		MockAPI:     true,
		ServiceName: "carbonclicks",
	}
}

// Load applies the YAML file at path (when non-empty) and the environment on
// top of Default, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables. Unset variables
// leave the target untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.SubmitTimeout < 0 {
		errs = append(errs, errors.New("submitTimeout must not be negative"))
	}
	if c.SimulatedDelay < 0 {
		errs = append(errs, errors.New("simulatedDelay must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logFormat %q must be json or console", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// APIBase returns the REST base URL, falling back to fallback (typically the
// host's own address when the mock API is mounted).
func (c Config) APIBase(fallback string) string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	return strings.TrimRight(fallback, "/")
}

// GraphQLEndpoint returns the GraphQL URL, defaulting to APIBase + "/graphql".
func (c Config) GraphQLEndpoint(fallback string) string {
	if c.GraphQLURL != "" {
		return c.GraphQLURL
	}
	return c.APIBase(fallback) + "/graphql"
}
