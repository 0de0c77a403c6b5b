package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/zgpcy/aws-cost-api/internal/logger"
	"gopkg.in/yaml.v3"
)

// Configuration validation constants
const (
	MinPort       = 1     // Minimum valid port number
	MaxPort       = 65535 // Maximum valid port number
	MaxAPITimeout = 300   // Maximum billing API timeout in seconds

	// Default values
	DefaultHost       = "0.0.0.0"
	DefaultHTTPPort   = 8000
	DefaultLogLevel   = "info"
	DefaultAPITimeout = 30 // API timeout in seconds
)

// Environment variables read by Load
const (
	EnvAccessKeyID       = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey   = "AWS_SECRET_ACCESS_KEY"
	EnvSessionToken      = "AWS_SESSION_TOKEN"
	EnvHost              = "COST_API_HOST"
	EnvHTTPPort          = "COST_API_PORT"
	EnvLogLevel          = "COST_API_LOG_LEVEL"
	EnvAPITimeout        = "COST_API_TIMEOUT"
	EnvVerifyCredentials = "COST_API_VERIFY_CREDENTIALS"
)

// Credentials are the static AWS credentials used by the billing client.
// They are only ever read from the environment, never from the YAML file.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Complete reports whether both required credential values are present
func (c Credentials) Complete() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Config represents the application configuration
type Config struct {
	Host              string      `yaml:"host"`
	HTTPPort          int         `yaml:"http_port"`
	LogLevel          string      `yaml:"log_level"`
	APITimeout        int         `yaml:"api_timeout"` // billing API timeout in seconds
	VerifyCredentials bool        `yaml:"verify_credentials"`
	Credentials       Credentials `yaml:"-"`
}

// Option adjusts the configuration after file and environment values are applied
type Option func(*Config)

// WithHost overrides the listen host when h is not empty
func WithHost(h string) Option {
	return func(cfg *Config) {
		if h != "" {
			cfg.Host = h
		}
	}
}

// WithPort overrides the listen port when p is not zero
func WithPort(p int) Option {
	return func(cfg *Config) {
		if p != 0 {
			cfg.HTTPPort = p
		}
	}
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort))
}

// Load builds the configuration from defaults, an optional YAML file,
// environment variables and finally opts, then validates it.
// An empty path skips the file.
func Load(path string, opts ...Option) (*Config, error) {
	var cfg Config

	if path != "" {
		// #nosec G304 -- Config file path is provided by administrator via CLI flag, not user input
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment variable error: %w", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for configuration
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = DefaultAPITimeout
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *Config) error {
	cfg.Credentials = Credentials{
		AccessKeyID:     strings.TrimSpace(os.Getenv(EnvAccessKeyID)),
		SecretAccessKey: strings.TrimSpace(os.Getenv(EnvSecretAccessKey)),
		SessionToken:    strings.TrimSpace(os.Getenv(EnvSessionToken)),
	}

	if val := os.Getenv(EnvHost); val != "" {
		cfg.Host = val
	}

	if val := os.Getenv(EnvHTTPPort); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: must be an integer, got %q", EnvHTTPPort, val)
		}
		cfg.HTTPPort = i
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv(EnvAPITimeout); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: must be an integer, got %q", EnvAPITimeout, val)
		}
		cfg.APITimeout = i
	}

	if val := os.Getenv(EnvVerifyCredentials); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s: must be a boolean, got %q", EnvVerifyCredentials, val)
		}
		cfg.VerifyCredentials = b
	}

	return nil
}

// validate validates the configuration.
// Missing credentials are not a validation error: the billing client
// reports them when it is constructed.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("host must not be empty")
	}

	if cfg.HTTPPort < MinPort || cfg.HTTPPort > MaxPort {
		return fmt.Errorf("http_port must be between %d and %d", MinPort, MaxPort)
	}

	if _, ok := logger.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}

	if cfg.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be positive, got %d", cfg.APITimeout)
	}

	if cfg.APITimeout > MaxAPITimeout {
		return fmt.Errorf("api_timeout should not exceed %d seconds, got %d", MaxAPITimeout, cfg.APITimeout)
	}

	return nil
}
