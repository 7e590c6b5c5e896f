package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	envClientID     = "SPX_CLIENT_ID"
	envClientSecret = "SPX_CLIENT_SECRET"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Data        DataConfig        `toml:"data"`
	Database    DatabaseConfig    `toml:"database"`
	Loader      LoaderConfig      `toml:"loader"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the client credentials used to lease access tokens.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	LeasePath    string `toml:"lease_path"`
}

// Map returns the credentials in the form accepted by services constructors.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"token_url":     s.TokenURL,
	}
}

// APIConfig contains catalog API settings.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout, zero meaning none.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// DataConfig locates the ledger and artifact tree.
type DataConfig struct {
	Root string `toml:"root"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoaderConfig contains worker pool settings.
type LoaderConfig struct {
	Workers int `toml:"workers"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	MetricsFile string        `toml:"metrics_file"`
	MetricsAddr string        `toml:"metrics_addr"`
	Tracing     TracingConfig `toml:"tracing"`
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled    bool    `toml:"enabled"`
	Endpoint   string  `toml:"endpoint"`
	Insecure   bool    `toml:"insecure"`
	SampleRate float64 `toml:"sample_rate"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults and credentials may be
// overridden through SPX_CLIENT_ID and SPX_CLIENT_SECRET.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch Dialect(c.Database.Driver) {
	case DialectSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite3", ErrInvalidConfig)
		}
	case DialectPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for pgx", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	if c.Loader.Workers < 0 {
		return fmt.Errorf("%w: loader.workers must not be negative", ErrInvalidConfig)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: api.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// HasCredentials reports whether client credentials are configured.
func (c *Config) HasCredentials() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}

// LeasePath returns the persisted lease location, defaulting to the data root.
func (c *Config) LeasePath() string {
	if c.Credentials.Spotify.LeasePath != "" {
		return c.Credentials.Spotify.LeasePath
	}
	return filepath.Join(c.Data.Root, "token.json")
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envClientID); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv(envClientSecret); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
