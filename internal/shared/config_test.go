package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Driver != "sqlite3" {
			t.Errorf("expected database driver sqlite3, got %s", config.Database.Driver)
		}

		if config.Database.Path != "./spx.db" {
			t.Errorf("expected database path ./spx.db, got %s", config.Database.Path)
		}

		if config.API.BaseURL != "https://api.spotify.com/v1" {
			t.Errorf("expected api base url https://api.spotify.com/v1, got %s", config.API.BaseURL)
		}

		if config.Credentials.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("unexpected token url %s", config.Credentials.Spotify.TokenURL)
		}

		if config.Loader.Workers != 5 {
			t.Errorf("expected 5 loader workers, got %d", config.Loader.Workers)
		}

		if config.Data.Root != "./data/spotify" {
			t.Errorf("expected data root ./data/spotify, got %s", config.Data.Root)
		}

		if config.API.Timeout() != 30*time.Second {
			t.Errorf("expected 30s timeout, got %s", config.API.Timeout())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[api]
requests_per_second = 2.5

[loader]
workers = 8
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Database.Driver != "sqlite3" {
			t.Errorf("expected driver to keep its default, got %s", config.Database.Driver)
		}

		if config.Loader.Workers != 8 {
			t.Errorf("expected 8 workers, got %d", config.Loader.Workers)
		}

		if config.API.RequestsPerSecond != 2.5 {
			t.Errorf("expected 2.5 requests per second, got %v", config.API.RequestsPerSecond)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if !config.HasCredentials() {
			t.Error("expected credentials to be present")
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		t.Setenv("SPX_CLIENT_ID", "env_id")
		t.Setenv("SPX_CLIENT_SECRET", "env_secret")

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env_id" || config.Credentials.Spotify.ClientSecret != "env_secret" {
			t.Errorf("expected env credentials, got %+v", config.Credentials.Spotify)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
			ok     bool
		}{
			{name: "defaults", mutate: func(*Config) {}, ok: true},
			{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = "pgx" }, ok: false},
			{name: "postgres with dsn", mutate: func(c *Config) {
				c.Database.Driver = "pgx"
				c.Database.DSN = "postgres://localhost/spx"
			}, ok: true},
			{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, ok: false},
			{name: "sqlite without path", mutate: func(c *Config) { c.Database.Path = "" }, ok: false},
			{name: "negative workers", mutate: func(c *Config) { c.Loader.Workers = -1 }, ok: false},
			{name: "negative rate", mutate: func(c *Config) { c.API.RequestsPerSecond = -1 }, ok: false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				err := config.Validate()
				if tt.ok && err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("LeasePath", func(t *testing.T) {
		config := DefaultConfig()
		config.Data.Root = "/srv/spx"
		if got := config.LeasePath(); got != filepath.Join("/srv/spx", "token.json") {
			t.Errorf("unexpected default lease path %s", got)
		}

		config.Credentials.Spotify.LeasePath = "/tmp/lease.json"
		if got := config.LeasePath(); got != "/tmp/lease.json" {
			t.Errorf("expected explicit lease path, got %s", got)
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Loader.Workers = 3

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if loaded.Loader.Workers != 3 {
			t.Errorf("expected 3 workers after round trip, got %d", loaded.Loader.Workers)
		}
	})
}
