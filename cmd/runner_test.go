package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
)

// fixture wires a runner to fake token and catalog endpoints through a real config file.
type fixture struct {
	dir     string
	config  string
	tokens  *tu.TokenServer
	catalog *tu.CatalogServer
	out     *bytes.Buffer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("SPX_CLIENT_ID", "")
	t.Setenv("SPX_CLIENT_SECRET", "")

	f := &fixture{
		dir:     t.TempDir(),
		tokens:  tu.NewTokenServer(t),
		catalog: tu.NewCatalogServer(t),
		out:     &bytes.Buffer{},
	}

	cfg := shared.DefaultConfig()
	cfg.Credentials.Spotify.ClientID = "id"
	cfg.Credentials.Spotify.ClientSecret = "secret"
	cfg.Credentials.Spotify.TokenURL = f.tokens.URL
	cfg.API.BaseURL = f.catalog.URL
	cfg.Data.Root = filepath.Join(f.dir, "data")
	cfg.Database.Path = filepath.Join(f.dir, "spx.db")
	cfg.Log.Level = "error"

	f.config = filepath.Join(f.dir, "config.toml")
	if err := shared.SaveConfig(f.config, cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
	return f
}

// run executes the CLI with a fresh runner and returns what it printed.
func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	f.out.Reset()
	r := NewRunner(RunnerOpts{Output: f.out, Logger: shared.NewLogger(&bytes.Buffer{})})
	err := newApp(r).Run(context.Background(), append([]string{"spx", "--config", f.config}, args...))
	return f.out.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.printer == nil {
				t.Error("expected printer to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected default output to be os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected default httpClient to be http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "  \"key\": \"value\"") {
				t.Errorf("expected indented JSON, got %q", output.String())
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(math.Inf(1), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes formatted text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("%d %s\n", 3, "artists"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "3 artists\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("x"); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := []string{}
		for _, c := range runner.register() {
			names = append(names, c.Name)
		}
		want := "setup auth ledger fetch harvest load serve"
		if got := strings.Join(names, " "); got != want {
			t.Errorf("expected commands %q, got %q", want, got)
		}
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file falls back to defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{})})
			config, err := runner.loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Database.Driver != string(shared.DialectSQLite) {
				t.Errorf("expected default driver, got %q", config.Database.Driver)
			}
		})

		t.Run("invalid file is an error", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(path, []byte("[database]\ndriver = \"oracle\"\n"), 0644)

			runner := NewRunner(RunnerOpts{})
			if _, err := runner.loadConfig(path); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})
}

func TestCommands(t *testing.T) {
	t.Run("setup", func(t *testing.T) {
		f := setup(t)

		if _, err := f.run(t, "setup", "workspace"); err != nil {
			t.Fatalf("setup workspace failed: %v", err)
		}
		tu.AssertDirExists(t, filepath.Join(f.dir, "data", "artists", "items"))
		tu.AssertFileExists(t, filepath.Join(f.dir, "data", "artists", "ids.csv"))

		out, err := f.run(t, "setup", "database")
		if err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		if !strings.Contains(out, "Schema at version") {
			t.Errorf("expected schema version, got %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(f.dir, "spx.db"))

		if _, err := f.run(t, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
	})

	t.Run("setup config refuses to overwrite", func(t *testing.T) {
		f := setup(t)
		if _, err := f.run(t, "setup", "config"); err == nil {
			t.Error("expected error for existing config file")
		}
	})

	t.Run("ledger", func(t *testing.T) {
		f := setup(t)

		out, err := f.run(t, "ledger", "add", "artists", "a1", "a2", "a1")
		if err != nil {
			t.Fatalf("ledger add failed: %v", err)
		}
		if !strings.Contains(out, "Added 2 artists") {
			t.Errorf("expected 2 added, got %q", out)
		}

		if _, err := f.run(t, "ledger", "rm", "artists", "a2"); err != nil {
			t.Fatalf("ledger remove failed: %v", err)
		}

		out, err = f.run(t, "ledger", "status", "--json", "artists")
		if err != nil {
			t.Fatalf("ledger status failed: %v", err)
		}
		var statuses []cache.Status
		if err := json.Unmarshal([]byte(out), &statuses); err != nil {
			t.Fatalf("expected JSON statuses, got %q: %v", out, err)
		}
		if len(statuses) != 1 || statuses[0].Ledger != 1 || statuses[0].Pending != 1 {
			t.Errorf("unexpected statuses %+v", statuses)
		}
	})

	t.Run("ledger rejects bad input", func(t *testing.T) {
		f := setup(t)

		tests := []struct {
			name string
			args []string
			want error
		}{
			{"no ids", []string{"ledger", "add", "artists"}, shared.ErrMissingArgument},
			{"unknown entity", []string{"ledger", "add", "podcasts", "x"}, shared.ErrInvalidArgument},
			{"genres have no ledger", []string{"ledger", "add", "genres", "rock"}, shared.ErrInvalidArgument},
			{"invalid id", []string{"ledger", "add", "artists", "../etc"}, shared.ErrInvalidIdentifier},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := f.run(t, tt.args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("auth", func(t *testing.T) {
		f := setup(t)

		out, err := f.run(t, "auth", "status")
		if err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if f.tokens.Calls() != 0 {
			t.Error("expected status not to contact the token endpoint")
		}

		out, err = f.run(t, "auth", "refresh")
		if err != nil {
			t.Fatalf("auth refresh failed: %v", err)
		}
		if !strings.Contains(out, "Lease valid until") {
			t.Errorf("unexpected output %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(f.dir, "data", "token.json"))

		out, err = f.run(t, "auth", "status")
		if err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(out, "✓ Lease valid") {
			t.Errorf("expected persisted lease to be reported, got %q", out)
		}
		if f.tokens.Calls() != 1 {
			t.Errorf("expected 1 exchange, got %d", f.tokens.Calls())
		}
	})

	t.Run("fetch then load", func(t *testing.T) {
		f := setup(t)
		f.catalog.Add("artists", "a1", map[string]any{"id": "a1", "name": "One", "genres": []string{"rock"}, "followers": map[string]int{"total": 1}})
		f.catalog.Add("artists", "a2", map[string]any{"id": "a2", "name": "Two", "genres": []string{"rock", "jazz"}, "followers": map[string]int{"total": 2}})

		if _, err := f.run(t, "ledger", "add", "artists", "a1", "a2"); err != nil {
			t.Fatalf("ledger add failed: %v", err)
		}

		report := filepath.Join(f.dir, "fetch.json")
		if _, err := f.run(t, "fetch", "--batch", "--report", report, "artists"); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		for _, id := range []string{"a1", "a2"} {
			tu.AssertFileExists(t, filepath.Join(f.dir, "data", "artists", "items", id+".json"))
		}
		if !strings.Contains(tu.MustReadFile(t, report), `"fetched": 2`) {
			t.Errorf("expected report to record 2 fetched, got %s", tu.MustReadFile(t, report))
		}

		out, err := f.run(t, "load", "--workers", "2", "--json", "all")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if !strings.Contains(out, `"target": "genres"`) {
			t.Errorf("expected per-target summaries, got %q", out)
		}

		db, err := shared.NewDatabase(filepath.Join(f.dir, "spx.db"))
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()
		if n := tu.CountRows(t, db, "genres"); n != 2 {
			t.Errorf("expected 2 genres, got %d", n)
		}
		if n := tu.CountRows(t, db, "artists_genres"); n != 3 {
			t.Errorf("expected 3 artist genre links, got %d", n)
		}
	})

	t.Run("fetch without credentials", func(t *testing.T) {
		f := setup(t)
		cfg, err := shared.LoadConfig(f.config)
		if err != nil {
			t.Fatal(err)
		}
		cfg.Credentials.Spotify.ClientSecret = ""
		shared.SaveConfig(f.config, cfg)

		if _, err := f.run(t, "fetch", "artists"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("harvest chapters", func(t *testing.T) {
		f := setup(t)
		ws := cache.NewWorkspace(filepath.Join(f.dir, "data"))
		book := map[string]any{
			"id": "b1", "name": "Book", "duration_ms": 1000,
			"chapters": map[string]any{"items": []map[string]any{
				{"id": "c1", "name": "One", "chapter_number": 0, "duration_ms": 10},
			}},
		}
		data, _ := json.Marshal(book)
		if _, err := ws.Put(models.Audiobooks, "b1", data); err != nil {
			t.Fatal(err)
		}

		if _, err := f.run(t, "harvest", "chapters"); err != nil {
			t.Fatalf("harvest failed: %v", err)
		}
		if !ws.Has(models.Chapters, "c1") {
			t.Error("expected chapter artifact to be written")
		}
	})

	t.Run("load requires a target", func(t *testing.T) {
		f := setup(t)
		if _, err := f.run(t, "load"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := f.run(t, "load", "nope"); !errors.Is(err, shared.ErrUnknownTarget) {
			t.Errorf("expected ErrUnknownTarget, got %v", err)
		}
	})
}
