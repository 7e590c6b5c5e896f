package shared

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDialect(t *testing.T) {
	t.Run("Rebind", func(t *testing.T) {
		tc := []struct {
			name    string
			dialect Dialect
			query   string
			want    string
		}{
			{
				name:    "sqlite untouched",
				dialect: DialectSQLite,
				query:   "SELECT 1 FROM artists WHERE spotify_id = ? AND artist_name = ?",
				want:    "SELECT 1 FROM artists WHERE spotify_id = ? AND artist_name = ?",
			},
			{
				name:    "postgres numbered",
				dialect: DialectPostgres,
				query:   "INSERT INTO tracks_artists (track_id, artist_id) VALUES (?, ?)",
				want:    "INSERT INTO tracks_artists (track_id, artist_id) VALUES ($1, $2)",
			},
			{
				name:    "no placeholders",
				dialect: DialectPostgres,
				query:   "SELECT COUNT(*) FROM genres",
				want:    "SELECT COUNT(*) FROM genres",
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.dialect.Rebind(tt.query); got != tt.want {
					t.Errorf("Rebind() = %q, want %q", got, tt.want)
				}
			})
		}
	})
}

func TestOpenDatabase(t *testing.T) {
	t.Run("SQLite File", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "spx.db"), MaxOpenConns: 4, MaxIdleConns: 2}
		db, dialect, err := OpenDatabase(cfg)
		if err != nil {
			t.Fatalf("OpenDatabase failed: %v", err)
		}
		defer db.Close()

		if dialect != DialectSQLite {
			t.Errorf("expected dialect sqlite3, got %s", dialect)
		}
		if got := db.Stats().MaxOpenConnections; got != 4 {
			t.Errorf("expected 4 max open connections, got %d", got)
		}
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		_, _, err := OpenDatabase(DatabaseConfig{Driver: "mysql"})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Memory Database Is Single Connection", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("NewDatabase failed: %v", err)
		}
		defer db.Close()

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("expected 1 max open connection, got %d", got)
		}
	})
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(db, DialectSQLite); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if _, err := db.Exec("INSERT INTO genres (genre_name) VALUES (?)", "ambient"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, dupErr := db.Exec("INSERT INTO genres (genre_name) VALUES (?)", "ambient")

	tc := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "sqlite unique", err: dupErr, want: true},
		{name: "wrapped sqlite unique", err: fmt.Errorf("insert genre: %w", dupErr), want: true},
		{name: "postgres unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "postgres foreign key", err: &pgconn.PgError{Code: "23503"}, want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
