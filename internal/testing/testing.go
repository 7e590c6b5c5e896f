// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/shared"
)

// StaticAuthorizer is a test double for [services.Authorizer]
type StaticAuthorizer struct {
	Header string
	Err    error
	calls  atomic.Int64
}

func (s *StaticAuthorizer) Authorization(context.Context) (string, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return "", s.Err
	}
	if s.Header == "" {
		return "Bearer test-token", nil
	}
	return s.Header, nil
}

// Calls returns how many times Authorization was called.
func (s *StaticAuthorizer) Calls() int { return int(s.calls.Load()) }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// RecordingSleeper stands in for the Retry-After wait and records each requested delay.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *RecordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// TokenServer is a fake client-credentials token endpoint.
type TokenServer struct {
	*httptest.Server
	Status    int
	ExpiresIn int
	calls     atomic.Int64
}

// NewTokenServer starts a token endpoint issuing tokens "token-1", "token-2", ...
func NewTokenServer(t *testing.T) *TokenServer {
	t.Helper()
	ts := &TokenServer{Status: http.StatusOK, ExpiresIn: 3600}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := ts.calls.Add(1)
		if err := r.ParseForm(); err != nil || r.Method != http.MethodPost ||
			r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") == "" || r.PostForm.Get("client_secret") == "" {
			http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if ts.Status != http.StatusOK {
			w.WriteHeader(ts.Status)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"bearer","expires_in":%d}`, n, ts.ExpiresIn)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// Calls returns the number of exchange requests received.
func (ts *TokenServer) Calls() int { return int(ts.calls.Load()) }

// CatalogServer is a fake catalog API serving objects from memory.
//
// Per-item requests hit /{entity}/{id}; batch requests hit /{entity}?ids=a,b and get
// {"<entity>": [object|null, ...]}. Ids listed in Fail answer with FailStatus, and
// the first RateLimit requests answer 429 with Retry-After.
type CatalogServer struct {
	*httptest.Server

	mu         sync.Mutex
	objects    map[string]map[string]json.RawMessage
	Fail       map[string]bool
	FailStatus int
	RateLimit  int
	RetryAfter string
	hits       []string
}

func NewCatalogServer(t *testing.T) *CatalogServer {
	t.Helper()
	cs := &CatalogServer{
		objects:    make(map[string]map[string]json.RawMessage),
		Fail:       make(map[string]bool),
		FailStatus: http.StatusNotFound,
		RetryAfter: "1",
	}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.handle))
	t.Cleanup(cs.Close)
	return cs
}

// Add serves obj for (entity, id).
func (cs *CatalogServer) Add(entity, id string, obj any) {
	data, err := json.Marshal(obj)
	if err != nil {
		panic(err)
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.objects[entity] == nil {
		cs.objects[entity] = make(map[string]json.RawMessage)
	}
	cs.objects[entity][id] = data
}

// Hits returns the request URIs received so far.
func (cs *CatalogServer) Hits() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.hits...)
}

func (cs *CatalogServer) handle(w http.ResponseWriter, r *http.Request) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.hits = append(cs.hits, r.URL.RequestURI())

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"error":"no token"}`, http.StatusUnauthorized)
		return
	}

	if cs.RateLimit > 0 {
		cs.RateLimit--
		w.Header().Set("Retry-After", cs.RetryAfter)
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	w.Header().Set("Content-Type", "application/json")

	switch len(parts) {
	case 2:
		entity, id := parts[0], parts[1]
		if cs.Fail[id] {
			w.WriteHeader(cs.FailStatus)
			return
		}
		obj, ok := cs.objects[entity][id]
		if !ok {
			http.Error(w, `{"error":{"status":404,"message":"Resource not found"}}`, http.StatusNotFound)
			return
		}
		w.Write(obj)
	case 1:
		entity := parts[0]
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		items := make([]json.RawMessage, 0, len(ids))
		for _, id := range ids {
			if cs.Fail[id] {
				w.WriteHeader(cs.FailStatus)
				return
			}
			if obj, ok := cs.objects[entity][id]; ok {
				items = append(items, obj)
			} else {
				items = append(items, json.RawMessage("null"))
			}
		}
		json.NewEncoder(w).Encode(map[string][]json.RawMessage{entity: items})
	default:
		http.NotFound(w, r)
	}
}

// NewTestDB opens a migrated SQLite database in a temp dir.
// A file is used instead of :memory: so several connections see the same data.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "spx.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db, shared.DialectSQLite); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// CountRows returns SELECT COUNT(*) FROM table.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

// WriteJSON writes v as JSON to path, creating parent directories.
func WriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal %T: %v", v, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
