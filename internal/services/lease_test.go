package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
)

func credentials(tokenURL string) map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"token_url":     tokenURL,
	}
}

func writeLeaseFile(t *testing.T, path, token string, expiresAt time.Time) {
	t.Helper()
	tu.WriteJSON(t, path, map[string]string{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   expiresAt.UTC().Format(time.RFC3339),
	})
}

func TestLeaseManager(t *testing.T) {
	t.Run("NewLeaseManager", func(t *testing.T) {
		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewLeaseManager(map[string]string{"client_secret": "s"}, "")
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewLeaseManager(map[string]string{"client_id": "id"}, "")
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Starts Expired Without Lease File", func(t *testing.T) {
			m, err := NewLeaseManager(credentials("http://unused"), filepath.Join(t.TempDir(), "token.json"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !m.Expired() {
				t.Error("expected a fresh manager to be expired")
			}
		})

		t.Run("Starts Expired With Malformed Lease File", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
				t.Fatal(err)
			}
			m, err := NewLeaseManager(credentials("http://unused"), path)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !m.Expired() {
				t.Error("expected a malformed lease to leave the manager expired")
			}
		})
	})

	t.Run("Expired Lease Refreshes Exactly Once", func(t *testing.T) {
		ts := tu.NewTokenServer(t)
		path := filepath.Join(t.TempDir(), "token.json")
		writeLeaseFile(t, path, "stale", time.Now().Add(-time.Hour))

		m, err := NewLeaseManager(credentials(ts.URL), path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		header, err := m.Authorization(context.Background())
		if err != nil {
			t.Fatalf("Authorization failed: %v", err)
		}
		if header != "Bearer token-1" {
			t.Errorf("expected Bearer token-1, got %q", header)
		}
		if ts.Calls() != 1 {
			t.Errorf("expected 1 refresh call, got %d", ts.Calls())
		}

		if _, err := m.Authorization(context.Background()); err != nil {
			t.Fatalf("second Authorization failed: %v", err)
		}
		if ts.Calls() != 1 {
			t.Errorf("expected the refreshed lease to be reused, got %d calls", ts.Calls())
		}
	})

	t.Run("Valid Lease Skips Refresh", func(t *testing.T) {
		ts := tu.NewTokenServer(t)
		path := filepath.Join(t.TempDir(), "token.json")
		writeLeaseFile(t, path, "persisted", time.Now().Add(24*time.Hour))

		m, err := NewLeaseManager(credentials(ts.URL), path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		header, err := m.Authorization(context.Background())
		if err != nil {
			t.Fatalf("Authorization failed: %v", err)
		}
		if header != "Bearer persisted" {
			t.Errorf("expected persisted token, got %q", header)
		}
		if ts.Calls() != 0 {
			t.Errorf("expected no refresh calls, got %d", ts.Calls())
		}
		if err := m.Refresh(context.Background()); err != nil || ts.Calls() != 0 {
			t.Errorf("Refresh on a valid lease should be a no-op, got err=%v calls=%d", err, ts.Calls())
		}
	})

	t.Run("Safety Margin", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		writeLeaseFile(t, path, "edge", now.Add(2*time.Second))

		tc := []struct {
			name    string
			margin  time.Duration
			expired bool
		}{
			{name: "inside margin", margin: 3 * time.Second, expired: true},
			{name: "outside margin", margin: time.Second, expired: false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				m, err := NewLeaseManager(credentials("http://unused"), path,
					WithClock(func() time.Time { return now }), WithSafetyMargin(tt.margin))
				if err != nil {
					t.Fatalf("failed to create manager: %v", err)
				}
				if m.Expired() != tt.expired {
					t.Errorf("Expired() = %v, want %v", m.Expired(), tt.expired)
				}
			})
		}
	})

	t.Run("Persists Refreshed Lease", func(t *testing.T) {
		ts := tu.NewTokenServer(t)
		path := filepath.Join(t.TempDir(), "nested", "token.json")

		m, err := NewLeaseManager(credentials(ts.URL), path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if err := m.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}

		var persisted map[string]string
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &persisted); err != nil {
			t.Fatalf("lease file is not JSON: %v", err)
		}
		if persisted["access_token"] != "token-1" {
			t.Errorf("expected token-1 persisted, got %q", persisted["access_token"])
		}
		expiresAt, err := time.Parse(time.RFC3339, persisted["expires_in"])
		if err != nil {
			t.Fatalf("expires_in should be an RFC 3339 timestamp: %v", err)
		}
		if time.Until(expiresAt) < 50*time.Minute {
			t.Errorf("expected expiry about an hour out, got %s", expiresAt)
		}

		reloaded, err := NewLeaseManager(credentials(ts.URL), path)
		if err != nil {
			t.Fatalf("failed to reload manager: %v", err)
		}
		if reloaded.Expired() {
			t.Error("expected the persisted lease to be reused after restart")
		}
	})

	t.Run("Auth Failure Leaves Lease Untouched", func(t *testing.T) {
		ts := tu.NewTokenServer(t)
		ts.Status = http.StatusUnauthorized
		path := filepath.Join(t.TempDir(), "token.json")
		expiry := time.Now().Add(-time.Minute).Truncate(time.Second)
		writeLeaseFile(t, path, "stale", expiry)
		before := tu.MustReadFile(t, path)

		m, err := NewLeaseManager(credentials(ts.URL), path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		_, err = m.Authorization(context.Background())
		if !errors.Is(err, shared.ErrAuthFailure) {
			t.Fatalf("expected ErrAuthFailure, got %v", err)
		}
		if lease := m.Lease(); lease.Token != "stale" || !lease.ExpiresAt.Equal(expiry) {
			t.Errorf("expected lease to be untouched, got %+v", lease)
		}
		if after := tu.MustReadFile(t, path); after != before {
			t.Error("expected lease file to be untouched")
		}
	})

	t.Run("Concurrent Callers Share One Refresh", func(t *testing.T) {
		ts := tu.NewTokenServer(t)
		m, err := NewLeaseManager(credentials(ts.URL), filepath.Join(t.TempDir(), "token.json"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := m.Authorization(context.Background()); err != nil {
					t.Errorf("Authorization failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if ts.Calls() != 1 {
			t.Errorf("expected 1 refresh call, got %d", ts.Calls())
		}
	})
}
