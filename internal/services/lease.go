package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/telemetry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultSafetyMargin keeps a token from being sent when it would expire in flight.
	DefaultSafetyMargin = 3 * time.Second
	defaultTokenURL     = "https://accounts.spotify.com/api/token"
	// defaultLifetime applies when the token endpoint omits expires_in.
	defaultLifetime = time.Hour
)

// Lease is a time-bounded access credential.
type Lease struct {
	Token     string
	TokenKind string
	ExpiresAt time.Time
}

// Header returns the Authorization header value for the lease.
func (l Lease) Header() string {
	return l.TokenKind + " " + l.Token
}

// persistedLease is the on-disk form. expires_in holds an RFC 3339 timestamp, not a duration.
type persistedLease struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   string `json:"expires_in"`
}

// LeaseOption configures a [LeaseManager].
type LeaseOption func(*LeaseManager)

// WithHTTPClient sets the client used for the credential exchange.
func WithHTTPClient(c *http.Client) LeaseOption {
	return func(m *LeaseManager) { m.httpClient = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) LeaseOption {
	return func(m *LeaseManager) { m.now = now }
}

// WithSafetyMargin overrides [DefaultSafetyMargin].
func WithSafetyMargin(d time.Duration) LeaseOption {
	return func(m *LeaseManager) { m.margin = d }
}

// WithLeaseLogger sets the logger.
func WithLeaseLogger(l *log.Logger) LeaseOption {
	return func(m *LeaseManager) { m.logger = l }
}

// LeaseManager owns a single renewable client-credentials lease and persists it between runs.
// It is safe for concurrent use.
type LeaseManager struct {
	mu         sync.Mutex
	lease      Lease
	config     *clientcredentials.Config
	path       string
	httpClient *http.Client
	now        func() time.Time
	margin     time.Duration
	logger     *log.Logger
}

// NewLeaseManager creates a lease manager from credentials ("client_id", "client_secret" and optionally "token_url")
// and loads any lease persisted at path. A missing or unreadable lease file leaves the manager expired.
func NewLeaseManager(credentials map[string]string, path string, opts ...LeaseOption) (*LeaseManager, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	tokenURL := credentials["token_url"]
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	m := &LeaseManager{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		path:       path,
		httpClient: http.DefaultClient,
		now:        time.Now,
		margin:     DefaultSafetyMargin,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if path != "" {
		if lease, err := readLease(path); err == nil {
			m.lease = lease
		} else if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("ignoring unreadable lease file", "path", path, "error", err)
		}
	}

	return m, nil
}

// Authorization returns a ready-to-use Authorization header value, refreshing the lease first when it has expired.
func (m *LeaseManager) Authorization(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.lease.Header(), nil
}

// Expired reports whether the lease expires within the safety margin.
func (m *LeaseManager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredLocked()
}

// Refresh exchanges the client credentials for a new lease when the current one has expired.
func (m *LeaseManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

// Lease returns a copy of the current lease, which may be expired.
func (m *LeaseManager) Lease() Lease {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lease
}

func (m *LeaseManager) expiredLocked() bool {
	return m.lease.Token == "" || m.lease.ExpiresAt.Before(m.now().Add(m.margin))
}

func (m *LeaseManager) refreshLocked(ctx context.Context) error {
	if !m.expiredLocked() {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "lease.refresh")
	defer span.End()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	token, err := m.config.Token(ctx)
	if err != nil {
		telemetry.TokenRefreshes.WithLabelValues("error").Inc()
		span.RecordError(err)
		return fmt.Errorf("%w: %w", shared.ErrAuthFailure, err)
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = m.now().Add(defaultLifetime)
	}

	lease := Lease{Token: token.AccessToken, TokenKind: token.Type(), ExpiresAt: expiresAt}

	if m.path != "" {
		if err := writeLease(m.path, lease); err != nil {
			telemetry.TokenRefreshes.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to persist lease: %w", err)
		}
	}

	m.lease = lease
	telemetry.TokenRefreshes.WithLabelValues("ok").Inc()
	m.logger.Debug("lease refreshed", "expires_at", expiresAt.Format(time.RFC3339))
	return nil
}

func readLease(path string) (Lease, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lease{}, err
	}

	var p persistedLease
	if err := json.Unmarshal(data, &p); err != nil {
		return Lease{}, fmt.Errorf("malformed lease: %w", err)
	}
	if p.AccessToken == "" {
		return Lease{}, fmt.Errorf("malformed lease: missing access_token")
	}

	expiresAt, err := time.Parse(time.RFC3339, p.ExpiresIn)
	if err != nil {
		return Lease{}, fmt.Errorf("malformed lease: %w", err)
	}

	kind := p.TokenType
	if kind == "" {
		kind = "Bearer"
	}
	return Lease{Token: p.AccessToken, TokenKind: kind, ExpiresAt: expiresAt}, nil
}

// writeLease replaces the lease file atomically so a crash never leaves a partial lease behind.
func writeLease(path string, lease Lease) error {
	data, err := json.MarshalIndent(persistedLease{
		AccessToken: lease.Token,
		TokenType:   lease.TokenKind,
		ExpiresIn:   lease.ExpiresAt.UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return err
	}
	return shared.WriteFileAtomic(path, data, 0600)
}
