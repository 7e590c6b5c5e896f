package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	// defaultRetryAfter applies to 429 responses without a usable Retry-After header.
	defaultRetryAfter = time.Second
	maxErrorBody      = 512
)

// APIResponse is a raw catalog response.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Waits counts the rate-limit sleeps taken before this response.
	Waits int
}

// StatusError reports a non-success, non-429 response. It wraps [shared.ErrFetchFailure].
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog API error: status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return shared.ErrFetchFailure }

// CatalogOption configures a [CatalogClient].
type CatalogOption func(*CatalogClient)

// WithCatalogHTTPClient sets the HTTP client used for catalog calls.
func WithCatalogHTTPClient(c *http.Client) CatalogOption {
	return func(cc *CatalogClient) { cc.httpClient = c }
}

// WithRateLimit paces requests to rps per second. Zero or less disables pacing.
func WithRateLimit(rps float64) CatalogOption {
	return func(cc *CatalogClient) {
		if rps > 0 {
			cc.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithSleeper replaces the Retry-After wait, for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) CatalogOption {
	return func(cc *CatalogClient) { cc.sleep = sleep }
}

// WithCatalogLogger sets the logger.
func WithCatalogLogger(l *log.Logger) CatalogOption {
	return func(cc *CatalogClient) { cc.logger = l }
}

// CatalogClient performs authenticated GETs against the catalog API.
//
// Every call runs inside a retry loop: a 429 response sleeps for Retry-After and
// repeats the same request, so callers never see a rate-limit failure. Any other
// non-2xx response is returned as a [*StatusError]; transport failures and
// authorization failures are returned as is and should end the run.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	auth       Authorizer
	limiter    *rate.Limiter
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time
	logger     *log.Logger
}

// NewCatalogClient creates a client for baseURL authorized by auth.
func NewCatalogClient(baseURL string, auth Authorizer, opts ...CatalogOption) *CatalogClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &CatalogClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		auth:       auth,
		sleep:      sleepContext,
		now:        time.Now,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Item fetches GET {base}/{entity}/{id}.
func (c *CatalogClient) Item(ctx context.Context, entity models.EntityType, id string) (*APIResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", shared.ErrInvalidArgument)
	}
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, entity, url.PathEscape(id))
	return c.get(ctx, entity, endpoint)
}

// Several fetches GET {base}/{entity}?ids=a,b,c.
func (c *CatalogClient) Several(ctx context.Context, entity models.EntityType, ids []string) (*APIResponse, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no ids provided", shared.ErrInvalidArgument)
	}
	if !entity.SupportsBatch() {
		return nil, fmt.Errorf("%w: %s has no batch endpoint", shared.ErrInvalidArgument, entity)
	}
	if len(ids) > entity.MaxBatch() {
		return nil, fmt.Errorf("%w: maximum %d %s ids allowed", shared.ErrInvalidArgument, entity.MaxBatch(), entity)
	}

	endpoint := fmt.Sprintf("%s/%s?ids=%s", c.baseURL, entity, url.QueryEscape(strings.Join(ids, ",")))
	return c.get(ctx, entity, endpoint)
}

func (c *CatalogClient) get(ctx context.Context, entity models.EntityType, endpoint string) (*APIResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalog.get", telemetry.AttrEntity.String(string(entity)))
	defer span.End()

	waits := 0
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, entity, endpoint)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		resp.Waits = waits

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := parseRetryAfter(resp.Headers.Get("Retry-After"), c.now())
			waits++
			telemetry.RateLimitWaits.WithLabelValues(string(entity)).Inc()
			c.logger.Warn("rate limited, waiting", "entity", entity, "retry_after", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %w", shared.ErrRateLimited, err)
			}
			continue
		}

		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode), attribute.Int("spx.waits", waits))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), maxErrorBody)}
		}
		return resp, nil
	}
}

// do performs one authenticated request.
func (c *CatalogClient) do(ctx context.Context, entity models.EntityType, endpoint string) (*APIResponse, error) {
	authorization, err := c.auth.Authorization(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	telemetry.CatalogDuration.WithLabelValues(string(entity)).Observe(time.Since(start).Seconds())
	telemetry.CatalogRequests.WithLabelValues(string(entity), strconv.Itoa(resp.StatusCode)).Inc()

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// parseRetryAfter reads a Retry-After value given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultRetryAfter
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return defaultRetryAfter
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}

	return defaultRetryAfter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
