// Package intelligems implements the analytics API port against the
// Intelligems External API. Requests are throttled to one per second
// and rate-limit responses are retried with exponential backoff.
package intelligems

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/ports"
)

const (
	DefaultBaseURL = "https://api.intelligems.io/v25-10-beta"

	authHeader = "intelligems-access-token"

	maxRetries     = 5
	retryBaseDelay = 5 * time.Second
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	metrics ports.MetricsExporter
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMetricsExporter records every upstream request by endpoint and
// status code.
func WithMetricsExporter(m ports.MetricsExporter) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ActiveExperiments(ctx context.Context) ([]*domain.Experiment, error) {
	return c.listExperiences(ctx, "started")
}

func (c *Client) EndedExperiments(ctx context.Context) ([]*domain.Experiment, error) {
	return c.listExperiences(ctx, "ended")
}

func (c *Client) listExperiences(ctx context.Context, status string) ([]*domain.Experiment, error) {
	q := url.Values{}
	q.Set("status", status)
	q.Set("category", "experiment")

	var resp experiencesListResponse
	if err := c.getJSON(ctx, "/experiences-list", q, &resp); err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}

	experiments := make([]*domain.Experiment, 0, len(resp.ExperiencesList))
	for i := range resp.ExperiencesList {
		experiments = append(experiments, resp.ExperiencesList[i].toDomain())
	}
	return experiments, nil
}

func (c *Client) Experiment(ctx context.Context, id string) (*domain.Experiment, error) {
	path := "/experiences/" + url.PathEscape(id)

	var raw json.RawMessage
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("get experiment %s: %w", id, err)
	}

	// The detail endpoint wraps the payload in an "experience" key,
	// but older responses return it bare.
	var wrapped experienceResponse
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Experience != nil {
		return wrapped.Experience.toDomain(), nil
	}
	var dto experienceDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("decode experiment %s: %w", id, err)
	}
	if dto.ID == "" {
		return nil, fmt.Errorf("experiment %s not found", id)
	}
	return dto.toDomain(), nil
}

func (c *Client) OverviewMetrics(ctx context.Context, experimentID string) (*domain.Snapshot, error) {
	q := url.Values{}
	q.Set("view", "overview")
	return c.analytics(ctx, experimentID, q)
}

func (c *Client) SegmentMetrics(ctx context.Context, experimentID, dimension string) (*domain.Snapshot, error) {
	q := url.Values{}
	q.Set("view", "audience")
	q.Set("audience", dimension)
	return c.analytics(ctx, experimentID, q)
}

func (c *Client) analytics(ctx context.Context, experimentID string, q url.Values) (*domain.Snapshot, error) {
	path := "/analytics/resource/" + url.PathEscape(experimentID)

	var resp analyticsResponse
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return nil, fmt.Errorf("get analytics for %s: %w", experimentID, err)
	}
	snap, err := decodeRows(resp.Metrics)
	if err != nil {
		return nil, fmt.Errorf("decode analytics for %s: %w", experimentID, err)
	}
	return snap, nil
}

// errRateLimited triggers a backoff retry on HTTP 429.
var errRateLimited = fmt.Errorf("rate limited")

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		u := c.baseURL + path
		if len(q) > 0 {
			u += "?" + q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set(authHeader, c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if c.metrics != nil {
			c.metrics.RecordAPIRequest(ctx, path, resp.StatusCode)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			return errRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body))
		}

		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response from %s: %w", path, err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryBaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries-1), ctx))
}
