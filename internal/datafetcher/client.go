/*
This file contains the JSON-over-HTTP plumbing shared by the upstream clients. Every call
waits on a rate limiter and runs inside a circuit breaker, so a failing feed is shed quickly
instead of stalling every request behind a timeout.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/metrics"
)

var ErrUpstreamStatus = errors.New("upstream returned an error status")
var ErrUpstreamUnavailable = errors.New("upstream temporarily unavailable")
var ErrInvalidResponse = errors.New("invalid upstream response")

const (
	defaultTimeout           = 15 * time.Second
	defaultRequestsPerSecond = 5
	defaultBurst             = 5
	breakerFailureThreshold  = 5
	breakerOpenTimeout       = 30 * time.Second
	maxResponseBytes         = 16 << 20
)

// ClientOptions tunes an upstream client. Zero values select the defaults.
type ClientOptions struct {
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Burst             int
	Metrics           *metrics.Registry
}

type restClient struct {
	name       string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	metrics    *metrics.Registry
	logger     zerolog.Logger
}

func newRestClient(name, baseURL string, headers map[string]string, opts ClientOptions) *restClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	l := logger.GetForComponent(name + "_client")
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &restClient{
		name:       name,
		baseURL:    baseURL,
		headers:    headers,
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		metrics:    opts.Metrics,
		logger:     l,
	}
}

// getJSON issues a GET for baseURL+path and decodes the body into out.
func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w", c.name, err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, query, out)
	})
	c.metrics.ObserveUpstream(c.name, err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, c.name, err)
	}
	return err
}

func (c *restClient) do(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", c.name, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Upstream response received")

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("%w: %s %d: %s", ErrUpstreamStatus, c.name, resp.StatusCode, snippet)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidResponse, c.name, err)
	}
	return nil
}
