// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package tmdb is the outbound client for The Movie Database API.

Every call runs through three layers:
  - a token-bucket limiter (golang.org/x/time/rate) shared by all callers
  - a circuit breaker (sony/gobreaker) that fails fast while TMDB is down
  - bounded retries with a per-attempt timeout; HTTP 429, 5xx, timeouts and
    network errors back off exponentially, honoring a capped Retry-After

The API key travels as the api_key query parameter. Responses are decoded
with goccy/go-json.
*/
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
)

var (
	// ErrNotFound is returned for TMDB 404 responses.
	ErrNotFound = errors.New("tmdb: resource not found")

	// ErrUnavailable wraps failures after retries are exhausted or while the
	// circuit is open.
	ErrUnavailable = errors.New("tmdb: service unavailable")

	// ErrNoTrailer is returned when a title has no usable trailer.
	ErrNoTrailer = errors.New("tmdb: trailer not available")

	// errCallerCanceled marks a parent-context cancellation so the breaker
	// does not count it.
	errCallerCanceled = errors.New("tmdb: canceled by caller")
)

// maxErrorBodySize limits how much of an error response is kept.
const maxErrorBodySize = 4 * 1024

// StatusError is a non-retryable, non-404 HTTP error from TMDB.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: unexpected status %d: %s", e.Code, e.Body)
}

// Client talks to TMDB. It is safe for concurrent use.
type Client struct {
	apiKey         string
	baseURL        string
	language       string
	httpClient     *http.Client
	limiter        *rate.Limiter
	cb             *gobreaker.CircuitBreaker[[]byte]
	attempts       int
	requestTimeout time.Duration
	retryBackoff   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another server, such as a test fake.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// New creates a client from configuration.
func New(cfg *config.TMDBConfig, opts ...Option) *Client {
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		language:       cfg.Language,
		httpClient:     &http.Client{},
		limiter:        rate.NewLimiter(limit, burst),
		cb:             newBreaker(),
		attempts:       attempts,
		requestTimeout: timeout,
		retryBackoff:   backoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchMulti searches movies, shows and people. Results of any other media
// type are dropped.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*Page, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	setPage(params, page)

	var out Page
	if err := c.get(ctx, "search", "/search/multi", params, &out); err != nil {
		return nil, err
	}
	kept := out.Results[:0]
	for _, m := range out.Results {
		switch m.MediaType {
		case MediaMovie, MediaTV, MediaPerson:
			kept = append(kept, m)
		}
	}
	out.Results = kept
	return &out, nil
}

// Details fetches one movie or show.
func (c *Client) Details(ctx context.Context, mediaType string, id int64) (*Details, error) {
	if !ValidMediaType(mediaType) {
		return nil, fmt.Errorf("tmdb: invalid media type %q", mediaType)
	}
	var out Details
	if err := c.get(ctx, "details", fmt.Sprintf("/%s/%d", mediaType, id), nil, &out); err != nil {
		return nil, err
	}
	out.MediaType = mediaType
	return &out, nil
}

// Similar returns one page of titles similar to id. TMDB omits media_type
// here, so it is filled from the request.
func (c *Client) Similar(ctx context.Context, mediaType string, id int64, page int) (*Page, error) {
	if !ValidMediaType(mediaType) {
		return nil, fmt.Errorf("tmdb: invalid media type %q", mediaType)
	}
	params := url.Values{}
	setPage(params, page)

	var out Page
	if err := c.get(ctx, "similar", fmt.Sprintf("/%s/%d/similar", mediaType, id), params, &out); err != nil {
		return nil, err
	}
	stampType(out.Results, mediaType)
	return &out, nil
}

// Popular returns one page of popular movies or shows.
func (c *Client) Popular(ctx context.Context, mediaType string, page int) (*Page, error) {
	if !ValidMediaType(mediaType) {
		return nil, fmt.Errorf("tmdb: invalid media type %q", mediaType)
	}
	params := url.Values{}
	setPage(params, page)

	var out Page
	if err := c.get(ctx, "popular", "/"+mediaType+"/popular", params, &out); err != nil {
		return nil, err
	}
	stampType(out.Results, mediaType)
	return &out, nil
}

// Videos lists trailers, teasers and clips for a title.
func (c *Client) Videos(ctx context.Context, mediaType string, id int64) ([]Video, error) {
	if !ValidMediaType(mediaType) {
		return nil, fmt.Errorf("tmdb: invalid media type %q", mediaType)
	}
	var out videosResponse
	if err := c.get(ctx, "videos", fmt.Sprintf("/%s/%d/videos", mediaType, id), nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Trailer picks the best YouTube trailer: official first, then any trailer,
// then a teaser. ErrNoTrailer means none exists.
func (c *Client) Trailer(ctx context.Context, mediaType string, id int64) (*Video, error) {
	videos, err := c.Videos(ctx, mediaType, id)
	if err != nil {
		return nil, err
	}
	return pickTrailer(videos)
}

func pickTrailer(videos []Video) (*Video, error) {
	var trailer, teaser *Video
	for i := range videos {
		v := &videos[i]
		if v.Site != "YouTube" {
			continue
		}
		switch v.Type {
		case "Trailer":
			if v.Official {
				return v, nil
			}
			if trailer == nil {
				trailer = v
			}
		case "Teaser":
			if teaser == nil {
				teaser = v
			}
		}
	}
	if trailer != nil {
		return trailer, nil
	}
	if teaser != nil {
		return teaser, nil
	}
	return nil, ErrNoTrailer
}

// WatchProviders returns where a title streams, per region.
func (c *Client) WatchProviders(ctx context.Context, mediaType string, id int64) (*WatchProviders, error) {
	if !ValidMediaType(mediaType) {
		return nil, fmt.Errorf("tmdb: invalid media type %q", mediaType)
	}
	var out WatchProviders
	if err := c.get(ctx, "watch_providers", fmt.Sprintf("/%s/%d/watch/providers", mediaType, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func setPage(params url.Values, page int) {
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
}

func stampType(results []Media, mediaType string) {
	for i := range results {
		if results[i].MediaType == "" {
			results[i].MediaType = mediaType
		}
	}
}

// get performs a GET through the breaker and decodes the body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" && params.Get("language") == "" {
		params.Set("language", c.language)
	}
	reqURL := c.baseURL + path + "?" + params.Encode()

	start := time.Now()
	var healthyErr error
	body, err := c.cb.Execute(func() ([]byte, error) {
		b, err := c.doWithRetry(ctx, reqURL)
		if err != nil && countsAsSuccess(err) {
			healthyErr = err
			return nil, nil
		}
		return b, err
	})
	recordBreakerResult(c.cb, err)
	if err == nil && healthyErr != nil {
		err = healthyErr
	}
	metrics.RecordTMDBRequest(endpoint, time.Since(start), err)

	if err != nil {
		switch {
		case errors.Is(err, errCallerCanceled):
			return ctx.Err()
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb: failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// doWithRetry runs up to c.attempts requests, each bounded by
// c.requestTimeout.
func (c *Client) doWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", errCallerCanceled, err)
		}

		body, retryAfter, reason, err := c.doOnce(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", errCallerCanceled, ctx.Err())
		}
		if reason == "" {
			return nil, err
		}
		lastErr = err
		metrics.TMDBRetries.WithLabelValues(reason).Inc()

		if attempt == c.attempts-1 {
			break
		}

		delay := c.retryDelay(attempt, retryAfter)
		logging.Debug().Str("reason", reason).Int("attempt", attempt+1).Dur("delay", delay).
			Msg("Retrying TMDB request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", errCallerCanceled, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, c.attempts, lastErr)
}

// retryDelay is the pause before attempt+1. A server-sent Retry-After wins
// over the exponential backoff but never exceeds requestTimeout*attempts.
func (c *Client) retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, c.requestTimeout*time.Duration(c.attempts))
	}
	return c.retryBackoff * time.Duration(1<<uint(attempt))
}

// doOnce performs a single attempt. A non-empty reason marks the error as
// retryable.
func (c *Client) doOnce(ctx context.Context, reqURL string) (body []byte, retryAfter time.Duration, reason string, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, "", fmt.Errorf("tmdb: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, 0, "timeout", fmt.Errorf("tmdb: request timed out after %s", c.requestTimeout)
		}
		return nil, 0, "network", fmt.Errorf("tmdb: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return nil, 0, "timeout", fmt.Errorf("tmdb: reading body timed out after %s", c.requestTimeout)
			}
			return nil, 0, "network", fmt.Errorf("tmdb: failed to read body: %w", err)
		}
		return body, 0, "", nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, "", ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), "rate_limited",
			fmt.Errorf("tmdb: rate limited (HTTP 429)")
	case resp.StatusCode >= 500:
		return nil, 0, "server_error", &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	default:
		return nil, 0, "", &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return string(b)
}
