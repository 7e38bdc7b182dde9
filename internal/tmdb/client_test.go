// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package tmdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(&config.TMDBConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Language:       "en-US",
		RequestTimeout: time.Second,
		MaxRetries:     3,
		RetryBackoff:   time.Millisecond,
	})
}

func TestSearchMultiSendsAPIKeyAndFilters(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "test-key" {
			t.Errorf("api_key = %q", q.Get("api_key"))
		}
		if q.Get("query") != "dune" || q.Get("page") != "2" || q.Get("language") != "en-US" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"page":2,"total_pages":3,"results":[
			{"id":1,"media_type":"movie","title":"Dune"},
			{"id":2,"media_type":"tv","name":"Dune: Prophecy"},
			{"id":3,"media_type":"person","name":"Denis Villeneuve"},
			{"id":4,"media_type":"collection","name":"Dune Collection"}]}`)
	})

	page, err := c.SearchMulti(context.Background(), "dune", 2)
	if err != nil {
		t.Fatalf("SearchMulti: %v", err)
	}
	if len(page.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(page.Results))
	}
	for _, m := range page.Results {
		if m.MediaType == "collection" {
			t.Errorf("collection result was not filtered")
		}
	}
	if page.Results[1].DisplayTitle() != "Dune: Prophecy" {
		t.Errorf("DisplayTitle = %q", page.Results[1].DisplayTitle())
	}
}

func TestSimilarStampsMediaType(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/42/similar" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"page":1,"results":[{"id":7,"name":"Show"}]}`)
	})

	page, err := c.Similar(context.Background(), MediaTV, 42, 1)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if page.Results[0].MediaType != MediaTV {
		t.Errorf("media type = %q, want tv", page.Results[0].MediaType)
	}
}

func TestInvalidMediaTypeRejected(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	if _, err := c.Details(context.Background(), "person", 1); err == nil {
		t.Error("expected error for person details")
	}
	if _, err := c.Popular(context.Background(), "book", 1); err == nil {
		t.Error("expected error for unknown media type")
	}
	if calls.Load() != 0 {
		t.Errorf("server called %d times", calls.Load())
	}
}

func TestRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"id":5,"title":"Arrival","genres":[{"id":18,"name":"Drama"}]}`)
	})

	d, err := c.Details(context.Background(), MediaMovie, 5)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if d.MediaType != MediaMovie || d.AsMedia().GenreIDs[0] != 18 {
		t.Errorf("unexpected details %+v", d)
	}
}

func TestRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"page":1,"results":[]}`)
	})

	if _, err := c.Popular(context.Background(), MediaMovie, 1); err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestRetryAfterIsCapped(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3600")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"page":1,"results":[]}`)
	}))
	t.Cleanup(srv.Close)
	c := New(&config.TMDBConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		RequestTimeout: 50 * time.Millisecond,
		MaxRetries:     2,
		RetryBackoff:   time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	if _, err := c.Popular(ctx, MediaMovie, 1); err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("waited %s for a one-hour Retry-After", elapsed)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestRetryDelay(t *testing.T) {
	c := New(&config.TMDBConfig{RequestTimeout: time.Second, MaxRetries: 3, RetryBackoff: 100 * time.Millisecond})

	tests := []struct {
		attempt    int
		retryAfter time.Duration
		want       time.Duration
	}{
		{0, 0, 100 * time.Millisecond},
		{2, 0, 400 * time.Millisecond},
		{0, 2 * time.Second, 2 * time.Second},
		{0, time.Hour, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := c.retryDelay(tt.attempt, tt.retryAfter); got != tt.want {
			t.Errorf("retryDelay(%d, %s) = %s, want %s", tt.attempt, tt.retryAfter, got, tt.want)
		}
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Popular(context.Background(), MediaTV, 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Details(context.Background(), MediaMovie, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status_message":"Invalid API key"}`)
	})

	_, err := c.Details(context.Background(), MediaMovie, 1)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestPerAttemptTimeout(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, `{"id":1,"results":[]}`)
	}))
	t.Cleanup(srv.Close)

	c := New(&config.TMDBConfig{
		APIKey:         "k",
		RequestTimeout: 50 * time.Millisecond,
		RetryBackoff:   time.Millisecond,
	}, WithBaseURL(srv.URL))

	if _, err := c.Videos(context.Background(), MediaMovie, 1); err != nil {
		t.Fatalf("Videos: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Popular(ctx, MediaMovie, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPickTrailer(t *testing.T) {
	tests := []struct {
		name    string
		videos  []Video
		wantKey string
		wantErr error
	}{
		{
			name: "official trailer wins",
			videos: []Video{
				{Key: "teaser", Site: "YouTube", Type: "Teaser"},
				{Key: "fan", Site: "YouTube", Type: "Trailer"},
				{Key: "official", Site: "YouTube", Type: "Trailer", Official: true},
			},
			wantKey: "official",
		},
		{
			name: "first trailer without official",
			videos: []Video{
				{Key: "vimeo", Site: "Vimeo", Type: "Trailer"},
				{Key: "a", Site: "YouTube", Type: "Trailer"},
				{Key: "b", Site: "YouTube", Type: "Trailer"},
			},
			wantKey: "a",
		},
		{
			name:    "teaser fallback",
			videos:  []Video{{Key: "clip", Site: "YouTube", Type: "Clip"}, {Key: "t", Site: "YouTube", Type: "Teaser"}},
			wantKey: "t",
		},
		{name: "none", videos: nil, wantErr: ErrNoTrailer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := pickTrailer(tt.videos)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("pickTrailer: %v", err)
			}
			if v.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", v.Key, tt.wantKey)
			}
		})
	}
}

func TestTrailerURL(t *testing.T) {
	v := Video{Key: "abc", Site: "YouTube"}
	if got := v.URL(); got != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("URL = %q", got)
	}
}

func TestWatchProvidersRegion(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/9/watch/providers" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"id":9,"results":{"US":{"link":"x","flatrate":[{"provider_id":8,"provider_name":"Netflix"}]}}}`)
	})

	wp, err := c.WatchProviders(context.Background(), MediaMovie, 9)
	if err != nil {
		t.Fatalf("WatchProviders: %v", err)
	}
	us := wp.Region("US")
	if len(us.Flatrate) != 1 || us.Flatrate[0].Name != "Netflix" {
		t.Errorf("US providers = %+v", us)
	}
	if len(wp.Region("GB").Flatrate) != 0 {
		t.Error("expected empty GB providers")
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	if !countsAsSuccess(ErrNotFound) {
		t.Error("ErrNotFound should not trip the breaker")
	}
	if !countsAsSuccess(&StatusError{Code: 400}) {
		t.Error("4xx should not trip the breaker")
	}
	if countsAsSuccess(&StatusError{Code: 503}) {
		t.Error("5xx should trip the breaker")
	}
}
