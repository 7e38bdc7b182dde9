// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/auth"
	"github.com/tomtom215/nextstream/internal/authz"
	"github.com/tomtom215/nextstream/internal/cache"
	"github.com/tomtom215/nextstream/internal/calendar"
	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/media"
	"github.com/tomtom215/nextstream/internal/recommend"
	"github.com/tomtom215/nextstream/internal/sharing"
	"github.com/tomtom215/nextstream/internal/social"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

// fakeCatalog answers TMDB lookups from memory and counts calls.
type fakeCatalog struct {
	mu      sync.Mutex
	calls   map[string]int
	popular map[string][]tmdb.Media
	trailer *tmdb.Video
	err     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{calls: map[string]int{}, popular: map[string][]tmdb.Media{}}
}

func (f *fakeCatalog) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.err
}

func (f *fakeCatalog) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCatalog) SearchMulti(_ context.Context, query string, page int) (*tmdb.Page, error) {
	if err := f.hit("search"); err != nil {
		return nil, err
	}
	return &tmdb.Page{Page: page, TotalPages: 1, TotalResults: 1, Results: []tmdb.Media{
		{ID: 603, MediaType: tmdb.MediaMovie, Title: query},
	}}, nil
}

func (f *fakeCatalog) Details(_ context.Context, mediaType string, id int64) (*tmdb.Details, error) {
	if err := f.hit("details"); err != nil {
		return nil, err
	}
	return &tmdb.Details{ID: id, MediaType: mediaType, Title: "The Matrix"}, nil
}

func (f *fakeCatalog) Similar(_ context.Context, _ string, _ int64, page int) (*tmdb.Page, error) {
	if err := f.hit("similar"); err != nil {
		return nil, err
	}
	return &tmdb.Page{Page: page, Results: []tmdb.Media{}}, nil
}

func (f *fakeCatalog) Popular(_ context.Context, mediaType string, page int) (*tmdb.Page, error) {
	if err := f.hit("popular"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &tmdb.Page{Page: page, Results: f.popular[mediaType]}, nil
}

func (f *fakeCatalog) Trailer(_ context.Context, _ string, _ int64) (*tmdb.Video, error) {
	if err := f.hit("trailer"); err != nil {
		return nil, err
	}
	if f.trailer == nil {
		return nil, tmdb.ErrNoTrailer
	}
	return f.trailer, nil
}

func (f *fakeCatalog) WatchProviders(_ context.Context, _ string, id int64) (*tmdb.WatchProviders, error) {
	if err := f.hit("providers"); err != nil {
		return nil, err
	}
	return &tmdb.WatchProviders{ID: id, Results: map[string]tmdb.RegionProviders{
		"US": {Link: "https://www.themoviedb.org/movie/603/watch?locale=US"},
		"DE": {Link: "https://www.themoviedb.org/movie/603/watch?locale=DE"},
	}}, nil
}

// fakeRecommender returns a fixed result.
type fakeRecommender struct {
	gotOpts recommend.Options
}

func (f *fakeRecommender) Recommend(_ context.Context, _ int64, opts recommend.Options) (*recommend.Result, error) {
	f.gotOpts = opts
	return &recommend.Result{Source: "popular", Items: []recommend.Recommendation{}}, nil
}

// testEnv is a fully wired router over an in-memory database.
type testEnv struct {
	t       *testing.T
	db      *database.DB
	jwt     *auth.JWTManager
	catalog *fakeCatalog
	recs    *fakeRecommender
	cache   *cache.Cache
	server  http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret-key-that-is-at-least-32-characters-long",
			SessionTimeout:    time.Hour,
			GuestTimeout:      10 * time.Minute,
			RateLimitDisabled: true,
		},
		Cache: config.CacheConfig{ProxyTTL: time.Minute},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()

	db := database.NewTestDB(t)
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)

	c := cache.New(time.Minute)
	t.Cleanup(c.Close)

	env := &testEnv{
		t:       t,
		db:      db,
		jwt:     jwtManager,
		catalog: newFakeCatalog(),
		recs:    &fakeRecommender{},
		cache:   c,
	}

	h := NewHandler(Deps{
		Config:      cfg,
		DB:          db,
		Auth:        auth.NewService(db, jwtManager),
		Cookies:     auth.NewCookies(&cfg.Security),
		Calendar:    calendar.NewService(db, nil),
		Sharing:     sharing.NewService(db, nil),
		Social:      social.NewService(db, nil),
		Media:       media.NewService(db, nil),
		Recommender: env.recs,
		Catalog:     env.catalog,
		Cache:       c,
		Version:     "test",
	})
	router := NewRouter(h,
		auth.NewMiddleware(jwtManager, WriteError),
		authz.NewMiddleware(enforcer, WriteError),
		NewChiMiddlewareFromSecurity(&cfg.Security),
	)
	env.server = router.SetupChi()
	return env
}

// user creates an account and returns its id with a bearer token.
func (e *testEnv) user(name string) (int64, string) {
	e.t.Helper()
	id := database.MustCreateUser(e.t, e.db, name)
	token, _, err := e.jwt.GenerateToken(id, name)
	if err != nil {
		e.t.Fatalf("GenerateToken: %v", err)
	}
	return id, token
}

func (e *testEnv) guest() string {
	e.t.Helper()
	token, _, err := e.jwt.GenerateGuestToken()
	if err != nil {
		e.t.Fatalf("GenerateGuestToken: %v", err)
	}
	return token
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// expect checks the status and decodes data into out when out is non-nil.
func (e *testEnv) expect(rec *httptest.ResponseRecorder, status int, out interface{}) APIResponse {
	e.t.Helper()
	if rec.Code != status {
		e.t.Fatalf("status = %d, want %d; body %s", rec.Code, status, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		return APIResponse{}
	}
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
		Meta    *APIMeta        `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		e.t.Fatalf("unmarshal %s: %v", rec.Body.String(), err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			e.t.Fatalf("unmarshal data %s: %v", env.Data, err)
		}
	}
	return APIResponse{Success: env.Success, Error: env.Error, Meta: env.Meta}
}

// errorCode returns the envelope error code of rec.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil {
		t.Fatalf("expected an error envelope, got %s", rec.Body.String())
	}
	return resp.Error.Code
}
