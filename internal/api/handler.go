// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/nextstream/internal/auth"
	"github.com/tomtom215/nextstream/internal/cache"
	"github.com/tomtom215/nextstream/internal/calendar"
	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/media"
	"github.com/tomtom215/nextstream/internal/recommend"
	"github.com/tomtom215/nextstream/internal/sharing"
	"github.com/tomtom215/nextstream/internal/social"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

// WebSocketServer upgrades authenticated requests to hub connections.
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64)
}

// Catalog is the part of the TMDB client the proxy routes use.
type Catalog interface {
	SearchMulti(ctx context.Context, query string, page int) (*tmdb.Page, error)
	Details(ctx context.Context, mediaType string, id int64) (*tmdb.Details, error)
	Similar(ctx context.Context, mediaType string, id int64, page int) (*tmdb.Page, error)
	Popular(ctx context.Context, mediaType string, page int) (*tmdb.Page, error)
	Trailer(ctx context.Context, mediaType string, id int64) (*tmdb.Video, error)
	WatchProviders(ctx context.Context, mediaType string, id int64) (*tmdb.WatchProviders, error)
}

// Recommender computes recommendations for one user.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, opts recommend.Options) (*recommend.Result, error)
}

// Deps wires the handlers to the services.
type Deps struct {
	Config      *config.Config
	DB          *database.DB
	Auth        *auth.Service
	Cookies     auth.Cookies
	Calendar    *calendar.Service
	Sharing     *sharing.Service
	Social      *social.Service
	Media       *media.Service
	Recommender Recommender
	Catalog     Catalog
	Cache       *cache.Cache
	Hub         WebSocketServer
	Version     string
}

// Handler implements every REST endpoint.
type Handler struct {
	cfg         *config.Config
	db          *database.DB
	auth        *auth.Service
	cookies     auth.Cookies
	calendar    *calendar.Service
	sharing     *sharing.Service
	social      *social.Service
	media       *media.Service
	recommender Recommender
	catalog     Catalog
	cache       *cache.Cache
	hub         WebSocketServer
	version     string
	startTime   time.Time
	proxyTTL    time.Duration
}

// NewHandler creates the handler set.
func NewHandler(d Deps) *Handler {
	ttl := d.Config.Cache.ProxyTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Handler{
		cfg:         d.Config,
		db:          d.DB,
		auth:        d.Auth,
		cookies:     d.Cookies,
		calendar:    d.Calendar,
		sharing:     d.Sharing,
		social:      d.Social,
		media:       d.Media,
		recommender: d.Recommender,
		catalog:     d.Catalog,
		cache:       d.Cache,
		hub:         d.Hub,
		version:     d.Version,
		startTime:   time.Now(),
		proxyTTL:    ttl,
	}
}
