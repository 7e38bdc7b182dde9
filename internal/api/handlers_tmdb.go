// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/nextstream/internal/cache"
	"github.com/tomtom215/nextstream/internal/jobs"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

// trailerUnavailable is the message of a title without a trailer.
const trailerUnavailable = "Trailer not available"

// TrailerResponse is the body of the trailer route. A title without a
// trailer is a normal answer with Available false.
type TrailerResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
	Key       string `json:"key,omitempty"`
	Name      string `json:"name,omitempty"`
	Site      string `json:"site,omitempty"`
	URL       string `json:"url,omitempty"`
}

// ProvidersResponse is the body of the providers route.
type ProvidersResponse struct {
	ID      int64                           `json:"id"`
	Region  string                          `json:"region,omitempty"`
	Results map[string]tmdb.RegionProviders `json:"results"`
}

// proxyKey identifies one cached TMDB response.
type proxyKey struct {
	MediaType string `json:"t,omitempty"`
	ID        int64  `json:"id,omitempty"`
	Query     string `json:"q,omitempty"`
	Page      int    `json:"p,omitempty"`
}

// cached serves key from the proxy cache, loading it once on a miss.
func (h *Handler) cached(ctx context.Context, kind string, key proxyKey,
	load func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	k := cache.GenerateKey("tmdb:"+kind, key)
	if v, ok := h.cache.Get(k); ok {
		metrics.RecordCacheLookup("tmdb_"+kind, true)
		return v, nil
	}
	metrics.RecordCacheLookup("tmdb_"+kind, false)
	return h.cache.GetOrLoad(ctx, k, h.proxyTTL, load)
}

// mediaParams reads and checks {mediaType} and {id}.
func mediaParams(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	mediaType := chi.URLParam(r, "mediaType")
	if !tmdb.ValidMediaType(mediaType) {
		NewResponseWriter(w, r).BadRequest("mediaType must be movie or tv")
		return "", 0, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return "", 0, false
	}
	return mediaType, id, true
}

// SearchTMDB searches movies, shows and people.
//
// @Summary Search TMDB
// @Description Multi search; results other than movie, tv and person are dropped.
// @Tags tmdb
// @Produce json
// @Param query query string true "Search text"
// @Param page query int false "Page (1-500)"
// @Success 200 {object} APIResponse{data=tmdb.Page}
// @Failure 502 {object} APIResponse
// @Router /tmdb/search [get]
func (h *Handler) SearchTMDB(w http.ResponseWriter, r *http.Request) {
	req := SearchRequest{
		Query: strings.TrimSpace(r.URL.Query().Get("query")),
		Page:  getIntParam(r, "page", 1),
	}
	if !validateRequest(w, r, &req) {
		return
	}
	v, err := h.cached(r.Context(), "search", proxyKey{Query: strings.ToLower(req.Query), Page: req.Page},
		func(ctx context.Context) (interface{}, error) {
			return h.catalog.SearchMulti(ctx, req.Query, req.Page)
		})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(v)
}

// PopularReleases returns the list refreshed hourly by the popular-releases
// job. Before the first refresh the list is empty.
//
// @Summary Popular releases on allowed streaming services
// @Tags tmdb
// @Produce json
// @Success 200 {object} APIResponse{data=[]jobs.PopularRelease}
// @Router /tmdb/popular-releases [get]
func (h *Handler) PopularReleases(w http.ResponseWriter, r *http.Request) {
	list, ok := jobs.CachedPopularReleases(h.cache)
	metrics.RecordCacheLookup("popular_releases", ok)
	if !ok {
		list = []jobs.PopularRelease{}
	}
	NewResponseWriter(w, r).Success(list)
}

// MediaDetails returns a movie or show.
//
// @Summary Title details
// @Tags tmdb
// @Produce json
// @Param mediaType path string true "movie or tv"
// @Param id path int true "TMDB id"
// @Success 200 {object} APIResponse{data=tmdb.Details}
// @Failure 404 {object} APIResponse
// @Router /tmdb/{mediaType}/{id} [get]
func (h *Handler) MediaDetails(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := mediaParams(w, r)
	if !ok {
		return
	}
	v, err := h.cached(r.Context(), "details", proxyKey{MediaType: mediaType, ID: id},
		func(ctx context.Context) (interface{}, error) {
			return h.catalog.Details(ctx, mediaType, id)
		})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(v)
}

// SimilarMedia returns titles similar to a movie or show.
//
// @Summary Similar titles
// @Tags tmdb
// @Produce json
// @Param mediaType path string true "movie or tv"
// @Param id path int true "TMDB id"
// @Param page query int false "Page (1-500)"
// @Success 200 {object} APIResponse{data=tmdb.Page}
// @Router /tmdb/{mediaType}/{id}/similar [get]
func (h *Handler) SimilarMedia(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := mediaParams(w, r)
	if !ok {
		return
	}
	req := PageRequest{Page: getIntParam(r, "page", 1)}
	if !validateRequest(w, r, &req) {
		return
	}
	v, err := h.cached(r.Context(), "similar", proxyKey{MediaType: mediaType, ID: id, Page: req.Page},
		func(ctx context.Context) (interface{}, error) {
			return h.catalog.Similar(ctx, mediaType, id, req.Page)
		})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(v)
}

// Trailer returns the best trailer of a title, or a "Trailer not available"
// payload when it has none.
//
// @Summary Title trailer
// @Tags tmdb
// @Produce json
// @Param mediaType path string true "movie or tv"
// @Param id path int true "TMDB id"
// @Success 200 {object} APIResponse{data=TrailerResponse}
// @Router /tmdb/{mediaType}/{id}/trailer [get]
func (h *Handler) Trailer(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := mediaParams(w, r)
	if !ok {
		return
	}
	v, err := h.cached(r.Context(), "trailer", proxyKey{MediaType: mediaType, ID: id},
		func(ctx context.Context) (interface{}, error) {
			video, err := h.catalog.Trailer(ctx, mediaType, id)
			switch {
			case errors.Is(err, tmdb.ErrNoTrailer), errors.Is(err, tmdb.ErrNotFound):
				return TrailerResponse{Message: trailerUnavailable}, nil
			case err != nil:
				return nil, err
			}
			return TrailerResponse{
				Available: true,
				Key:       video.Key,
				Name:      video.Name,
				Site:      video.Site,
				URL:       video.URL(),
			}, nil
		})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(v)
}

// WatchProviders returns where a title streams. The region query narrows
// the answer to one country.
//
// @Summary Streaming providers
// @Tags tmdb
// @Produce json
// @Param mediaType path string true "movie or tv"
// @Param id path int true "TMDB id"
// @Param region query string false "ISO 3166-1 region, e.g. US"
// @Success 200 {object} APIResponse{data=ProvidersResponse}
// @Router /tmdb/{mediaType}/{id}/providers [get]
func (h *Handler) WatchProviders(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := mediaParams(w, r)
	if !ok {
		return
	}
	v, err := h.cached(r.Context(), "providers", proxyKey{MediaType: mediaType, ID: id},
		func(ctx context.Context) (interface{}, error) {
			return h.catalog.WatchProviders(ctx, mediaType, id)
		})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	wp, _ := v.(*tmdb.WatchProviders)
	resp := ProvidersResponse{ID: id, Results: map[string]tmdb.RegionProviders{}}
	if wp != nil && wp.Results != nil {
		resp.Results = wp.Results
	}
	if region := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("region"))); region != "" {
		resp.Region = region
		resp.Results = map[string]tmdb.RegionProviders{region: wp.Region(region)}
	}
	NewResponseWriter(w, r).Success(resp)
}
