// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/recommend"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

// Recommendations computes personal recommendations and remembers them for
// the session so the next call returns fresh titles.
//
// @Summary Personal recommendations
// @Description Similar titles seeded by liked media, falling back to popular lists.
// @Description Items may carry a like/dislike label from the per-user classifier.
// @Tags recommendations
// @Produce json
// @Param userId path int true "User ID"
// @Param limit query int false "Maximum items"
// @Success 200 {object} APIResponse{data=recommend.Result}
// @Failure 502 {object} APIResponse
// @Router /recommendations/{userId} [get]
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	limit := getIntParam(r, "limit", 0)
	if limit < 0 {
		limit = 0
	}
	res, err := h.recommender.Recommend(r.Context(), userID, recommend.Options{RecordSession: true, Limit: limit})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().
		Int64("user_id", userID).
		Str("source", res.Source).
		Int("items", len(res.Items)).
		Msg("Recommendations served")
	NewResponseWriter(w, r).Success(res)
}

// PopularRecommendations returns popular movies and shows merged by
// popularity. Guests may call it.
//
// @Summary Popular titles
// @Tags recommendations
// @Produce json
// @Success 200 {object} APIResponse{data=[]tmdb.Media}
// @Router /recommendations/popular [get]
func (h *Handler) PopularRecommendations(w http.ResponseWriter, r *http.Request) {
	v, err := h.cached(r.Context(), "popular", proxyKey{Page: 1}, func(ctx context.Context) (interface{}, error) {
		var merged []tmdb.Media
		for _, mediaType := range []string{tmdb.MediaMovie, tmdb.MediaTV} {
			page, err := h.catalog.Popular(ctx, mediaType, 1)
			if err != nil {
				return nil, err
			}
			merged = append(merged, page.Results...)
		}
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Popularity > merged[j].Popularity })
		if merged == nil {
			merged = []tmdb.Media{}
		}
		return merged, nil
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(v)
}
