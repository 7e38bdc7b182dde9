// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/session"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

// Candidate sources.
const (
	SourceSimilar = "similar"
	SourcePopular = "popular"
)

// Labels assigned by the classifier.
const (
	LabelLike    = "like"
	LabelDislike = "dislike"
)

// maxTrainingSamples caps how many interactions are looked up in TMDB to
// build training features.
const maxTrainingSamples = 40

// Catalog is the subset of the TMDB client the engine needs.
type Catalog interface {
	Similar(ctx context.Context, mediaType string, id int64, page int) (*tmdb.Page, error)
	Popular(ctx context.Context, mediaType string, page int) (*tmdb.Page, error)
	Details(ctx context.Context, mediaType string, id int64) (*tmdb.Details, error)
}

// Store reads the user's history.
type Store interface {
	ListInteractions(ctx context.Context, userID int64) ([]*models.Interaction, error)
	ListMediaStatuses(ctx context.Context, userID int64, status string) ([]*models.MediaStatus, error)
}

// Options controls a single Recommend call.
type Options struct {
	// RecordSession appends the returned ids to session memory. The email
	// job leaves it off.
	RecordSession bool

	// Limit caps the number of returned items. Zero uses the configured
	// maximum.
	Limit int
}

// Recommendation is one suggested title.
type Recommendation struct {
	tmdb.Media
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Result is the output of Recommend.
type Result struct {
	Items      []Recommendation `json:"items"`
	Source     string           `json:"source"`
	Classified bool             `json:"classified"`
}

// Engine computes recommendations. It is safe for concurrent use.
type Engine struct {
	cfg      config.RecommendConfig
	store    Store
	catalog  Catalog
	sessions session.Store
	logger   zerolog.Logger
}

// NewEngine creates an engine. sessions may be nil, in which case nothing is
// remembered between calls.
func NewEngine(cfg config.RecommendConfig, store Store, catalog Catalog, sessions session.Store) *Engine {
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = 4
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		catalog:  catalog,
		sessions: sessions,
		logger:   logging.WithComponent("recommend"),
	}
}

// history is the user state the pipeline filters against.
type history struct {
	latest   []*models.Interaction // one per media, newest first
	liked    []models.MediaKey
	excluded map[models.MediaKey]bool
}

// Recommend returns titles the user has not liked, disliked, listed or been
// shown this session.
func (e *Engine) Recommend(ctx context.Context, userID int64, opts Options) (*Result, error) {
	logger := logging.Ctx(ctx).With().Str("component", "recommend").Int64("user_id", userID).Logger()

	h, err := e.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	source := SourceSimilar
	candidates, err := e.similarCandidates(ctx, h)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		source = SourcePopular
		candidates, err = e.popularCandidates(ctx, h)
		if err != nil {
			return nil, err
		}
	}

	limit := opts.Limit
	if limit <= 0 || limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	res := &Result{Items: make([]Recommendation, 0, len(candidates)), Source: source}
	for i := range candidates {
		res.Items = append(res.Items, Recommendation{Media: candidates[i]})
	}

	if e.cfg.ClassifierEnabled && len(res.Items) > 0 {
		res.Classified = e.classify(ctx, h, res.Items, logger)
	}

	if opts.RecordSession && e.sessions != nil && len(res.Items) > 0 {
		keys := make([]models.MediaKey, len(res.Items))
		for i, it := range res.Items {
			keys[i] = models.MediaKey{ID: it.ID, Type: it.MediaType}
		}
		if err := e.sessions.Record(ctx, userID, keys); err != nil {
			logger.Warn().Err(err).Msg("failed to record displayed recommendations")
		}
	}

	metrics.RecommendationRequests.WithLabelValues(source).Inc()
	metrics.RecommendationCandidates.Observe(float64(len(res.Items)))
	logger.Debug().Str("source", source).Int("returned", len(res.Items)).Bool("classified", res.Classified).
		Msg("recommendation complete")
	return res, nil
}

func (e *Engine) loadHistory(ctx context.Context, userID int64) (*history, error) {
	interactions, err := e.store.ListInteractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	statuses, err := e.store.ListMediaStatuses(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("load media statuses: %w", err)
	}

	h := &history{excluded: make(map[models.MediaKey]bool)}
	for _, in := range models.LatestInteractions(interactions) {
		key := in.Key()
		h.latest = append(h.latest, in)
		h.excluded[key] = true
		if in.Liked() {
			h.liked = append(h.liked, key)
		}
	}
	for _, s := range statuses {
		h.excluded[models.MediaKey{ID: s.MediaID, Type: s.MediaType}] = true
	}

	if e.sessions != nil {
		shown, err := e.sessions.Displayed(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load session memory: %w", err)
		}
		for k := range shown {
			h.excluded[k] = true
		}
	}
	return h, nil
}

// similarCandidates walks liked titles, newest first, and their similar
// pages until MinCandidates unseen titles are collected.
func (e *Engine) similarCandidates(ctx context.Context, h *history) ([]tmdb.Media, error) {
	var out []tmdb.Media
	picked := make(map[models.MediaKey]bool)

	for _, seed := range h.liked {
		if !tmdb.ValidMediaType(seed.Type) {
			continue
		}
		for page := 1; page <= e.cfg.MaxPages; page++ {
			p, err := e.catalog.Similar(ctx, seed.Type, seed.ID, page)
			if err != nil {
				if errors.Is(err, tmdb.ErrNotFound) {
					break
				}
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("similar %s/%d: %w", seed.Type, seed.ID, err)
			}
			out = appendUnseen(out, p.Results, h.excluded, picked)
			if len(out) >= e.cfg.MinCandidates {
				return out, nil
			}
			if page >= p.TotalPages {
				break
			}
		}
	}
	return out, nil
}

// popularCandidates merges popular movies and shows, interleaved.
func (e *Engine) popularCandidates(ctx context.Context, h *history) ([]tmdb.Media, error) {
	movies, err := e.catalog.Popular(ctx, tmdb.MediaMovie, 1)
	if err != nil {
		return nil, fmt.Errorf("popular movies: %w", err)
	}
	shows, err := e.catalog.Popular(ctx, tmdb.MediaTV, 1)
	if err != nil {
		return nil, fmt.Errorf("popular tv: %w", err)
	}

	merged := make([]tmdb.Media, 0, len(movies.Results)+len(shows.Results))
	for i := 0; i < len(movies.Results) || i < len(shows.Results); i++ {
		if i < len(movies.Results) {
			merged = append(merged, movies.Results[i])
		}
		if i < len(shows.Results) {
			merged = append(merged, shows.Results[i])
		}
	}
	return appendUnseen(nil, merged, h.excluded, make(map[models.MediaKey]bool)), nil
}

func appendUnseen(out, results []tmdb.Media, excluded, picked map[models.MediaKey]bool) []tmdb.Media {
	for _, m := range results {
		if !tmdb.ValidMediaType(m.MediaType) {
			continue
		}
		k := models.MediaKey{ID: m.ID, Type: m.MediaType}
		if excluded[k] || picked[k] {
			continue
		}
		picked[k] = true
		out = append(out, m)
	}
	return out
}

// classify trains on the user's interactions and labels items in place. It
// reports whether a model was trained.
func (e *Engine) classify(ctx context.Context, h *history, items []Recommendation, logger zerolog.Logger) bool {
	samples, err := e.trainingSamples(ctx, h.latest)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build classifier training set")
		metrics.ClassifierTrainings.WithLabelValues("error").Inc()
		return false
	}

	clf := NewClassifier(NumFeatures, ClassifierConfig{
		HiddenUnits:  e.cfg.HiddenUnits,
		Epochs:       e.cfg.Epochs,
		LearningRate: e.cfg.LearningRate,
		MinSamples:   e.cfg.MinTrainingSamples,
	})
	switch err := clf.Train(samples); {
	case errors.Is(err, ErrInsufficientData):
		metrics.ClassifierTrainings.WithLabelValues("insufficient_data").Inc()
		return false
	case errors.Is(err, ErrSingleClass):
		metrics.ClassifierTrainings.WithLabelValues("single_class").Inc()
		return false
	case err != nil:
		metrics.ClassifierTrainings.WithLabelValues("error").Inc()
		return false
	}
	metrics.ClassifierTrainings.WithLabelValues("trained").Inc()

	for i := range items {
		p := clf.Predict(Features(&items[i].Media))
		items[i].Score = p
		if p >= 0.5 {
			items[i].Label = LabelLike
		} else {
			items[i].Label = LabelDislike
		}
	}
	return true
}

// trainingSamples fetches TMDB details for the newest interactions. Titles
// TMDB no longer knows are skipped.
func (e *Engine) trainingSamples(ctx context.Context, latest []*models.Interaction) ([]Sample, error) {
	if len(latest) > maxTrainingSamples {
		latest = latest[:maxTrainingSamples]
	}

	// Indexed slots keep the sample order stable for seeded training.
	slots := make([]*Sample, len(latest))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, in := range latest {
		if !tmdb.ValidMediaType(in.MediaType) {
			continue
		}
		g.Go(func() error {
			d, err := e.catalog.Details(gctx, in.MediaType, in.MediaID)
			if errors.Is(err, tmdb.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			m := d.AsMedia()
			label := 0.0
			if in.Liked() {
				label = 1
			}
			slots[i] = &Sample{X: Features(&m), Label: label}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			samples = append(samples, *s)
		}
	}
	return samples, nil
}
