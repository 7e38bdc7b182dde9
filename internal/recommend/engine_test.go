// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package recommend

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/session"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

type fakeStore struct {
	interactions []*models.Interaction
	statuses     []*models.MediaStatus
}

func (f *fakeStore) ListInteractions(ctx context.Context, userID int64) ([]*models.Interaction, error) {
	return f.interactions, nil
}

func (f *fakeStore) ListMediaStatuses(ctx context.Context, userID int64, status string) ([]*models.MediaStatus, error) {
	return f.statuses, nil
}

type fakeCatalog struct {
	mu      sync.Mutex
	similar map[string][]tmdb.Media // "type:id:page"
	popular map[string][]tmdb.Media
	details map[string]*tmdb.Details
	calls   []string
}

func (f *fakeCatalog) Similar(ctx context.Context, mediaType string, id int64, page int) (*tmdb.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s:%d:%d", mediaType, id, page)
	f.calls = append(f.calls, "similar:"+key)
	return &tmdb.Page{Page: page, TotalPages: 10, Results: f.similar[key]}, nil
}

func (f *fakeCatalog) Popular(ctx context.Context, mediaType string, page int) (*tmdb.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "popular:"+mediaType)
	return &tmdb.Page{Page: 1, TotalPages: 1, Results: f.popular[mediaType]}, nil
}

func (f *fakeCatalog) Details(ctx context.Context, mediaType string, id int64) (*tmdb.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[fmt.Sprintf("%s:%d", mediaType, id)]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return d, nil
}

func (f *fakeCatalog) similarCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) > 8 && c[:8] == "similar:" {
			n++
		}
	}
	return n
}

func movie(id int64) tmdb.Media {
	return tmdb.Media{ID: id, MediaType: tmdb.MediaMovie, Title: fmt.Sprint("m", id)}
}
func show(id int64) tmdb.Media {
	return tmdb.Media{ID: id, MediaType: tmdb.MediaTV, Name: fmt.Sprint("s", id)}
}

func interaction(id int64, mediaType string, like bool) *models.Interaction {
	v := models.Dislike
	if like {
		v = models.Like
	}
	return &models.Interaction{UserID: 1, MediaID: id, MediaType: mediaType, Interaction: v}
}

func TestRecommendExcludesHistory(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		interactions: []*models.Interaction{
			interaction(1, tmdb.MediaMovie, true),
			interaction(2, tmdb.MediaMovie, false),
		},
		statuses: []*models.MediaStatus{
			{MediaID: 3, MediaType: tmdb.MediaMovie, Status: models.StatusWatched},
			{MediaID: 4, MediaType: tmdb.MediaTV, Status: models.StatusToWatch},
		},
	}
	cat := &fakeCatalog{similar: map[string][]tmdb.Media{
		"movie:1:1": {movie(1), movie(2), movie(3), show(4), movie(4), show(5), movie(6), movie(7)},
	}}
	sessions := session.NewMemoryStore(time.Hour)
	_ = sessions.Record(ctx, 1, []models.MediaKey{{ID: 6, Type: tmdb.MediaMovie}})

	e := NewEngine(config.RecommendConfig{MinCandidates: 4, MaxPages: 10}, store, cat, sessions)
	res, err := e.Recommend(ctx, 1, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Source != SourceSimilar {
		t.Errorf("source = %s, want similar", res.Source)
	}

	excluded := map[models.MediaKey]bool{
		{ID: 1, Type: "movie"}: true, {ID: 2, Type: "movie"}: true, {ID: 3, Type: "movie"}: true,
		{ID: 4, Type: "tv"}: true, {ID: 6, Type: "movie"}: true,
	}
	for _, it := range res.Items {
		if excluded[models.MediaKey{ID: it.ID, Type: it.MediaType}] {
			t.Errorf("excluded title %s/%d returned", it.MediaType, it.ID)
		}
	}
	// movie 4 and tv 4 are different titles.
	want := []models.MediaKey{{ID: 4, Type: "movie"}, {ID: 5, Type: "tv"}, {ID: 7, Type: "movie"}}
	if len(res.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(res.Items), len(want))
	}
	for i, w := range want {
		if res.Items[i].ID != w.ID || res.Items[i].MediaType != w.Type {
			t.Errorf("item %d = %s/%d, want %s/%d", i, res.Items[i].MediaType, res.Items[i].ID, w.Type, w.ID)
		}
	}
}

func TestRecommendStopsPagingAtMinCandidates(t *testing.T) {
	store := &fakeStore{interactions: []*models.Interaction{
		interaction(10, tmdb.MediaMovie, true),
		interaction(20, tmdb.MediaTV, true),
	}}
	cat := &fakeCatalog{similar: map[string][]tmdb.Media{
		"movie:10:1": {movie(100), movie(101)},
		"movie:10:2": {movie(102), show(103), movie(104)},
		"tv:20:1":    {show(200)},
	}}

	e := NewEngine(config.RecommendConfig{MinCandidates: 4, MaxPages: 10}, store, cat, nil)
	res, err := e.Recommend(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(res.Items) != 5 {
		t.Errorf("items = %d, want 5", len(res.Items))
	}
	if n := cat.similarCalls(); n != 2 {
		t.Errorf("similar calls = %d, want 2", n)
	}
}

func TestRecommendWalksAllPagesThenNextSeed(t *testing.T) {
	store := &fakeStore{interactions: []*models.Interaction{
		interaction(10, tmdb.MediaMovie, true),
		interaction(20, tmdb.MediaTV, true),
	}}
	cat := &fakeCatalog{similar: map[string][]tmdb.Media{
		"movie:10:1": {movie(100)},
		"tv:20:1":    {show(200), show(201), show(202)},
	}}

	e := NewEngine(config.RecommendConfig{MinCandidates: 4, MaxPages: 3}, store, cat, nil)
	res, err := e.Recommend(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(res.Items) != 4 {
		t.Errorf("items = %d, want 4", len(res.Items))
	}
	if n := cat.similarCalls(); n != 4 {
		t.Errorf("similar calls = %d, want 4 (3 pages + 1)", n)
	}
}

func TestRecommendFallsBackToPopular(t *testing.T) {
	store := &fakeStore{statuses: []*models.MediaStatus{{MediaID: 1, MediaType: tmdb.MediaMovie}}}
	cat := &fakeCatalog{popular: map[string][]tmdb.Media{
		tmdb.MediaMovie: {movie(1), movie(2)},
		tmdb.MediaTV:    {show(1), show(3)},
	}}

	e := NewEngine(config.RecommendConfig{}, store, cat, nil)
	res, err := e.Recommend(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Source != SourcePopular {
		t.Errorf("source = %s, want popular", res.Source)
	}
	if len(res.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(res.Items))
	}
	if res.Items[0].MediaType != tmdb.MediaTV || res.Items[0].ID != 1 {
		t.Errorf("first item = %s/%d, want tv/1", res.Items[0].MediaType, res.Items[0].ID)
	}
}

func TestRecommendRecordsSession(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{popular: map[string][]tmdb.Media{
		tmdb.MediaMovie: {movie(1), movie(2)},
		tmdb.MediaTV:    {show(3)},
	}}
	sessions := session.NewMemoryStore(time.Hour)
	e := NewEngine(config.RecommendConfig{MaxResults: 2}, &fakeStore{}, cat, sessions)

	first, err := e.Recommend(ctx, 1, Options{RecordSession: true})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(first.Items) != 2 {
		t.Fatalf("first call items = %d, want 2", len(first.Items))
	}

	second, err := e.Recommend(ctx, 1, Options{RecordSession: true})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("second call items = %d, want 1", len(second.Items))
	}
	for _, a := range first.Items {
		if a.ID == second.Items[0].ID && a.MediaType == second.Items[0].MediaType {
			t.Errorf("title %s/%d shown twice", a.MediaType, a.ID)
		}
	}
}

func TestRecommendWithoutSessionRecording(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{popular: map[string][]tmdb.Media{tmdb.MediaMovie: {movie(1)}}}
	sessions := session.NewMemoryStore(time.Hour)
	e := NewEngine(config.RecommendConfig{}, &fakeStore{}, cat, sessions)

	if _, err := e.Recommend(ctx, 1, Options{}); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	shown, err := sessions.Displayed(ctx, 1)
	if err != nil {
		t.Fatalf("Displayed: %v", err)
	}
	if len(shown) != 0 {
		t.Errorf("session recorded %d ids without RecordSession", len(shown))
	}
}

func TestRecommendClassifierLabels(t *testing.T) {
	const action, romance = 28, 10749
	details := map[string]*tmdb.Details{}
	var interactions []*models.Interaction
	for i := int64(1); i <= 12; i++ {
		genre, like := action, true
		if i%2 == 0 {
			genre, like = romance, false
		}
		details[fmt.Sprintf("movie:%d", i)] = &tmdb.Details{
			ID: i, MediaType: tmdb.MediaMovie, Genres: []tmdb.Genre{{ID: genre}}, VoteAverage: 7, Popularity: 50,
		}
		interactions = append(interactions, interaction(i, tmdb.MediaMovie, like))
	}

	cat := &fakeCatalog{
		details: details,
		similar: map[string][]tmdb.Media{
			"movie:1:1": {
				{ID: 100, MediaType: tmdb.MediaMovie, GenreIDs: []int{action}, VoteAverage: 7, Popularity: 50},
				{ID: 101, MediaType: tmdb.MediaMovie, GenreIDs: []int{romance}, VoteAverage: 7, Popularity: 50},
				{ID: 102, MediaType: tmdb.MediaMovie, GenreIDs: []int{action}, VoteAverage: 7, Popularity: 50},
				{ID: 103, MediaType: tmdb.MediaMovie, GenreIDs: []int{romance}, VoteAverage: 7, Popularity: 50},
			},
		},
	}
	cfg := config.RecommendConfig{ClassifierEnabled: true, MinTrainingSamples: 4, Epochs: 300, HiddenUnits: 8, LearningRate: 0.1}
	e := NewEngine(cfg, &fakeStore{interactions: interactions}, cat, nil)

	res, err := e.Recommend(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !res.Classified {
		t.Fatal("expected classifier overlay")
	}
	for _, it := range res.Items {
		want := LabelDislike
		if it.GenreIDs[0] == action {
			want = LabelLike
		}
		if it.Label != want {
			t.Errorf("item %d label = %s, want %s (score %.3f)", it.ID, it.Label, want, it.Score)
		}
	}
}

func TestRecommendClassifierSkippedForOneClass(t *testing.T) {
	cat := &fakeCatalog{
		details: map[string]*tmdb.Details{
			"movie:1": {ID: 1, MediaType: tmdb.MediaMovie},
			"movie:2": {ID: 2, MediaType: tmdb.MediaMovie},
		},
		similar: map[string][]tmdb.Media{"movie:1:1": {movie(5)}},
	}
	store := &fakeStore{interactions: []*models.Interaction{
		interaction(1, tmdb.MediaMovie, true),
		interaction(2, tmdb.MediaMovie, true),
	}}
	e := NewEngine(config.RecommendConfig{ClassifierEnabled: true, MinTrainingSamples: 1}, store, cat, nil)

	res, err := e.Recommend(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Classified {
		t.Error("classifier should be skipped with a single label class")
	}
	if res.Items[0].Label != "" {
		t.Errorf("label = %q, want empty", res.Items[0].Label)
	}
}
