// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package recommend

import (
	"errors"
	"math"
	"testing"

	"github.com/tomtom215/nextstream/internal/tmdb"
)

func separableSamples() []Sample {
	var out []Sample
	for i := 0; i < 10; i++ {
		out = append(out,
			Sample{X: []float64{1, 0, 0.5}, Label: 1},
			Sample{X: []float64{0, 1, 0.5}, Label: 0},
		)
	}
	return out
}

func TestClassifierLearnsSeparableData(t *testing.T) {
	clf := NewClassifier(3, ClassifierConfig{HiddenUnits: 4, Epochs: 300, LearningRate: 0.1})
	if err := clf.Train(separableSamples()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if p := clf.Predict([]float64{1, 0, 0.5}); p < 0.8 {
		t.Errorf("P(like | positive) = %.3f, want >= 0.8", p)
	}
	if p := clf.Predict([]float64{0, 1, 0.5}); p > 0.2 {
		t.Errorf("P(like | negative) = %.3f, want <= 0.2", p)
	}
}

func TestClassifierIsDeterministic(t *testing.T) {
	a := NewClassifier(3, ClassifierConfig{Seed: 7})
	b := NewClassifier(3, ClassifierConfig{Seed: 7})
	if err := a.Train(separableSamples()); err != nil {
		t.Fatal(err)
	}
	if err := b.Train(separableSamples()); err != nil {
		t.Fatal(err)
	}
	x := []float64{0.3, 0.7, 0.1}
	if pa, pb := a.Predict(x), b.Predict(x); pa != pb {
		t.Errorf("same seed gave %.6f and %.6f", pa, pb)
	}
}

func TestClassifierRejectsUnusableData(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    error
	}{
		{"too few", []Sample{{X: []float64{1}, Label: 1}}, ErrInsufficientData},
		{"only likes", []Sample{
			{X: []float64{1}, Label: 1}, {X: []float64{0}, Label: 1},
			{X: []float64{1}, Label: 1}, {X: []float64{0}, Label: 1},
		}, ErrSingleClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := NewClassifier(1, ClassifierConfig{})
			if err := clf.Train(tt.samples); !errors.Is(err, tt.want) {
				t.Errorf("Train() = %v, want %v", err, tt.want)
			}
			if clf.Trained() {
				t.Error("classifier marked trained")
			}
			if p := clf.Predict([]float64{1}); p != 0.5 {
				t.Errorf("untrained Predict = %v, want 0.5", p)
			}
		})
	}
}

func TestFeatures(t *testing.T) {
	m := &tmdb.Media{MediaType: tmdb.MediaTV, GenreIDs: []int{18, 99999}, VoteAverage: 15, Popularity: math.E - 1}
	x := Features(m)
	if len(x) != NumFeatures {
		t.Fatalf("len = %d, want %d", len(x), NumFeatures)
	}
	if x[genreIndex[18]] != 1 {
		t.Error("drama bit not set")
	}
	ones := 0
	for _, v := range x[:len(genreIDs)] {
		if v == 1 {
			ones++
		}
	}
	if ones != 1 {
		t.Errorf("genre bits set = %d, want 1", ones)
	}
	n := len(genreIDs)
	if x[n] != 1 {
		t.Errorf("vote feature = %v, want clamped 1", x[n])
	}
	if math.Abs(x[n+1]-0.1) > 1e-9 {
		t.Errorf("popularity feature = %v, want 0.1", x[n+1])
	}
	if x[n+2] != 1 {
		t.Error("tv flag not set")
	}
}
