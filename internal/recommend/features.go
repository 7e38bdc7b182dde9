// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package recommend

import (
	"math"

	"github.com/tomtom215/nextstream/internal/tmdb"
)

// genreIDs is the union of TMDB movie and tv genre ids. Its order fixes the
// one-hot layout.
var genreIDs = []int{
	28, 12, 16, 35, 80, 99, 18, 10751, 14, 36, 27, 10402, 9648, 10749, 878, 10770, 53, 10752, 37,
	10759, 10762, 10763, 10764, 10765, 10766, 10767, 10768,
}

var genreIndex = func() map[int]int {
	m := make(map[int]int, len(genreIDs))
	for i, id := range genreIDs {
		m[id] = i
	}
	return m
}()

// NumFeatures is the classifier input width.
var NumFeatures = len(genreIDs) + 3

// Features converts a title into the classifier input vector:
// genre one-hot, vote average scaled to [0,1], log popularity, and a
// movie/tv flag.
func Features(m *tmdb.Media) []float64 {
	x := make([]float64, NumFeatures)
	for _, g := range m.GenreIDs {
		if i, ok := genreIndex[g]; ok {
			x[i] = 1
		}
	}
	n := len(genreIDs)
	x[n] = clamp(m.VoteAverage/10, 0, 1)
	x[n+1] = math.Log1p(math.Max(m.Popularity, 0)) / 10
	if m.MediaType == tmdb.MediaTV {
		x[n+2] = 1
	}
	return x
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
