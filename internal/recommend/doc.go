// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package recommend produces per-user media recommendations from TMDB.
//
// # Pipeline
//
//  1. Build the exclusion set: liked and disliked media (latest interaction
//     per title), every title on the user's media list, and everything
//     already displayed this session.
//  2. Walk the user's liked titles and pull TMDB "similar" pages until
//     enough unseen candidates accumulate across movies and shows.
//  3. Fall back to popular movies and shows when nothing similar survives.
//  4. Optionally label every candidate with a small classifier trained on
//     the user's own likes and dislikes.
//  5. Append the returned ids to session memory so the next call moves on.
//
// # Classifier
//
// The classifier is a two-layer dense network (ReLU hidden layer, sigmoid
// output) trained from scratch on every call with plain SGD. Inputs are a
// genre one-hot vector, the normalized vote average and log popularity.
// Training is seeded so identical inputs give identical labels.
//
// # Thread Safety
//
// Engine is safe for concurrent use. A Classifier is owned by one call.
//
// # Usage
//
//	engine := recommend.NewEngine(cfg.Recommend, db, tmdbClient, sessions)
//	res, err := engine.Recommend(ctx, userID, recommend.Options{RecordSession: true})
package recommend
