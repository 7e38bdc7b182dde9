// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package middleware provides HTTP middleware shared by the API router.

  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern
  - Compression: gzip for clients that send Accept-Encoding: gzip

Both are written as http.HandlerFunc decorators; the router adapts them to
chi's func(http.Handler) http.Handler form.

Request IDs and CORS live in the api package next to the router.
*/
package middleware
