// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/tmdb/search", "200"))
	RecordAPIRequest("GET", "/api/tmdb/search", "200", 12*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/tmdb/search", "200"))

	if after-before != 1 {
		t.Errorf("http_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - base; got != 1 {
		t.Errorf("in-flight delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestRecordJobRun(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"success", nil, "success"},
		{"failure", errors.New("smtp down"), "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := JobRuns.WithLabelValues("reminder-digest", tt.result)
			before := testutil.ToFloat64(c)
			RecordJobRun("reminder-digest", time.Second, tt.err)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("job runs delta = %v, want 1", got)
			}
		})
	}

	if ts := testutil.ToFloat64(JobLastSuccess.WithLabelValues("reminder-digest")); ts == 0 {
		t.Error("last success timestamp not set")
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := CacheHits.WithLabelValues("tmdb")
	misses := CacheMisses.WithLabelValues("tmdb")
	h0, m0 := testutil.ToFloat64(hits), testutil.ToFloat64(misses)

	RecordCacheLookup("tmdb", true)
	RecordCacheLookup("tmdb", false)
	RecordCacheLookup("tmdb", false)

	if testutil.ToFloat64(hits)-h0 != 1 || testutil.ToFloat64(misses)-m0 != 2 {
		t.Errorf("cache deltas = %v hits, %v misses; want 1, 2",
			testutil.ToFloat64(hits)-h0, testutil.ToFloat64(misses)-m0)
	}
}

func TestTMDBHistogramObserved(t *testing.T) {
	RecordTMDBRequest("similar", 250*time.Millisecond, nil)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var fam *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "tmdb_request_duration_seconds" {
			fam = f
		}
	}
	if fam == nil {
		t.Fatal("tmdb_request_duration_seconds not registered")
	}
	if fam.GetType() != dto.MetricType_HISTOGRAM {
		t.Errorf("type = %v, want histogram", fam.GetType())
	}
	var count uint64
	for _, m := range fam.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "endpoint" && l.GetValue() == "similar" {
				count = m.GetHistogram().GetSampleCount()
			}
		}
	}
	if count == 0 {
		t.Error("no samples recorded for endpoint=similar")
	}
}

func TestTrackUptimeStops(t *testing.T) {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		TrackUptime(time.Now().Add(-time.Minute), stop)
		close(done)
	}()
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TrackUptime did not return after stop")
	}
	if testutil.ToFloat64(AppUptime) < 60 {
		t.Errorf("uptime = %v, want >= 60", testutil.ToFloat64(AppUptime))
	}
}
