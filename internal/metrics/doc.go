// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package metrics provides Prometheus metrics collection and export for observability.

Collectors are registered on the default registry at init through promauto and
exposed at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP Metrics:
  - http_requests_total: Total HTTP requests (counter)
    Labels: method, endpoint (chi route pattern), status
  - http_request_duration_seconds: Request latency (histogram)
  - http_requests_in_flight: Active requests (gauge)
  - http_rate_limit_hits_total: Requests rejected by httprate

TMDB Metrics:
  - tmdb_requests_total, tmdb_request_duration_seconds, tmdb_retries_total
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_transitions_total

Delivery Metrics:
  - outbox_published_total, outbox_publish_failures_total
  - outbox_pending_entries, outbox_dead_entries
  - eventbus_messages_consumed_total
  - notifications_sent_total (channel: email, push)
  - websocket_connections_active, websocket_messages_sent_total,
    websocket_messages_received_total, websocket_errors_total,
    websocket_duplicates_dropped_total

Scheduler Metrics:
  - scheduler_job_runs_total, scheduler_job_duration_seconds
  - scheduler_job_user_failures_total, scheduler_job_last_success_timestamp

Recommendation Metrics:
  - recommendation_requests_total (source: similar, popular)
  - recommendation_candidates
  - recommendation_classifier_trainings_total

# Example Alerts

	groups:
	  - name: nextstream
	    rules:
	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state{name="tmdb-api"} == 2
	        for: 5m
	      - alert: OutboxBacklog
	        expr: outbox_pending_entries > 1000
	        for: 10m
*/
package metrics
