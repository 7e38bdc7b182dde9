// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version,omitempty"`
	DatabaseConnected bool    `json:"database_connected"`
	DatabaseDriver    string  `json:"database_driver,omitempty"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	Uptime            float64 `json:"uptime_seconds"`
}

func (h *Handler) databaseUp(ctx context.Context) bool {
	if h.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.db.Ping(ctx) == nil
}

// Health reports database connectivity and uptime.
//
// @Summary Get system health status
// @Tags health
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:            "healthy",
		Version:           h.version,
		DatabaseConnected: h.databaseUp(r.Context()),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if !health.DatabaseConnected {
		health.Status = "degraded"
	}
	if h.db != nil {
		health.DatabaseDriver = h.db.Driver()
	}
	if h.cache != nil {
		health.CacheHitRate = h.cache.HitRate()
	}
	NewResponseWriter(w, r).Success(health)
}

// HealthLive returns 200 while the process runs, regardless of dependencies.
//
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} APIResponse
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 503 until the database answers.
//
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.databaseUp(r.Context()) {
		NewResponseWriter(w, r).ServiceUnavailable("database unavailable")
		return
	}
	NewResponseWriter(w, r).Success(map[string]bool{"ready": true})
}

// WebSocket upgrades the connection and joins the caller's user room.
//
// @Summary Real-time connection
// @Tags realtime
// @Success 101
// @Failure 401 {object} APIResponse
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("real-time service unavailable")
		return
	}
	h.hub.ServeWS(w, r, userID)
}
