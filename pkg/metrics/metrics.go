/*
 * stalker-addon exposes a Stalker/MAG IPTV portal as a Stremio TV catalog.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package metrics exposes the Prometheus collectors of the add-on.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)

var (
	// GenerationsTotal counts finished generator runs by result
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stalker_playlist_generations_total",
		Help: "Total number of playlist generator runs",
	}, []string{"result"})

	// GenerationDuration tracks how long generator runs take
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stalker_playlist_generation_duration_seconds",
		Help:    "Duration of playlist generator runs",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	})

	// GenerationsInFlight is the number of generator runs currently executing
	GenerationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stalker_playlist_generations_in_flight",
		Help: "Number of playlist generator runs in progress",
	})

	// CacheHits counts requests served from a fresh cached playlist
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stalker_playlist_cache_hits_total",
		Help: "Total number of requests answered from a fresh cached playlist",
	})

	// SharedWaits counts callers that joined a generation started by another request
	SharedWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stalker_playlist_generation_shared_total",
		Help: "Total number of callers that waited on an in-flight generation",
	})

	// Requests counts resolver calls by resource and outcome
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stalker_addon_requests_total",
		Help: "Total number of catalog, stream and meta requests",
	}, []string{"resource", "outcome"})
)

// ObserveGeneration records one finished generator run.
func ObserveGeneration(result string, d time.Duration) {
	GenerationsTotal.WithLabelValues(result).Inc()
	GenerationDuration.Observe(d.Seconds())
}

// RecordCacheHit increments the cache hit counter
func RecordCacheHit() {
	CacheHits.Inc()
}

// RecordSharedWait increments the shared wait counter
func RecordSharedWait() {
	SharedWaits.Inc()
}

// RecordRequest counts a resolver call.
func RecordRequest(resource, outcome string) {
	Requests.WithLabelValues(resource, outcome).Inc()
}
