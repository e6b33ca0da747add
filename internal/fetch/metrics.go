// SPDX-License-Identifier: MIT

package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_fetch_attempt_total",
		Help: "Total fetch attempts by cache key and outcome",
	}, []string{"key", "outcome"})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_fetch_cache_fallback_total",
		Help: "Total fetches served from the cache after exhausting retries",
	}, []string{"key"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relaycast_fetch_duration_seconds",
		Help:    "Wall time of successful fetches including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"key"})
)
