// SPDX-License-Identifier: MIT

package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_refresh_cycle_total",
		Help: "Total refresh cycles by kind and result",
	}, []string{"kind", "result"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relaycast_refresh_cycle_duration_seconds",
		Help:    "Wall time of full refresh cycles",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	channelRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relaycast_catalog_channels",
		Help: "Channel records after the last successful refresh",
	})

	programmeRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relaycast_catalog_programmes",
		Help: "Programme records after the last successful refresh",
	})
)
