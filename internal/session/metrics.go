// SPDX-License-Identifier: MIT

package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_pipeline_start_total",
		Help: "Pipeline process starts, by result.",
	}, []string{"result"})

	pipelineExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_pipeline_exit_total",
		Help: "Pipeline process exits, by reason.",
	}, []string{"reason"})

	sessionStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_session_start_total",
		Help: "Streaming session starts, by result.",
	}, []string{"result"})

	sessionStopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_session_stop_total",
		Help: "Streaming session stops, by trigger.",
	}, []string{"trigger"})

	sessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relaycast_session_active",
		Help: "1 while a streaming session is active.",
	})

	idleSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relaycast_session_idle_seconds",
		Help: "Current idle accumulator of the spectator monitor.",
	})
)
