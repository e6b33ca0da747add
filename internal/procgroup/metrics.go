// SPDX-License-Identifier: MIT

package procgroup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_procgroup_signal_total",
		Help: "Signals sent to managed process groups, by signal and outcome.",
	}, []string{"signal", "outcome"})

	waitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaycast_procgroup_wait_total",
		Help: "Process wait results after termination, by outcome.",
	}, []string{"outcome"})
)
