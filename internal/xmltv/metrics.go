// SPDX-License-Identifier: MIT

package xmltv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var skippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relaycast_xmltv_skipped_total",
	Help: "Guide elements skipped during parsing, by kind.",
}, []string{"kind"})
