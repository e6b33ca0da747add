// SPDX-License-Identifier: MIT

package playlist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relaycast_playlist_dropped_total",
	Help: "Playlist entries dropped during parsing, by reason.",
}, []string{"reason"})
