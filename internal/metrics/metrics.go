// Package metrics holds the Prometheus collectors of the game engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Rounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_rounds_total",
			Help: "Rounds resolved, by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	DecodeSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_decode_seconds",
			Help:    "Time from question display to correct answer",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"scheme"},
	)
	Matches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_matches_total",
			Help: "Duels observed finishing, by local result",
		},
		[]string{"result"},
	)
	TransportErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_transport_errors_total",
			Help: "Publish, subscribe and record-store failures",
		},
		[]string{"op"},
	)
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arena_ws_clients",
			Help: "Connected relay websocket clients",
		},
	)
)

func init() {
	prometheus.MustRegister(Rounds)
	prometheus.MustRegister(DecodeSeconds)
	prometheus.MustRegister(Matches)
	prometheus.MustRegister(TransportErrors)
	prometheus.MustRegister(WSClients)
}
