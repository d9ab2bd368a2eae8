package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdash_cache_fetch_total",
		Help: "Resource fetches per key and outcome.",
	}, []string{"key", "outcome"})

	inFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rdash_cache_in_flight",
		Help: "Fetches currently in flight per key.",
	}, []string{"key"})

	skippedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdash_cache_skipped_ticks_total",
		Help: "Poll ticks skipped because a fetch was already in flight.",
	}, []string{"key"})
)
