package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rdash_sessions_active",
		Help: "Number of live authenticated sessions.",
	})
	sessionLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdash_session_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rdash_sessions_swept_total",
		Help: "Sessions destroyed by the idle janitor.",
	})
)
