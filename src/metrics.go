package taleweave

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taleweave_provider_requests_total",
		Help: "Provider calls by provider name and outcome.",
	}, []string{"provider", "outcome"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taleweave_provider_duration_seconds",
		Help:    "Provider call latency.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider"})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taleweave_fallback_total",
		Help: "Times the secondary provider was attempted, by operation.",
	}, []string{"operation"})

	parserStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taleweave_parser_stage_total",
		Help: "Which repair stage produced the accepted story payload.",
	}, []string{"stage"})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taleweave_sessions_started_total",
		Help: "New story sessions started.",
	})

	sessionsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taleweave_sessions_finished_total",
		Help: "Sessions that reached the epilogue.",
	})
)

func observeProvider(provider string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(seconds)
}
