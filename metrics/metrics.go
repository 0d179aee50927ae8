// Package metrics exposes the Prometheus counters served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTracked counts successfully persisted events by kind.
	EventsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popup_events_total",
		Help: "Tracked popup events by event kind.",
	}, []string{"event"})

	// RateLimited counts requests rejected with 429.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "popup_rate_limited_total",
		Help: "Track-event requests rejected by the rate limiter.",
	})

	// ValidationFailures counts requests rejected with 400.
	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "popup_validation_failures_total",
		Help: "Track-event requests rejected by field validation.",
	})
)
