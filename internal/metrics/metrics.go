// Package metrics holds the process-wide Prometheus collectors. They are
// registered on the default registry and served by the web adapter at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lookup
	LookupChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "lookup",
		Name:      "checks_total",
		Help:      "Total check requests by outcome (found, not_found, empty, superseded, failed, cancelled)",
	}, []string{"outcome"})

	LookupTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "lookup",
		Name:      "tier_total",
		Help:      "Resolved checks by matching tier",
	}, []string{"tier"})

	LookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trustcheck",
		Subsystem: "lookup",
		Name:      "duration_seconds",
		Help:      "Check duration including the simulated delay",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.25, 0.5, 0.8, 1, 2.5, 5},
	})

	// Store
	StoreRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trustcheck",
		Subsystem: "store",
		Name:      "records",
		Help:      "Records currently held in memory",
	})

	StoreValidationWarnings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trustcheck",
		Subsystem: "store",
		Name:      "validation_warnings",
		Help:      "Data-quality warnings found at the last load or import",
	})

	StoreMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Store mutations by kind (add, import, restore)",
	}, []string{"kind"})

	// Scoring
	ScoringAnalysesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "scoring",
		Name:      "analyses_total",
		Help:      "Total notes analyzed",
	})

	ScoringScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trustcheck",
		Subsystem: "scoring",
		Name:      "score",
		Help:      "Distribution of clamped analysis scores",
		Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	LexiconReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "scoring",
		Name:      "lexicon_reloads_total",
		Help:      "Lexicon hot reloads by result (ok, error)",
	}, []string{"result"})

	// Transport
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP API requests by route and status code",
	}, []string{"route", "code"})

	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "HTTP API requests rejected by the rate limiter",
	})

	SocketRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustcheck",
		Subsystem: "socket",
		Name:      "requests_total",
		Help:      "Daemon socket requests by method and status (ok, error)",
	}, []string{"method", "status"})
)
