// Package metrics contains definitions of the prometheus metrics exposed by
// the link checker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace and subsystem names used by every metric in this package.
const (
	namespace = "linkchecker"

	subsystemPool  = "pool"
	subsystemProbe = "probe"
)

// Pool-level counters and gauges, incremented/set by the scheduler from a
// [github.com/repology/repology-linkchecker/internal/workerpool.Stats]
// snapshot taken at each statistics poll (several per iteration).
var (
	ScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemPool,
		Name:      "scanned_total",
		Help:      "Total number of URLs passed to the worker pool.",
	})

	SubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemPool,
		Name:      "submitted_total",
		Help:      "Total number of URLs handed to a processor.",
	})

	ProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemPool,
		Name:      "processed_total",
		Help:      "Total number of URLs whose processor call has returned.",
	})

	WorkersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemPool,
		Name:      "workers",
		Help:      "Number of live per-host workers.",
	})

	QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemPool,
		Name:      "queue_depth",
		Help:      "Number of URLs currently pending or in-flight across all workers.",
	})
)

// Probe-level histogram and counter, recorded by the HTTP processor for
// every family actually probed.
var (
	ProbeDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystemProbe,
		Name:      "duration_seconds",
		Help:      "Time a single URL check took, by address family.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"family"})

	StatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemProbe,
		Name:      "status_total",
		Help:      "Total number of probe outcomes, by address family and status code.",
	}, []string{"family", "code"})
)
