package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_scan_cycles_total",
		Help: "Total number of completed scan cycles",
	})

	recordsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_records_scanned_total",
		Help: "Total number of prescription records examined by the agent",
	})

	classifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classify_failures_total",
			Help: "Classification failures by kind",
		},
		[]string{"kind"}, // kind: timeout, service, malformed
	)

	classifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "classify_duration_seconds",
		Help:    "Latency of AI classification calls in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
	})

	routeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_outcomes_total",
			Help: "Severity gate outcomes",
		},
		[]string{"outcome"}, // outcome: persisted, logged_only
	)
)

// IncScanCycle counts a completed scan cycle.
func IncScanCycle() { scanCycles.Inc() }

// AddRecordsScanned counts records examined in a cycle.
func AddRecordsScanned(n int) { recordsScanned.Add(float64(n)) }

// IncClassifyFailure counts a classification failure of the given kind.
func IncClassifyFailure(kind string) { classifyFailures.WithLabelValues(kind).Inc() }

// ObserveClassifyDuration records the latency of one classification call.
func ObserveClassifyDuration(d time.Duration) { classifyDuration.Observe(d.Seconds()) }

// IncRouteOutcome counts a severity gate decision.
func IncRouteOutcome(outcome string) { routeOutcomes.WithLabelValues(outcome).Inc() }
