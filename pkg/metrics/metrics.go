package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global collectors, registered on the default registry through promauto.

var (
	// BuildEdgesTotal counts edges ingested by chunked builds.
	BuildEdgesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glzip_build_edges_total",
			Help: "Total number of edges ingested by CSR builds",
		},
	)

	// BuildChunksTotal counts chunks reduced to partial CSRs.
	BuildChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glzip_build_chunks_total",
			Help: "Total number of edge chunks processed by CSR builds",
		},
	)

	// BuildFailuresTotal counts aborted builds, labeled by error kind
	// (decode, validation, source).
	BuildFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glzip_build_failures_total",
			Help: "Total number of aborted CSR builds",
		},
		[]string{"kind"},
	)

	// BuildDuration measures complete builds, from first read to final scatter.
	BuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glzip_build_duration_seconds",
			Help:    "Duration of CSR builds in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	// OptimizeDuration measures reorder runs.
	OptimizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glzip_optimize_duration_seconds",
			Help:    "Duration of CSR reorder runs in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	// GraphBytes tracks the footprint of the last graph produced, by stage
	// (build, optimize, load).
	GraphBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glzip_graph_bytes",
			Help: "Memory footprint of the most recent CSR produced per stage",
		},
		[]string{"stage"},
	)
)
