package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_queries_processed_total",
			Help: "Total number of questions processed by the pipeline",
		},
		[]string{"status"},
	)

	IntentParsePath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_intent_parse_total",
			Help: "Intent parses by path (oracle or fallback) and fallback reason",
		},
		[]string{"path", "reason"},
	)

	SynthesisPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_synthesis_total",
			Help: "Answers produced by path (oracle, fallback, no_data)",
		},
		[]string{"path"},
	)

	RetrievalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_context_retrieval_failures_total",
			Help: "Similarity searches that failed, by collection",
		},
		[]string{"collection"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floatchat_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	AuditFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_audit_failures_total",
			Help: "Audit records that could not be written, by backend",
		},
		[]string{"backend"},
	)
)
