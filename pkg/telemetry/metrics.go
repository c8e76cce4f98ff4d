package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── API surface ─────────────────────────────────────────────────────────────

	TasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dropscope",
		Subsystem: "api",
		Name:      "tasks_submitted_total",
		Help:      "Total analysis tasks accepted through the API.",
	})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dropscope",
		Subsystem: "api",
		Name:      "stream_subscribers",
		Help:      "Live status-stream subscribers currently connected.",
	})

	ReportsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dropscope",
		Subsystem: "api",
		Name:      "reports_created_total",
		Help:      "Total persisted reports, labelled by report type.",
	}, []string{"type"})

	// ─── Orchestrator ────────────────────────────────────────────────────────────

	TasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dropscope",
		Subsystem: "orchestrator",
		Name:      "tasks_inflight",
		Help:      "Tasks currently being processed.",
	})

	TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dropscope",
		Subsystem: "orchestrator",
		Name:      "tasks_finished_total",
		Help:      "Tasks that reached a terminal state, labelled by status.",
	}, []string{"status"})

	DomainsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dropscope",
		Subsystem: "orchestrator",
		Name:      "domains_processed_total",
		Help:      "Domains processed, labelled by outcome (ok|history_error|enrich_error).",
	}, []string{"outcome"})

	DomainDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dropscope",
		Subsystem: "orchestrator",
		Name:      "domain_duration_seconds",
		Help:      "Per-domain end-to-end processing time in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// ─── Outbound providers ──────────────────────────────────────────────────────

	ArchiveRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dropscope",
		Subsystem: "archive",
		Name:      "requests_total",
		Help:      "Archive history lookups, labelled by result (ok|empty|unavailable|error).",
	}, []string{"result"})

	EnrichRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dropscope",
		Subsystem: "enrich",
		Name:      "requests_total",
		Help:      "LLM enrichment calls, labelled by result (ok|degraded|error).",
	}, []string{"result"})
)
