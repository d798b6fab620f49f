package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsSubmitted counts analysis submissions by outcome of the submit
	// call itself (accepted, rejected, queue_full).
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manbo",
		Subsystem: "jobs",
		Name:      "submitted_total",
		Help:      "Analysis job submissions by submit outcome",
	}, []string{"outcome"})

	// JobsFinished counts jobs that reached a terminal state.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manbo",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Analysis jobs finished by terminal status",
	}, []string{"status"})

	// JobDuration observes wall time from start of execution to terminal
	// state.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "manbo",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Analysis job execution duration",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"status"})

	// QueueDepth tracks the number of jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "manbo",
		Subsystem: "jobs",
		Name:      "queue_depth",
		Help:      "Jobs currently waiting in the submission queue",
	})

	// AgentCalls counts model inference calls by analyst role, provider and
	// outcome.
	AgentCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manbo",
		Subsystem: "agent",
		Name:      "calls_total",
		Help:      "Model inference calls by role, provider and status",
	}, []string{"role", "provider", "status"})

	// ToolCalls counts tool executions by tool name and outcome.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manbo",
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Tool executions by tool name and status",
	}, []string{"tool", "status"})

	// ToolDuration observes individual tool execution time.
	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "manbo",
		Subsystem: "tools",
		Name:      "duration_seconds",
		Help:      "Tool execution duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})
)

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
