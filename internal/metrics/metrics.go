package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GraphBuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentiongraph_graph_builds_total",
		Help: "Total follows graphs built",
	})
	MessagesScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentiongraph_messages_scanned_total",
		Help: "Total messages scanned for mentions",
	})
	GraphEdges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentiongraph_graph_edges_total",
		Help: "Total follow edges across built graphs",
	})
	Rankings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentiongraph_rankings_total",
		Help: "Total influence rankings computed",
	})
	IngestRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentiongraph_ingest_runs_total",
		Help: "Total ingestion runs",
	})
	IngestErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentiongraph_ingest_errors_total",
		Help: "Total ingestion errors",
	})
	IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mentiongraph_ingest_duration_seconds",
		Help:    "Ingestion duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mentiongraph_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mentiongraph_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mentiongraph_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(GraphBuilds, MessagesScanned, GraphEdges, Rankings,
		IngestRuns, IngestErrors, IngestDuration, APIRetries, CommandRuns, CommandErrors)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
// Falls back to METRICS_ADDR; does nothing when both are empty.
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveIngestDuration records a run duration
func ObserveIngestDuration(start time.Time) {
	IngestDuration.Observe(time.Since(start).Seconds())
}

// ObserveGraph records one graph build over messages yielding edges follow edges.
func ObserveGraph(messages, edges int) {
	GraphBuilds.Inc()
	MessagesScanned.Add(float64(messages))
	GraphEdges.Add(float64(edges))
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
