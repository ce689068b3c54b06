// Package metrics exposes the Prometheus counters and gauges the core emits,
// using client_golang directly against the default registry rather than an
// abstracted backend, since this repo has no pluggable-metrics requirement.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DroppedMessages counts backpressure drops, labeled by reason and category.
var DroppedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "scene_analytics_dropped_messages_total",
	Help: "Messages dropped before reaching a category worker or coordinator.",
}, []string{"reason", "category"})

// TransportErrors counts connect/publish failures surfaced by the transport.
var TransportErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "scene_analytics_transport_errors_total",
	Help: "Transport-level connect or publish failures.",
}, []string{"operation"})

// MalformedPayloads counts JSON parse/schema validation failures.
var MalformedPayloads = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "scene_analytics_malformed_payloads_total",
	Help: "Inbound payloads dropped for failing schema validation.",
}, []string{"topic"})

// WorkerFaults counts category-worker goroutine panics recovered by the worker pool.
var WorkerFaults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "scene_analytics_worker_faults_total",
	Help: "Category worker goroutines that exited on an unhandled fault.",
}, []string{"category"})

// ParamInvalidations counts DBSCAN parameter-change force-archive events.
var ParamInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "scene_analytics_param_invalidations_total",
	Help: "Force-archive events triggered by a significant DBSCAN parameter change.",
}, []string{"scene_id", "category"})

// ClustersByState gauges the current cluster count per lifecycle state.
var ClustersByState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "scene_analytics_clusters_by_state",
	Help: "Current tracked cluster count by lifecycle state.",
}, []string{"scene_id", "category", "state"})

func init() {
	prometheus.MustRegister(DroppedMessages, TransportErrors, MalformedPayloads,
		WorkerFaults, ParamInvalidations, ClustersByState)
}

// Serve starts an HTTP server exposing /metrics on addr in the background,
// against the default Prometheus registry.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
