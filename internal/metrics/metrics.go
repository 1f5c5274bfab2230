// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkerRunsTotal counts Run invocations by result
	WorkerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timedemux_worker_runs_total",
			Help: "Total number of worker Run invocations",
		},
		[]string{"worker", "result"},
	)

	// WorkerRunErrorsTotal counts Run invocations that returned an error
	WorkerRunErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timedemux_worker_run_errors_total",
			Help: "Total number of worker Run invocations that failed",
		},
		[]string{"worker"},
	)

	// WorkerRunLatencySeconds measures a single Run invocation
	WorkerRunLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timedemux_worker_run_latency_seconds",
			Help:    "Latency of a single worker Run invocation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0000001, 2, 20), // 100ns to ~50ms
		},
		[]string{"worker"},
	)

	// WorkerProperty mirrors the numeric properties of a worker
	WorkerProperty = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timedemux_worker_property",
			Help: "Current value of a numeric worker property",
		},
		[]string{"worker", "property"},
	)

	// PortMessagesTotal counts messages committed on an output port
	PortMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timedemux_port_messages_total",
			Help: "Total number of messages committed on an output port",
		},
		[]string{"worker", "port", "opcode"},
	)

	// PortBytesTotal counts payload bytes committed on an output port
	PortBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timedemux_port_bytes_total",
			Help: "Total number of payload bytes committed on an output port",
		},
		[]string{"worker", "port"},
	)

	// PortEOFTotal counts end-of-stream signals on an output port
	PortEOFTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timedemux_port_eof_total",
			Help: "Total number of end-of-stream signals on an output port",
		},
		[]string{"worker", "port"},
	)

	// PortErrorsTotal counts failed deliveries on an output port
	PortErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timedemux_port_errors_total",
			Help: "Total number of failed deliveries on an output port",
		},
		[]string{"worker", "port"},
	)
)
