// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ToolDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tool_dispatches_total",
			Help: "Total number of tool calls dispatched by the orchestrator",
		},
		[]string{"tool", "status"},
	)

	ModelTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_model_turns_total",
			Help: "Total number of model turns by reply kind",
		},
		[]string{"kind"},
	)

	FulfillmentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fulfillment_outcomes_total",
			Help: "Per-order fulfillment outcomes by stage and status",
		},
		[]string{"stage", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_upstream_request_duration_seconds",
			Help: "Duration of order-management API requests",
		},
		[]string{"endpoint"},
	)

	DocumentsAssembled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_documents_assembled_total",
			Help: "Merged documents produced, by assembly path",
		},
		[]string{"path"},
	)
)
