package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLM-facing Prometheus metrics, covering both embedding and chat calls.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		},
		[]string{"kind", "model", "status"}, // kind: "embedding" / "chat"
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Name:      "llm_request_duration_seconds",
			Help:      "LLM API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"kind", "model", "type"}, // type: "prompt" / "completion" / "total"
	)

	LLMErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "llm_errors_total",
			Help:      "Total LLM API errors",
		},
		[]string{"kind", "model", "error_type"},
	)

	ChunksIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "chunks_indexed_total",
			Help:      "Total chunks written to the vector store",
		},
		[]string{"ticker"},
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers the LLM and indexing metrics. Must be called
// once from main.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(LLMErrorsTotal)
	prometheus.MustRegister(ChunksIndexedTotal)
	llmMetricsRegistered = true
}
