package telemetry

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry provides request, LLM, and tool monitoring for the agent service.
type Telemetry struct {
	logger *log.Logger

	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	llmRequests     *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	llmTokens       *prometheus.CounterVec
	toolInvocations *prometheus.CounterVec
}

// NewTelemetry creates a telemetry instance and registers its collectors.
// Pass nil to use the default prometheus registerer.
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	t := &Telemetry{
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoagent_requests_total",
			Help: "HTTP requests handled, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoagent_request_duration_seconds",
			Help:    "HTTP request latency, by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoagent_llm_requests_total",
			Help: "Remote model calls, by model and outcome.",
		}, []string{"model", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoagent_llm_duration_seconds",
			Help:    "Remote model call latency, by model.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoagent_llm_tokens_total",
			Help: "Tokens consumed, by model and direction.",
		}, []string{"model", "direction"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoagent_tool_invocations_total",
			Help: "Tool executions requested by the model, by tool and outcome.",
		}, []string{"tool", "outcome"}),
	}

	reg.MustRegister(
		t.requestsTotal,
		t.requestLatency,
		t.llmRequests,
		t.llmLatency,
		t.llmTokens,
		t.toolInvocations,
	)

	return t
}

// RecordRequest records one handled HTTP request.
func (t *Telemetry) RecordRequest(endpoint string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	t.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	t.requestLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordLLMCall records one remote model call.
func (t *Telemetry) RecordLLMCall(model string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	t.llmRequests.WithLabelValues(model, outcome).Inc()
	t.llmLatency.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil {
		t.logger.Printf("LLM call failed (model=%s, took=%s): %v", model, duration, err)
	}
}

// RecordTokens records token usage for one model call.
func (t *Telemetry) RecordTokens(model string, prompt, completion int64) {
	if prompt > 0 {
		t.llmTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		t.llmTokens.WithLabelValues(model, "completion").Add(float64(completion))
	}
}

// RecordToolInvocation records one tool execution requested by the model.
func (t *Telemetry) RecordToolInvocation(tool string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		t.logger.Printf("tool %s failed: %v", tool, err)
	}
	t.toolInvocations.WithLabelValues(tool, outcome).Inc()
}
