// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal tracks completed chat turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns processed",
		},
		[]string{"outcome"},
	)

	// TurnDuration tracks full turn duration including tool execution.
	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "Chat turn duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	// ToolInvocationsTotal tracks tool dispatches by tool and outcome.
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_invocations_total",
			Help: "Total tool invocations",
		},
		[]string{"tool", "outcome"},
	)

	// ReasoningDuration tracks reasoning provider call duration.
	ReasoningDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoning_duration_seconds",
			Help:    "Reasoning provider call duration",
			Buckets: []float64{.25, .5, 1, 2, 3, 5, 8, 13},
		},
		[]string{"provider", "status"},
	)

	// ReasoningTokensTotal tracks reasoning tokens processed.
	ReasoningTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoning_tokens_total",
			Help: "Total reasoning tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// ContextTruncationsTotal tracks context-window truncation events.
	ContextTruncationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "context_truncations_total",
			Help: "Total context truncation events",
		},
	)

	// RateLimitRejectionsTotal tracks admissions denied by the rate limiter.
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total requests rejected by the rate limiter",
		},
	)

	// MessagesTotal tracks messages persisted by role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"sender"},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for a completed turn.
func RecordTurn(outcome string, duration float64) {
	TurnsTotal.WithLabelValues(outcome).Inc()
	TurnDuration.Observe(duration)
}

// RecordToolInvocation records one tool dispatch.
func RecordToolInvocation(tool string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	ToolInvocationsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordReasoning records metrics for a reasoning provider call.
func RecordReasoning(provider, status string, duration float64, tokensIn, tokensOut int) {
	ReasoningDuration.WithLabelValues(provider, status).Observe(duration)
	ReasoningTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	ReasoningTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}
