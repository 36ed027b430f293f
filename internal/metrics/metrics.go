package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "giftmatch"

// Chat turn outcomes
const (
	OutcomeModerated = "moderated"
	OutcomeClarify   = "clarify"
	OutcomeRecommend = "recommend"
	OutcomeError     = "error"

	OutcomeMissingContext = "missing_context"
	OutcomeNoMatches      = "no_matches"
	OutcomeSuccess        = "success"
)

var (
	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "Chat turns by outcome",
	}, []string{"outcome"})

	wizardRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wizard",
		Name:      "requests_total",
		Help:      "Wizard recommendation requests by outcome",
	}, []string{"outcome"})

	matchedCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "filter",
		Name:      "matched_candidates",
		Help:      "Number of gift candidates returned by the filter engine",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
	})

	generationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "generation_latency_seconds",
		Help:      "Latency of chat model calls by operation",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
	}, []string{"operation"})

	moderationFlaggedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "moderation",
		Name:      "flagged_total",
		Help:      "Messages flagged by moderation, by category",
	}, []string{"category"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assistant",
		Name:      "tool_calls_total",
		Help:      "Assistant tool calls by tool and status",
	}, []string{"tool", "status"})
)

// ChatTurn counts a finished chat turn
func ChatTurn(outcome string) {
	chatTurnsTotal.WithLabelValues(outcome).Inc()
}

// WizardRequest counts a wizard recommendation request
func WizardRequest(outcome string) {
	wizardRequestsTotal.WithLabelValues(outcome).Inc()
}

// MatchedCandidates records the size of a filter result
func MatchedCandidates(n int) {
	matchedCandidates.Observe(float64(n))
}

// ObserveGeneration records how long a model call took
func ObserveGeneration(operation string, started time.Time) {
	generationLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ModerationFlagged counts a flagged message
func ModerationFlagged(category string) {
	moderationFlaggedTotal.WithLabelValues(category).Inc()
}

// ToolCall counts an assistant tool invocation
func ToolCall(tool, status string) {
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
