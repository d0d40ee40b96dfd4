// Package metrics exposes Prometheus counters for invocations and tool calls.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soyeahso/agentcore/internal/hooks"
)

var (
	invocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentcore_invocations_total",
		Help: "Invocations handled, by outcome",
	}, []string{"outcome"})
	invocationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agentcore_invocation_duration_seconds",
		Help:    "Time spent handling an invocation",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentcore_tool_calls_total",
		Help: "Tool executions, by tool and status",
	}, []string{"tool", "status"})
)

func init() {
	prometheus.MustRegister(invocations, invocationDuration, toolCalls)
}

const handlerName = "metrics"

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveInvocation records one finished invocation.
func ObserveInvocation(outcome string, elapsed time.Duration) {
	invocations.WithLabelValues(outcome).Inc()
	invocationDuration.Observe(elapsed.Seconds())
}

// IncToolCall records one tool execution.
func IncToolCall(tool, status string) {
	toolCalls.WithLabelValues(tool, status).Inc()
}

// Attach records invocation_completed and tool_call events from hm.
func Attach(hm *hooks.Manager) {
	hm.On(hooks.EventInvocationCompleted, handlerName, func(_ context.Context, p hooks.Payload) error {
		outcome, _ := p.Data[hooks.KeyOutcome].(string)
		elapsed, _ := p.Data[hooks.KeyDuration].(time.Duration)
		ObserveInvocation(outcome, elapsed)
		return nil
	})
	hm.On(hooks.EventToolCall, handlerName, func(_ context.Context, p hooks.Payload) error {
		tool, _ := p.Data[hooks.KeyTool].(string)
		status, _ := p.Data[hooks.KeyOutcome].(string)
		IncToolCall(tool, status)
		return nil
	})
}
