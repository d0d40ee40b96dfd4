package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/agentcore/internal/hooks"
	"github.com/soyeahso/agentcore/internal/logging"
)

func TestAttach(t *testing.T) {
	hm := hooks.NewManager(logging.New(nil, "silent"))
	Attach(hm)

	before := testutil.ToFloat64(invocations.WithLabelValues("validation_error"))
	toolBefore := testutil.ToFloat64(toolCalls.WithLabelValues("calculator", "ok"))

	hm.Emit(context.Background(), hooks.EventInvocationCompleted, map[string]any{
		hooks.KeyOutcome:  "validation_error",
		hooks.KeyDuration: 20 * time.Millisecond,
	})
	hm.Emit(context.Background(), hooks.EventToolCall, map[string]any{
		hooks.KeyTool:    "calculator",
		hooks.KeyOutcome: "ok",
	})

	assert.Equal(t, before+1, testutil.ToFloat64(invocations.WithLabelValues("validation_error")))
	assert.Equal(t, toolBefore+1, testutil.ToFloat64(toolCalls.WithLabelValues("calculator", "ok")))
}

func TestHandler(t *testing.T) {
	ObserveInvocation("result", time.Second)
	IncToolCall("memory", "error")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `agentcore_invocations_total{outcome="result"}`)
	assert.Contains(t, string(body), `agentcore_tool_calls_total{status="error",tool="memory"}`)
	assert.Contains(t, string(body), "agentcore_invocation_duration_seconds_bucket")
}
