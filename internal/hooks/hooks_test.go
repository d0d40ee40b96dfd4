package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/soyeahso/agentcore/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventServerStart, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventServerStart, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventServerStart, nil)
	assert.True(t, called)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventInvocationReceived, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventInvocationReceived, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventInvocationReceived, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var gotData map[string]any
	m.On(EventInvocationReceived, "test", func(_ context.Context, p Payload) error {
		gotData = p.Data
		return nil
	})

	m.Emit(context.Background(), EventInvocationReceived, map[string]any{
		KeyRequestID: "req-1",
		KeySessionID: "sess-1",
	})

	assert.Equal(t, "req-1", gotData[KeyRequestID])
	assert.Equal(t, "sess-1", gotData[KeySessionID])
}

func TestManager_Emit_HandlerError(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventServerStart, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventServerStart, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	// Should not panic; second handler should still run
	m.Emit(context.Background(), EventServerStart, nil)
	assert.True(t, secondCalled)
}

func TestManager_Emit_NoHandlers(t *testing.T) {
	m := testManager()
	// Should not panic
	m.Emit(context.Background(), EventServerStop, nil)
}

func TestManager_Off(t *testing.T) {
	m := testManager()

	var callCount int
	m.On(EventServerStart, "removable", func(_ context.Context, _ Payload) error {
		callCount++
		return nil
	})

	m.Emit(context.Background(), EventServerStart, nil)
	assert.Equal(t, 1, callCount)

	m.Off(EventServerStart, "removable")
	m.Emit(context.Background(), EventServerStart, nil)
	assert.Equal(t, 1, callCount) // should not have been called again
}

func TestManager_Off_KeepsOthers(t *testing.T) {
	m := testManager()

	var keepCalled int
	m.On(EventServerStart, "remove-me", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventServerStart, "keep-me", func(_ context.Context, _ Payload) error {
		keepCalled++
		return nil
	})

	m.Off(EventServerStart, "remove-me")
	m.Emit(context.Background(), EventServerStart, nil)
	assert.Equal(t, 1, keepCalled)
}

func TestManager_On_ReplacesSameName(t *testing.T) {
	m := testManager()

	var calls []string
	m.On(EventToolCall, "metrics", func(_ context.Context, _ Payload) error {
		calls = append(calls, "old")
		return nil
	})
	m.On(EventToolCall, "trace", func(_ context.Context, _ Payload) error {
		calls = append(calls, "trace")
		return nil
	})
	m.On(EventToolCall, "metrics", func(_ context.Context, _ Payload) error {
		calls = append(calls, "new")
		return nil
	})

	m.Emit(context.Background(), EventToolCall, nil)
	assert.Equal(t, []string{"new", "trace"}, calls)
	assert.Equal(t, 2, m.Count(EventToolCall))
}

func TestManager_Emit_AddsCorrelationIDs(t *testing.T) {
	m := testManager()

	var got Payload
	m.On(EventInvocationReceived, "capture", func(_ context.Context, p Payload) error {
		got = p
		return nil
	})

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")
	m.Emit(ctx, EventInvocationReceived, map[string]any{KeyRequestID: "explicit"})

	assert.Equal(t, "explicit", got.Data[KeyRequestID])
	assert.Equal(t, "sess-1", got.Data[KeySessionID])
	assert.False(t, got.At.IsZero())
}

func TestManager_Emit_HandlerPanic(t *testing.T) {
	m := testManager()

	var after bool
	m.On(EventToolCall, "boom", func(_ context.Context, _ Payload) error {
		panic("nil map")
	})
	m.On(EventToolCall, "after", func(_ context.Context, _ Payload) error {
		after = true
		return nil
	})

	assert.NotPanics(t, func() { m.Emit(context.Background(), EventToolCall, nil) })
	assert.True(t, after)
}

func TestManager_Count(t *testing.T) {
	m := testManager()

	assert.Equal(t, 0, m.Count(EventServerStart))

	m.On(EventServerStart, "h1", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 1, m.Count(EventServerStart))

	m.On(EventServerStart, "h2", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 2, m.Count(EventServerStart))
}

func TestManager_Events(t *testing.T) {
	m := testManager()

	m.On(EventServerStart, "h1", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventInvocationReceived, "h2", func(_ context.Context, _ Payload) error { return nil })

	assert.Equal(t, []string{EventInvocationReceived, EventServerStart}, m.Events())
}

func TestAllEvents_NotEmpty(t *testing.T) {
	require.NotEmpty(t, AllEvents)
	assert.Contains(t, AllEvents, EventServerStart)
	assert.Contains(t, AllEvents, EventInvocationReceived)
}

func TestManager_NilSafe(t *testing.T) {
	var m *Manager
	m.Emit(context.Background(), EventToolCall, nil)
	assert.Nil(t, m.Events())
}

func TestEnableTracing(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "info")
	m := NewManager(log)

	EnableTracing(m, log)
	for _, event := range AllEvents {
		assert.Equal(t, 1, m.Count(event), event)
	}

	m.Emit(context.Background(), EventInvocationCompleted, map[string]any{
		KeyRequestID: "req-9",
		KeyOutcome:   "result",
		KeyDuration:  1500 * time.Millisecond,
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "trace", line["subsystem"])
	assert.Equal(t, EventInvocationCompleted, line["event"])
	assert.Equal(t, "req-9", line[KeyRequestID])
	assert.Equal(t, "result", line[KeyOutcome])
	assert.Contains(t, line, "elapsed")

	EnableTracing(m, logging.New(&buf, "info"))
	for _, event := range AllEvents {
		assert.Equal(t, 1, m.Count(event), event)
	}
}
