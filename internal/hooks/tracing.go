package hooks

import (
	"context"
	"time"

	"github.com/soyeahso/agentcore/internal/logging"
)

// Well-known payload keys shared by emitters and handlers.
const (
	KeyRequestID = "requestId"
	KeySessionID = "sessionId"
	KeyOutcome   = "outcome"
	KeyDuration  = "duration"
	KeyTool      = "tool"
	KeyError     = "error"
	KeyAddr      = "addr"
)

const tracingHandler = "tracing"

// EnableTracing registers a handler on every event that logs it at info
// level with its request id and elapsed time.
func EnableTracing(m *Manager, log *logging.Logger) {
	tlog := log.Sub("trace")
	for _, event := range AllEvents {
		m.On(event, tracingHandler, func(_ context.Context, p Payload) error {
			ev := tlog.Info().Str("event", p.Event)
			for _, key := range []string{KeyRequestID, KeySessionID, KeyOutcome, KeyTool, KeyError, KeyAddr} {
				if v, ok := p.Data[key].(string); ok && v != "" {
					ev = ev.Str(key, v)
				}
			}
			if d, ok := p.Data[KeyDuration].(time.Duration); ok {
				ev = ev.Dur("elapsed", d)
			}
			ev.Msg("trace")
			return nil
		})
	}
}
