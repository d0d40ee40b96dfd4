package hooks

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sessionIDKey
)

// WithRequestID attaches a request id so events emitted deeper in the call
// chain can be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSessionID attaches the runtime session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID returns the session id stored by WithSessionID, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// Fields returns the correlation ids carried by ctx as payload data.
func Fields(ctx context.Context) map[string]any {
	data := map[string]any{}
	if id := RequestID(ctx); id != "" {
		data[KeyRequestID] = id
	}
	if id := SessionID(ctx); id != "" {
		data[KeySessionID] = id
	}
	return data
}
