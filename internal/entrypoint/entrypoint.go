// Package entrypoint turns an invocation payload into a response envelope.
//
// It validates the payload, hands the prompt to the agent runtime and
// translates every failure, panics included, into one of two error kinds.
package entrypoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/soyeahso/agentcore/internal/agent"
	"github.com/soyeahso/agentcore/internal/hooks"
	"github.com/soyeahso/agentcore/internal/llm"
	"github.com/soyeahso/agentcore/internal/logging"
)

const (
	msgNotObject     = "Payload must be a dictionary"
	msgMissingPrompt = "No prompt found in payload. Please provide a 'prompt' key."
)

// Agent is the runtime the entrypoint delegates to. *agent.Runner
// satisfies it.
type Agent interface {
	Invoke(ctx context.Context, prompt string) (*agent.RunResult, error)
}

// StreamAgent is an Agent that can also report progress while it runs.
type StreamAgent interface {
	Agent
	InvokeStream(ctx context.Context, prompt string, cb agent.StreamCallback) (*agent.RunResult, error)
}

// Entrypoint handles invocations. It holds no per-request state and is
// safe for concurrent use.
type Entrypoint struct {
	agent Agent
	hooks *hooks.Manager
	log   *logging.Logger
}

// New returns an entrypoint delegating to a.
func New(a Agent, log *logging.Logger) *Entrypoint {
	return &Entrypoint{agent: a, log: log.Sub("entrypoint")}
}

// WithHooks makes the entrypoint emit invocation_received and
// invocation_completed events.
func (e *Entrypoint) WithHooks(hm *hooks.Manager) *Entrypoint {
	e.hooks = hm
	return e
}

// Invoke validates payload, runs the agent and returns the envelope.
func (e *Entrypoint) Invoke(ctx context.Context, payload any) Envelope {
	return e.invoke(ctx, payload, func(prompt string) (*agent.RunResult, error) {
		return e.agent.Invoke(ctx, prompt)
	})
}

// InvokeStream is Invoke with agent progress forwarded to cb. Agents that
// cannot stream are invoked normally.
func (e *Entrypoint) InvokeStream(ctx context.Context, payload any, cb agent.StreamCallback) Envelope {
	sa, ok := e.agent.(StreamAgent)
	if !ok {
		return e.Invoke(ctx, payload)
	}
	return e.invoke(ctx, payload, func(prompt string) (*agent.RunResult, error) {
		return sa.InvokeStream(ctx, prompt, cb)
	})
}

func (e *Entrypoint) invoke(ctx context.Context, payload any, run func(string) (*agent.RunResult, error)) (env Envelope) {
	start := time.Now()
	e.hooks.Emit(ctx, hooks.EventInvocationReceived, nil)

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("agent panicked")
			env = errorEnvelope(&ProcessingError{Message: fmt.Sprint(r)})
		}
		e.complete(ctx, env, time.Since(start))
	}()

	prompt, err := ExtractPrompt(payload)
	if err != nil {
		return errorEnvelope(err)
	}

	result, err := run(prompt)
	if err != nil {
		var pe *llm.ProviderError
		if errors.As(err, &pe) {
			e.log.Debug().Str("provider", pe.Provider).Int("status", pe.Code).Bool("retryable", pe.Retryable()).Msg("provider rejected completion")
		}
		return errorEnvelope(&ProcessingError{Message: err.Error()})
	}
	return resultEnvelope(result.Message)
}

func (e *Entrypoint) complete(ctx context.Context, env Envelope, elapsed time.Duration) {
	data := map[string]any{
		hooks.KeyOutcome:  env.Outcome(),
		hooks.KeyDuration: elapsed,
	}
	if !env.OK() {
		data[hooks.KeyError] = env.Error
	}
	e.hooks.Emit(ctx, hooks.EventInvocationCompleted, data)

	log := e.log
	if id := hooks.RequestID(ctx); id != "" {
		log = log.With("requestId", id)
	}
	if env.OK() {
		log.Info().Dur("duration", elapsed).Msg("invocation succeeded")
		return
	}
	log.Warn().Str("outcome", env.Outcome()).Str("error", env.Error).Dur("duration", elapsed).Msg("invocation failed")
}

// ExtractPrompt returns the non-empty string prompt of a mapping with
// string keys, or a *ValidationError.
func ExtractPrompt(payload any) (string, error) {
	prompt, ok := lookupPrompt(payload)
	if !ok {
		return "", &ValidationError{Message: msgNotObject}
	}

	s, ok := prompt.(string)
	if !ok || s == "" {
		return "", &ValidationError{Message: msgMissingPrompt}
	}
	return s, nil
}

// lookupPrompt returns the "prompt" entry of payload and whether payload is
// a mapping at all. Raw JSON values are decoded and named string types are
// reduced to string.
func lookupPrompt(payload any) (any, bool) {
	var prompt any
	switch p := payload.(type) {
	case map[string]any:
		prompt = p["prompt"]
	case map[string]string:
		if v, ok := p["prompt"]; ok {
			prompt = v
		}
	default:
		v := reflect.ValueOf(payload)
		if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		e := v.MapIndex(reflect.ValueOf("prompt").Convert(v.Type().Key()))
		if !e.IsValid() {
			return nil, true
		}
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		switch {
		case !e.IsValid():
		case e.Type() == reflect.TypeOf(json.RawMessage(nil)):
			var s string
			if json.Unmarshal(e.Bytes(), &s) == nil {
				prompt = s
			}
		case e.Kind() == reflect.String:
			prompt = e.String()
		default:
			prompt = e.Interface()
		}
	}
	return prompt, true
}
