package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/agentcore/internal/hooks"
	"github.com/soyeahso/agentcore/internal/llm"
	"github.com/soyeahso/agentcore/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// echoTool returns its input, or fails when err is set.
type echoTool struct {
	name string
	err  error

	mu     sync.Mutex
	inputs []string
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echoes its input" }
func (e *echoTool) InputSchema() string { return `{"type":"object"}` }

func (e *echoTool) Execute(_ context.Context, input string) (string, error) {
	e.mu.Lock()
	e.inputs = append(e.inputs, input)
	e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	return "echo:" + input, nil
}

func testRunner(client llm.Client, tools ...Tool) *Runner {
	return NewRunner(RunnerConfig{
		AgentName: "test-agent",
		Model:     "gpt-test",
		MaxTokens: 256,
	}, client, NewToolRegistry(tools...), silentLog())
}

func TestRunnerInvoke(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			assert.Equal(t, "gpt-test", req.Model)
			assert.Equal(t, 256, req.MaxTokens)
			assert.Contains(t, req.System, DefaultSystemPrompt)
			assert.Contains(t, req.System, "Agent: test-agent")
			require.Len(t, req.Messages, 1)
			assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
			assert.Equal(t, "What is the meaning of life?", req.Messages[0].Content)
			assert.Empty(t, req.Tools)

			return &llm.CompletionResponse{
				Content: "  42  ",
				Model:   "gpt-test",
				Usage:   llm.Usage{InputTokens: 12, OutputTokens: 3},
			}, nil
		},
	}

	result, err := testRunner(mock).Invoke(context.Background(), "What is the meaning of life?")
	require.NoError(t, err)

	assert.Equal(t, "assistant", result.Message.Role)
	require.Len(t, result.Message.Content, 1)
	assert.Equal(t, "42", result.Message.Content[0].Text)
	assert.Equal(t, "42", result.Message.Text())
	assert.Equal(t, "gpt-test", result.Model)
	assert.Equal(t, 12, result.Usage.InputTokens)
	assert.Equal(t, 0, result.ToolCalls)
}

func TestRunnerInvoke_ToolLoop(t *testing.T) {
	echo := &echoTool{name: "echo"}
	calls := 0

	mock := &llm.MockClient{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			require.Len(t, req.Tools, 1)
			assert.Equal(t, "echo", req.Tools[0].Name)

			if calls == 1 {
				return &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{
						{ID: "call-1", Name: "echo", Input: `{"x":1}`},
						{ID: "call-2", Name: "echo"},
					},
					Usage: llm.Usage{InputTokens: 10, OutputTokens: 5},
				}, nil
			}

			require.Len(t, req.Messages, 4)
			assistant := req.Messages[1]
			assert.Equal(t, llm.RoleAssistant, assistant.Role)
			assert.Len(t, assistant.ToolCalls, 2)

			assert.Equal(t, llm.RoleTool, req.Messages[2].Role)
			assert.Equal(t, "call-1", req.Messages[2].ToolCallID)
			assert.Equal(t, `echo:{"x":1}`, req.Messages[2].Content)
			assert.Equal(t, "call-2", req.Messages[3].ToolCallID)
			assert.Equal(t, "echo:{}", req.Messages[3].Content)

			return &llm.CompletionResponse{
				Content: "done",
				Usage:   llm.Usage{InputTokens: 20, OutputTokens: 2},
			}, nil
		},
	}

	result, err := testRunner(mock, echo).Invoke(context.Background(), "use the tool")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "done", result.Message.Text())
	assert.Equal(t, 2, result.ToolCalls)
	assert.Equal(t, 30, result.Usage.InputTokens)
	assert.Equal(t, 7, result.Usage.OutputTokens)
	assert.Equal(t, []string{`{"x":1}`, "{}"}, echo.inputs)
}

func TestRunnerInvoke_ToolFailureIsReported(t *testing.T) {
	failing := &echoTool{name: "broken", err: errors.New("boom")}
	calls := 0

	mock := &llm.MockClient{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				return &llm.CompletionResponse{ToolCalls: []llm.ToolCall{
					{ID: "a", Name: "broken", Input: "{}"},
					{ID: "b", Name: "missing", Input: "{}"},
				}}, nil
			}
			assert.Equal(t, "Error: boom", req.Messages[2].Content)
			assert.Equal(t, "Error: unknown tool: missing", req.Messages[3].Content)
			return &llm.CompletionResponse{Content: "sorry"}, nil
		},
	}

	result, err := testRunner(mock, failing).Invoke(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "sorry", result.Message.Text())
}

func TestRunnerInvoke_MaxToolIterations(t *testing.T) {
	echo := &echoTool{name: "echo"}
	var requests []llm.CompletionRequest

	mock := &llm.MockClient{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			requests = append(requests, req)
			if req.Tools == nil {
				return &llm.CompletionResponse{Content: "giving up on tools"}, nil
			}
			return &llm.CompletionResponse{
				ToolCalls: []llm.ToolCall{{ID: "loop", Name: "echo", Input: "{}"}},
			}, nil
		},
	}

	result, err := testRunner(mock, echo).Invoke(context.Background(), "loop forever")
	require.NoError(t, err)
	require.Len(t, requests, maxToolIterations+1)
	assert.Nil(t, requests[maxToolIterations].Tools)
	assert.Equal(t, maxToolIterations, result.ToolCalls)
	assert.Equal(t, "giving up on tools", result.Message.Text())
}

func TestRunnerInvoke_LLMError(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "openai", Message: "rate limited", Code: 429}
		},
	}

	_, err := testRunner(mock).Invoke(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM completion")

	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable())
}

func TestRunnerInvoke_EmptyResponse(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "   "}, nil
		},
	}

	_, err := testRunner(mock).Invoke(context.Background(), "hi")
	assert.EqualError(t, err, "model returned an empty response")
}

func TestRunnerInvokeStream(t *testing.T) {
	var events []llm.StreamEvent
	result, err := testRunner(&llm.MockClient{}).InvokeStream(context.Background(), "hi", func(evt llm.StreamEvent) {
		events = append(events, evt)
	})
	require.NoError(t, err)
	assert.Equal(t, "mock stream response", result.Message.Text())

	require.Len(t, events, 2)
	assert.Equal(t, llm.EventDelta, events[0].Type)
	assert.Equal(t, "mock ", events[0].Content)
	assert.Equal(t, "stream response", events[1].Content)
}

func TestRunnerInvokeStream_ToolEvents(t *testing.T) {
	echo := &echoTool{name: "echo"}
	rounds := 0

	mock := &llm.MockClient{
		StreamFunc: func(_ context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			assert.True(t, req.Stream)
			rounds++
			ch := make(chan llm.StreamEvent, 3)
			if rounds == 1 {
				ch <- llm.StreamEvent{Type: llm.EventDone, Response: &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "1", Name: "echo", Input: "{}"}},
				}}
			} else {
				ch <- llm.StreamEvent{Type: llm.EventDelta, Content: "all "}
				ch <- llm.StreamEvent{Type: llm.EventDelta, Content: "done"}
				ch <- llm.StreamEvent{Type: llm.EventDone, Response: &llm.CompletionResponse{}}
			}
			close(ch)
			return ch, nil
		},
	}

	var types []string
	result, err := testRunner(mock, echo).InvokeStream(context.Background(), "hi", func(evt llm.StreamEvent) {
		types = append(types, evt.Type)
	})
	require.NoError(t, err)
	assert.Equal(t, "all done", result.Message.Text())
	assert.Equal(t, []string{EventToolStart, EventToolResult, llm.EventDelta, llm.EventDelta}, types)
}

func TestRunnerInvokeStream_Errors(t *testing.T) {
	t.Run("stream setup fails", func(t *testing.T) {
		mock := &llm.MockClient{
			StreamFunc: func(context.Context, llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
				return nil, errors.New("connection refused")
			},
		}
		_, err := testRunner(mock).InvokeStream(context.Background(), "hi", nil)
		assert.ErrorContains(t, err, "LLM stream: connection refused")
	})

	t.Run("error event", func(t *testing.T) {
		mock := &llm.MockClient{
			StreamFunc: func(context.Context, llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
				ch := make(chan llm.StreamEvent, 1)
				ch <- llm.StreamEvent{Type: llm.EventError, Error: "overloaded"}
				close(ch)
				return ch, nil
			},
		}
		_, err := testRunner(mock).InvokeStream(context.Background(), "hi", nil)
		assert.ErrorContains(t, err, "stream error: overloaded")
	})
}

func TestRunner_EmitsToolCallHook(t *testing.T) {
	hm := hooks.NewManager(silentLog())
	var payloads []hooks.Payload
	hm.On(hooks.EventToolCall, "test", func(_ context.Context, p hooks.Payload) error {
		payloads = append(payloads, p)
		return nil
	})

	calls := 0
	mock := &llm.MockClient{
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				return &llm.CompletionResponse{ToolCalls: []llm.ToolCall{
					{ID: "1", Name: "echo", Input: "{}"},
					{ID: "2", Name: "nope", Input: "{}"},
				}}, nil
			}
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}

	r := testRunner(mock, &echoTool{name: "echo"}).WithHooks(hm)
	ctx := hooks.WithRequestID(context.Background(), "req-7")
	_, err := r.Invoke(ctx, "hi")
	require.NoError(t, err)

	require.Len(t, payloads, 2)
	assert.Equal(t, "echo", payloads[0].Data[hooks.KeyTool])
	assert.Equal(t, "ok", payloads[0].Data[hooks.KeyOutcome])
	assert.Equal(t, "req-7", payloads[0].Data[hooks.KeyRequestID])
	assert.IsType(t, time.Duration(0), payloads[0].Data[hooks.KeyDuration])

	assert.Equal(t, "nope", payloads[1].Data[hooks.KeyTool])
	assert.Equal(t, "error", payloads[1].Data[hooks.KeyOutcome])
	assert.Contains(t, payloads[1].Data[hooks.KeyError], "unknown tool")
}

func TestToolRegistry(t *testing.T) {
	reg := NewToolRegistry(&echoTool{name: "zeta"}, &echoTool{name: "alpha"})

	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "echoes its input", defs[0].Description)

	_, ok := reg.Get("alpha")
	assert.True(t, ok)
	_, ok = reg.Get("beta")
	assert.False(t, ok)

	reg.Register(&echoTool{name: "beta"})
	assert.Len(t, reg.Names(), 3)
}

func TestBuildSystemPrompt(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("default base", func(t *testing.T) {
		prompt := BuildSystemPrompt(PromptConfig{Now: now})
		assert.True(t, strings.HasPrefix(prompt, DefaultSystemPrompt))
		assert.Contains(t, prompt, "Current date: 2025-03-14")
		assert.NotContains(t, prompt, "Agent:")
		assert.NotContains(t, prompt, "Guidelines")
	})

	t.Run("custom base with tools", func(t *testing.T) {
		prompt := BuildSystemPrompt(PromptConfig{
			AgentName: "oracle",
			Base:      "You are the Oracle.",
			ToolNames: []string{"calculator", "memory"},
			Now:       now,
		})
		assert.True(t, strings.HasPrefix(prompt, "You are the Oracle."))
		assert.Contains(t, prompt, "Agent: oracle")
		assert.Contains(t, prompt, "calculator tool")
		assert.Contains(t, prompt, "memory tool")
	})
}
