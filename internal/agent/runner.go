// Package agent runs the model-and-tools loop behind each invocation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/agentcore/internal/hooks"
	"github.com/soyeahso/agentcore/internal/llm"
	"github.com/soyeahso/agentcore/internal/logging"
)

// maxToolIterations limits how many tool call rounds the agent can perform.
const maxToolIterations = 5

// Stream event types emitted to a StreamCallback in addition to llm deltas.
const (
	EventToolStart  = "tool_start"
	EventToolResult = "tool_result"
	EventToolError  = "tool_error"
)

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	AgentName    string
	Model        string
	MaxTokens    int
	Temperature  *float64
	SystemPrompt string
}

// ContentBlock is one piece of an assistant message.
type ContentBlock struct {
	Text string `json:"text"`
}

// Message is the assistant's final reply in the runtime's result shape.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Text joins the text of all content blocks.
func (m Message) Text() string {
	var parts []string
	for _, c := range m.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

// RunResult is the outcome of one invocation.
type RunResult struct {
	Message   Message       `json:"message"`
	Model     string        `json:"model,omitempty"`
	Usage     llm.Usage     `json:"usage"`
	ToolCalls int           `json:"toolCalls"`
	Duration  time.Duration `json:"duration"`
}

// StreamCallback is called for each streaming event during InvokeStream.
// Event types:
//   - "delta": incremental text (Content)
//   - "tool_start": a tool is about to run (Content names it)
//   - "tool_result": the tool finished (Content names it)
//   - "tool_error": the tool failed (Content describes the failure)
type StreamCallback func(event llm.StreamEvent)

// Runner is the agent orchestration loop. Each call is independent: no
// conversation history is kept between invocations.
type Runner struct {
	cfg    RunnerConfig
	client llm.Client
	tools  *ToolRegistry
	hooks  *hooks.Manager
	log    *logging.Logger
}

// NewRunner creates an agent runner. tools may be nil.
func NewRunner(cfg RunnerConfig, client llm.Client, tools *ToolRegistry, log *logging.Logger) *Runner {
	if tools == nil {
		tools = NewToolRegistry()
	}
	return &Runner{
		cfg:    cfg,
		client: client,
		tools:  tools,
		log:    log.Sub("agent"),
	}
}

// WithHooks makes the runner emit tool_call events.
func (r *Runner) WithHooks(hm *hooks.Manager) *Runner {
	r.hooks = hm
	return r
}

// Tools returns the runner's tool registry.
func (r *Runner) Tools() *ToolRegistry {
	return r.tools
}

// Invoke sends the prompt to the model, running requested tools until the
// model answers in plain text.
func (r *Runner) Invoke(ctx context.Context, prompt string) (*RunResult, error) {
	return r.run(ctx, prompt, nil)
}

// InvokeStream is Invoke with text deltas and tool progress forwarded to cb
// as they arrive.
func (r *Runner) InvokeStream(ctx context.Context, prompt string, cb StreamCallback) (*RunResult, error) {
	if cb == nil {
		cb = func(llm.StreamEvent) {}
	}
	return r.run(ctx, prompt, cb)
}

func (r *Runner) run(ctx context.Context, prompt string, cb StreamCallback) (*RunResult, error) {
	start := time.Now()
	log := r.log
	if id := hooks.RequestID(ctx); id != "" {
		log = log.With("requestId", id)
	}

	system := BuildSystemPrompt(PromptConfig{
		AgentName: r.cfg.AgentName,
		Base:      r.cfg.SystemPrompt,
		ToolNames: r.tools.Names(),
	})
	messages := []llm.Message{{Role: llm.RoleUser, Content: prompt}}
	defs := r.tools.Definitions()

	var (
		final     *llm.CompletionResponse
		usage     llm.Usage
		toolCalls int
	)

	for i := 0; ; i++ {
		req := llm.CompletionRequest{
			Model:       r.cfg.Model,
			System:      system,
			Messages:    messages,
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
			Tools:       defs,
		}
		// Out of tool rounds: ask for a plain answer.
		if i >= maxToolIterations {
			req.Tools = nil
		}

		resp, err := r.complete(ctx, req, cb)
		if err != nil {
			return nil, err
		}
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		final = resp

		if len(resp.ToolCalls) == 0 || req.Tools == nil {
			break
		}

		log.Debug().Int("round", i+1).Int("toolCalls", len(resp.ToolCalls)).Msg("executing tool calls")

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			toolCalls++
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    r.executeToolCall(ctx, call, cb),
			})
		}
	}

	text := strings.TrimSpace(final.Content)
	if text == "" {
		return nil, errors.New("model returned an empty response")
	}

	result := &RunResult{
		Message: Message{
			Role:    llm.RoleAssistant,
			Content: []ContentBlock{{Text: text}},
		},
		Model:     final.Model,
		Usage:     usage,
		ToolCalls: toolCalls,
		Duration:  time.Since(start),
	}

	log.Info().
		Str("model", result.Model).
		Int("inputTokens", usage.InputTokens).
		Int("outputTokens", usage.OutputTokens).
		Int("toolCalls", toolCalls).
		Dur("duration", result.Duration).
		Msg("response generated")

	return result, nil
}

// complete performs one model round, streaming when cb is set.
func (r *Runner) complete(ctx context.Context, req llm.CompletionRequest, cb StreamCallback) (*llm.CompletionResponse, error) {
	if cb == nil {
		resp, err := r.client.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("LLM completion: %w", err)
		}
		return resp, nil
	}

	req.Stream = true
	ch, err := r.client.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM stream: %w", err)
	}

	var content strings.Builder
	var resp *llm.CompletionResponse
	for evt := range ch {
		switch evt.Type {
		case llm.EventDelta:
			content.WriteString(evt.Content)
			cb(evt)
		case llm.EventDone:
			resp = evt.Response
		case llm.EventError:
			return nil, fmt.Errorf("stream error: %s", evt.Error)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if resp == nil {
		resp = &llm.CompletionResponse{Model: r.cfg.Model}
	}
	if resp.Content == "" {
		resp.Content = content.String()
	}
	return resp, nil
}

// executeToolCall runs one tool and returns the text fed back to the model.
// Failures are reported to the model rather than aborting the invocation.
func (r *Runner) executeToolCall(ctx context.Context, call llm.ToolCall, cb StreamCallback) string {
	start := time.Now()
	notify := func(typ, content string) {
		if cb != nil {
			cb(llm.StreamEvent{Type: typ, Content: content})
		}
	}
	notify(EventToolStart, call.Name)

	var (
		output string
		err    error
	)
	tool, ok := r.tools.Get(call.Name)
	if !ok {
		err = fmt.Errorf("unknown tool: %s", call.Name)
	} else {
		input := call.Input
		if strings.TrimSpace(input) == "" {
			input = "{}"
		}
		output, err = tool.Execute(ctx, input)
	}

	data := map[string]any{
		hooks.KeyTool:     call.Name,
		hooks.KeyDuration: time.Since(start),
		hooks.KeyOutcome:  "ok",
	}
	if err != nil {
		data[hooks.KeyOutcome] = "error"
		data[hooks.KeyError] = err.Error()
	}
	r.hooks.Emit(ctx, hooks.EventToolCall, data)

	if err != nil {
		r.log.Warn().Err(err).Str("tool", call.Name).Msg("tool failed")
		notify(EventToolError, fmt.Sprintf("Tool %s failed: %v", call.Name, err))
		return "Error: " + err.Error()
	}
	r.log.Debug().Str("tool", call.Name).Dur("duration", time.Since(start)).Msg("tool completed")
	notify(EventToolResult, call.Name)
	return output
}
