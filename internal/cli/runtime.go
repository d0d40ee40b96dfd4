package cli

import (
	"fmt"

	"github.com/soyeahso/agentcore/internal/agent"
	"github.com/soyeahso/agentcore/internal/agent/tools"
	"github.com/soyeahso/agentcore/internal/config"
	"github.com/soyeahso/agentcore/internal/entrypoint"
	"github.com/soyeahso/agentcore/internal/hooks"
	"github.com/soyeahso/agentcore/internal/llm"
	"github.com/soyeahso/agentcore/internal/logging"
	"github.com/soyeahso/agentcore/internal/metrics"
	"github.com/soyeahso/agentcore/internal/store"
)

// agentRuntime is the assembled agent stack shared by `serve` and `agent run`.
type agentRuntime struct {
	hooks  *hooks.Manager
	runner *agent.Runner
	entry  *entrypoint.Entrypoint
	db     *store.DB
}

// Close releases the memory database, if one was opened.
func (rt *agentRuntime) Close() error {
	if rt.db == nil {
		return nil
	}
	return rt.db.Close()
}

// buildRuntime validates c and wires the model client, tools, hooks and
// entrypoint. client overrides the OpenAI client when non-nil.
func buildRuntime(c config.Config, p config.Paths, client llm.Client, log *logging.Logger) (*agentRuntime, error) {
	if issues := config.Validate(&c); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return nil, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}

	hm := hooks.NewManager(log)
	metrics.Attach(hm)
	if c.Tracing.Enabled {
		hooks.EnableTracing(hm, log)
		log.Info().Msg("tracing enabled")
	}

	rt := &agentRuntime{hooks: hm}
	toolReg := agent.NewToolRegistry(tools.NewCalculator())
	if c.Memory.IsEnabled() {
		dbPath := p.MemoryPath(&c)
		db, err := store.Open(dbPath, log)
		if err != nil {
			return nil, fmt.Errorf("opening memory store: %w", err)
		}
		rt.db = db
		toolReg.Register(tools.NewMemory(store.NewMemoryStore(db), c.Agent.Name))
		log.Info().Str("path", db.Path()).Msg("memory tool enabled")
	}

	if client == nil {
		client = llm.NewOpenAIClient(c.OpenAI.APIKey, c.OpenAI.Model, c.OpenAI.BaseURL)
	}
	temperature := c.OpenAI.Temperature
	rt.runner = agent.NewRunner(agent.RunnerConfig{
		AgentName:    c.Agent.Name,
		Model:        c.OpenAI.Model,
		MaxTokens:    c.OpenAI.MaxTokens,
		Temperature:  &temperature,
		SystemPrompt: c.Agent.SystemPrompt,
	}, client, toolReg, log).WithHooks(hm)
	rt.entry = entrypoint.New(rt.runner, log).WithHooks(hm)

	log.Info().
		Str("model", c.OpenAI.Model).
		Strs("tools", toolReg.Names()).
		Msg("agent ready")
	return rt, nil
}
