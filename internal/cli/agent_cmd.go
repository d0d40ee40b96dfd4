package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soyeahso/agentcore/internal/agent"
	"github.com/soyeahso/agentcore/internal/entrypoint"
	"github.com/soyeahso/agentcore/internal/llm"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect and run the agent in-process",
	}

	cmd.AddCommand(newAgentInfoCmd())
	cmd.AddCommand(newAgentRunCmd())
	return cmd
}

func newAgentInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the agent's model settings and system prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Agent: %s\n", cfg.Agent.Name)
			fmt.Fprintf(out, "  Model:     %s\n", cfg.OpenAI.Model)
			fmt.Fprintf(out, "  Endpoint:  %s\n", cfg.OpenAI.BaseURL)
			fmt.Fprintf(out, "  MaxTokens: %d\n", cfg.OpenAI.MaxTokens)
			fmt.Fprintf(out, "  Temp:      %.2f\n", cfg.OpenAI.Temperature)

			toolNames := []string{"calculator"}
			if cfg.Memory.IsEnabled() {
				toolNames = append(toolNames, "memory")
			}
			fmt.Fprintf(out, "  Tools:     %s\n", strings.Join(toolNames, ", "))

			fmt.Fprintln(out, "\nSystem prompt:")
			fmt.Fprintln(out, agent.BuildSystemPrompt(agent.PromptConfig{
				AgentName: cfg.Agent.Name,
				Base:      cfg.Agent.SystemPrompt,
				ToolNames: toolNames,
			}))
			return nil
		},
	}
}

func newAgentRunCmd() *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one invocation in-process and print the envelope",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cfg, paths, nil, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runLocal(ctx, rt.entry, strings.Join(args, " "), stream, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "print text deltas as they arrive")
	return cmd
}

// runLocal sends prompt through entry and prints the envelope. With stream
// set, deltas go to out as they arrive and the envelope goes to errOut.
func runLocal(ctx context.Context, entry *entrypoint.Entrypoint, prompt string, stream bool, out, errOut io.Writer) error {
	payload := map[string]any{"prompt": prompt}

	var env entrypoint.Envelope
	if stream {
		env = entry.InvokeStream(ctx, payload, func(evt llm.StreamEvent) {
			if evt.Type == llm.EventDelta {
				fmt.Fprint(out, evt.Content)
			}
		})
		fmt.Fprintln(out)
		out = errOut
	} else {
		env = entry.Invoke(ctx, payload)
	}

	if err := printEnvelope(out, env); err != nil {
		return err
	}
	return env.Err()
}

func printEnvelope(w io.Writer, env entrypoint.Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
