package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soyeahso/agentcore/internal/deploy"
)

func newInvokeCmd() *cobra.Command {
	var (
		url       string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "invoke [prompt]",
		Short: "Send a prompt to a running agent runtime",
		Long: "invoke posts {\"prompt\": ...} to <url>/invocations and prints the response envelope. " +
			"Without a prompt argument it asks for one interactively.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := promptArg(args)
			if err != nil {
				return err
			}
			if url == "" {
				url = invokeURL()
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return invokeRemote(ctx, deploy.NewInvokeClient(url), prompt, sessionID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "runtime base URL (default deploy.endpoint or http://localhost:<port>)")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "runtime session id (generated when empty)")
	return cmd
}

// promptArg joins args into the prompt, asking for one on a terminal when
// none was given.
func promptArg(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if !interactive() {
		return "", errors.New("a prompt argument is required")
	}
	return prompter.AskInput("Prompt:", "")
}

func invokeURL() string {
	if cfg.Deploy.Endpoint != "" {
		return cfg.Deploy.Endpoint
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}

func invokeRemote(ctx context.Context, c *deploy.InvokeClient, prompt, sessionID string, out io.Writer) error {
	env, err := c.Invoke(ctx, prompt, sessionID)
	if err != nil {
		return err
	}
	if err := printEnvelope(out, env); err != nil {
		return err
	}
	return env.Err()
}
