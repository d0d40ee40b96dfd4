package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/agentcore/internal/config"
	"github.com/soyeahso/agentcore/internal/deploy"
	"github.com/soyeahso/agentcore/internal/store"
	"github.com/soyeahso/agentcore/internal/version"
)

func newStatusCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary and runtime health",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", version.Info())

			fmt.Fprintf(out, "Config:  %s", paths.Config)
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprint(out, " (not found, using defaults)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Data:    %s\n\n", paths.Data)

			fmt.Fprintf(out, "Model:   %s (maxTokens=%d temperature=%g)\n",
				cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature)
			fmt.Fprintf(out, "API key: %s\n", redact(cfg.OpenAI.APIKey))
			fmt.Fprintf(out, "Server:  %s tracing=%v\n", cfg.ListenAddr(), cfg.Tracing.Enabled)
			if cfg.Memory.IsEnabled() {
				fmt.Fprintf(out, "Memory:  %s%s\n", paths.MemoryPath(&cfg), memorySummary(cmd.Context(), paths.MemoryPath(&cfg)))
			} else {
				fmt.Fprintln(out, "Memory:  disabled")
			}
			fmt.Fprintf(out, "Deploy:  app=%s region=%s image=%s:%s token=%s\n",
				cfg.Deploy.AppName, cfg.Deploy.Region, cfg.Deploy.Repository, cfg.Deploy.Tag, redact(cfg.Deploy.Token))

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			if url == "" {
				url = invokeURL()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ping, err := deploy.NewInvokeClient(url).Ping(ctx)
			if err != nil {
				fmt.Fprintf(out, "\nRuntime: %s unreachable (%v)\n", url, err)
				return nil
			}
			since := time.Unix(ping.TimeOfLastUpdate, 0).UTC().Format(time.RFC3339)
			fmt.Fprintf(out, "\nRuntime: %s %s (since %s)\n", url, ping.Status, since)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "runtime base URL to ping")
	return cmd
}

// memorySummary reports stored chunks and schema version for an existing
// memory database. It never creates one.
func memorySummary(ctx context.Context, path string) string {
	if path == store.InMemory {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return " (empty)"
	}
	db, err := store.Open(path, log)
	if err != nil {
		return fmt.Sprintf(" (error: %v)", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Sprintf(" (error: %v)", err)
	}
	n, err := store.NewMemoryStore(db).Count(ctx)
	if err != nil {
		return fmt.Sprintf(" (error: %v)", err)
	}
	schema, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Sprintf(" (error: %v)", err)
	}
	return fmt.Sprintf(" (%d chunks, schema v%d)", n, schema)
}

// redact keeps the last four characters of a secret.
func redact(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 8:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
