package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"

	"github.com/soyeahso/agentcore/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		host        string
		port        int
		noMetrics   bool
		autoRestart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent runtime server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			rt, err := buildRuntime(cfg, paths, nil, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			if autoRestart {
				go autorestart.RestartOnChange()
			}

			opts := []server.ServerOption{server.WithHooks(rt.hooks)}
			if noMetrics {
				opts = append(opts, server.WithoutMetrics())
			}
			srv := server.New(cfg.Server, rt.entry, log, opts...)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "override server host")
	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().BoolVar(&autoRestart, "autorestart", false, "restart when the binary changes on disk")

	return cmd
}
