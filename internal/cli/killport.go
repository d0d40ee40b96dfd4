package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/soyeahso/agentcore/internal/deploy"
)

// killProcess is nil in production so deploy.KillPort uses os.Process.Kill.
var killProcess func(pid int) error

func newKillPortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill-port [port]",
		Short: "Kill every process listening on a TCP port (default server.port)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port := cfg.Server.Port
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 || n > 65535 {
					return fmt.Errorf("invalid port %q", args[0])
				}
				port = n
			}
			return deploy.KillPort(cmd.Context(), commandRunner, port, killProcess, cmd.OutOrStdout())
		},
	}
}
