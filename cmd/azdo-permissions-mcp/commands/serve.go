package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/config"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/server"
)

func serveCommand() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			srv := server.New(cfg)
			ctx := cmd.Context()

			switch transport {
			case "stdio":
				return srv.RunStdio(ctx)
			case "http":
				if err := srv.Start(ctx, port); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Listening on port %d\n", srv.Port())

				<-ctx.Done()
				return srv.Stop()
			default:
				return fmt.Errorf("unknown transport %q (expected stdio or http)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to use (stdio or http)")
	cmd.Flags().IntVar(&port, "port", 8811, "Port for the http transport")

	return cmd
}
