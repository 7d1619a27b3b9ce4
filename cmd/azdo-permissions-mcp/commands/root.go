package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalcloud/azdo-permissions-mcp/cmd/azdo-permissions-mcp/version"
)

// Note: We use a custom help template to make it more brief.
const helpTemplate = `Apply Azure DevOps permission policies over MCP.
{{if .UseLine}}
Usage: {{.UseLine}}
{{end}}{{if .HasAvailableLocalFlags}}
Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableSubCommands}}
Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand)}}  {{rpad .Name .NamePadding }} {{.Short}}
{{end}}{{end}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}
`

// Root returns the root command for the CLI.
func Root(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "azdo-permissions-mcp",
		Short:        "Azure DevOps permission policies over MCP",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(ctx)
		},
	}
	cmd.SetHelpTemplate(helpTemplate)

	cmd.AddCommand(serveCommand())
	cmd.AddCommand(projectCommand())
	cmd.AddCommand(groupCommand())
	cmd.AddCommand(policyCommand())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	})

	return cmd
}
