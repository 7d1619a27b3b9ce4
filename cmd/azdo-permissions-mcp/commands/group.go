package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/auth"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/config"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/graph"
)

func groupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Inspect directory groups",
	}

	var outputJSON bool
	lookupCommand := &cobra.Command{
		Use:   "lookup NAME",
		Short: "Look up a directory group by exact display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			client := graph.NewClient(auth.NewProvider(cfg))
			group, err := client.LookupGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if outputJSON {
				buf, err := json.MarshalIndent(group, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(buf))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ID:          %s\n", group.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Name:        %s\n", group.DisplayName)
			if group.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Description: %s\n", group.Description)
			}
			return nil
		},
	}
	lookupCommand.Flags().BoolVar(&outputJSON, "json", false, "Print JSON output")

	cmd.AddCommand(lookupCommand)
	return cmd
}
