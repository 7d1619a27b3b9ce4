package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/azdevops"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/config"
)

func projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect team projects",
	}

	var (
		orgs       []string
		outputJSON bool
	)
	lsCommand := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List team projects in one or more organizations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			client := azdevops.NewClient(cfg.DevOpsPAT)

			var (
				mu         sync.Mutex
				byOrg      = make(map[string][]azdevops.Project)
				errs, gctx = errgroup.WithContext(cmd.Context())
			)
			for _, org := range orgs {
				errs.Go(func() error {
					projects, err := client.ListProjects(gctx, org)
					if err != nil {
						return err
					}
					mu.Lock()
					byOrg[org] = projects
					mu.Unlock()
					return nil
				})
			}
			if err := errs.Wait(); err != nil {
				return err
			}

			if outputJSON {
				buf, err := json.MarshalIndent(byOrg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(buf))
				return nil
			}

			names := make([]string, 0, len(byOrg))
			for org := range byOrg {
				names = append(names, org)
			}
			sort.Strings(names)

			for _, org := range names {
				projects := byOrg[org]
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d projects)\n", org, len(projects))
				for _, p := range projects {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", p.ID, p.Name)
				}
			}
			return nil
		},
	}
	lsCommand.Flags().StringSliceVar(&orgs, "organization", nil, "Organization name (repeatable)")
	lsCommand.Flags().BoolVar(&outputJSON, "json", false, "Print JSON output")
	_ = lsCommand.MarkFlagRequired("organization")

	cmd.AddCommand(lsCommand)
	return cmd
}
