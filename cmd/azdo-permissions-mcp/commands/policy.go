package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/auth"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/azdevops"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/config"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/graph"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/policy"
)

// policyFile is the YAML shape accepted by `policy apply --file`.
type policyFile struct {
	Policies []policy.Policy `yaml:"policies"`
}

func addPolicyFlags(flags *pflag.FlagSet, p *policy.Policy) {
	flags.StringVar(&p.Organization, "organization", "", "Azure DevOps organization name")
	flags.StringVar(&p.Project, "project", "", "Team project name")
	flags.StringVar(&p.Group, "group", "", "Entra ID group display name")
	flags.StringVar((*string)(&p.Permission), "permission", "",
		"Permission level ("+permissionUsage()+")")
}

func permissionUsage() string {
	values := make([]string, 0, len(policy.Permissions()))
	for _, p := range policy.Permissions() {
		values = append(values, string(p))
	}
	return strings.Join(values, ", ")
}

func policyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Apply permission policies",
	}

	var (
		single policy.Policy
		file   string
	)
	applyCommand := &cobra.Command{
		Use:   "apply",
		Short: "Apply a permission policy, or a YAML file of policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" && single == (policy.Policy{}) {
				return fmt.Errorf("specify --organization, --project, --group and --permission, or --file")
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			directory := graph.NewClient(auth.NewProvider(cfg))
			devops := azdevops.NewClient(cfg.DevOpsPAT)
			applier := policy.NewApplier(directory, devops, cfg.Debug)

			policies := []policy.Policy{single}
			if file != "" {
				buf, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				var pf policyFile
				if err := yaml.Unmarshal(buf, &pf); err != nil {
					return fmt.Errorf("parsing %s: %w", file, err)
				}
				if len(pf.Policies) == 0 {
					return fmt.Errorf("%s contains no policies", file)
				}
				policies = pf.Policies
			}

			bulk := applier.ApplyBulk(cmd.Context(), policies)
			for _, r := range bulk.Results {
				status := "ok"
				if !r.Result.Success {
					status = "failed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", status, r.Result.Message)
			}

			if bulk.Failed > 0 {
				return fmt.Errorf("%d of %d policies failed", bulk.Failed, len(bulk.Results))
			}
			return nil
		},
	}
	addPolicyFlags(applyCommand.Flags(), &single)
	applyCommand.Flags().StringVar(&file, "file", "", "YAML file with a list of policies")

	cmd.AddCommand(applyCommand)
	return cmd
}
