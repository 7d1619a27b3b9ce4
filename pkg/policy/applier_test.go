package policy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/azdevops"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/graph"
)

// mockDirectory implements DirectoryClient with a fixed set of groups.
type mockDirectory struct {
	groups map[string]*graph.Group
}

func (m *mockDirectory) LookupGroup(_ context.Context, name string) (*graph.Group, error) {
	if g, ok := m.groups[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s", graph.ErrGroupNotFound, name)
}

// mockDevOps implements DevOpsClient and records the ACE writes it sees.
type mockDevOps struct {
	projects    map[string][]azdevops.Project
	registerErr error
	aclErr      error

	registered []string
	aces       []aceWrite
}

type aceWrite struct {
	namespaceID string
	token       string
	descriptor  string
	allow       int
}

func (m *mockDevOps) ListProjects(_ context.Context, org string) ([]azdevops.Project, error) {
	projects, ok := m.projects[org]
	if !ok {
		return nil, fmt.Errorf("organization %q does not exist", org)
	}
	return projects, nil
}

func (m *mockDevOps) RegisterGroup(_ context.Context, _, originID string) (*azdevops.RegisteredGroup, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.registered = append(m.registered, originID)
	return &azdevops.RegisteredGroup{
		Descriptor: "aadgp.descriptor-" + originID,
		OriginID:   originID,
	}, nil
}

func (m *mockDevOps) FindNamespace(_ context.Context, _, name string) (*azdevops.SecurityNamespace, error) {
	if name != "Project" {
		return nil, fmt.Errorf("%w: %s", azdevops.ErrNamespaceNotFound, name)
	}
	return &azdevops.SecurityNamespace{NamespaceID: "52d39943-cb85-4d7f-8fa8-c6baac873819", Name: name}, nil
}

func (m *mockDevOps) SetAccessControlEntry(_ context.Context, _, namespaceID, token, descriptor string, allow int) error {
	if m.aclErr != nil {
		return m.aclErr
	}
	m.aces = append(m.aces, aceWrite{namespaceID: namespaceID, token: token, descriptor: descriptor, allow: allow})
	return nil
}

func newTestApplier() (*Applier, *mockDevOps) {
	directory := &mockDirectory{
		groups: map[string]*graph.Group{
			"Platform Devs": {ID: "11111111-aaaa-4bbb-8ccc-222222222222", DisplayName: "Platform Devs"},
		},
	}
	devops := &mockDevOps{
		projects: map[string][]azdevops.Project{
			"aalcloud": {
				{ID: "p-1", Name: "Platform", URL: "https://dev.azure.com/aalcloud/_apis/projects/p-1"},
				{ID: "p-2", Name: "Website", URL: "https://dev.azure.com/aalcloud/_apis/projects/p-2"},
			},
		},
	}
	return NewApplier(directory, devops, false), devops
}

func validPolicy() Policy {
	return Policy{
		Organization: "aalcloud",
		Project:      "Platform",
		Group:        "Platform Devs",
		Permission:   PermissionContributor,
	}
}

func TestApplyPolicy(t *testing.T) {
	t.Run("success_message_names_permission_group_and_project", func(t *testing.T) {
		applier, devops := newTestApplier()

		result := applier.ApplyPolicy(context.Background(), validPolicy())

		require.True(t, result.Success)
		assert.Contains(t, result.Message, "Contributor")
		assert.Contains(t, result.Message, "Platform Devs")
		assert.Contains(t, result.Message, "Platform")

		require.Len(t, devops.aces, 1)
		assert.Equal(t, "$PROJECT:vstfs:///Classification/TeamProject/p-1", devops.aces[0].token)
		assert.Equal(t, "aadgp.descriptor-11111111-aaaa-4bbb-8ccc-222222222222", devops.aces[0].descriptor)
	})

	t.Run("allow_mask_is_constant_across_permissions", func(t *testing.T) {
		applier, devops := newTestApplier()

		for _, perm := range Permissions() {
			p := validPolicy()
			p.Permission = perm
			result := applier.ApplyPolicy(context.Background(), p)
			require.True(t, result.Success)
		}

		require.Len(t, devops.aces, len(Permissions()))
		for _, ace := range devops.aces {
			assert.Equal(t, defaultAllowMask, ace.allow)
		}
	})

	t.Run("missing_group_fails_with_group_name", func(t *testing.T) {
		applier, devops := newTestApplier()

		p := validPolicy()
		p.Group = "No Such Group"
		result := applier.ApplyPolicy(context.Background(), p)

		require.False(t, result.Success)
		assert.Contains(t, result.Message, "No Such Group")
		assert.Empty(t, devops.registered, "nothing should be registered after a failed lookup")
	})

	t.Run("missing_project_fails_with_project_name", func(t *testing.T) {
		applier, devops := newTestApplier()

		p := validPolicy()
		p.Project = "Ghost"
		result := applier.ApplyPolicy(context.Background(), p)

		require.False(t, result.Success)
		assert.Contains(t, result.Message, "Ghost")
		assert.Empty(t, devops.aces)
	})

	t.Run("registration_failure_becomes_result", func(t *testing.T) {
		applier, devops := newTestApplier()
		devops.registerErr = errors.New("VS403283: registration rejected")

		result := applier.ApplyPolicy(context.Background(), validPolicy())

		require.False(t, result.Success)
		assert.Contains(t, result.Message, "Platform Devs")
		assert.Contains(t, result.Message, "VS403283")
	})

	t.Run("acl_write_failure_becomes_result", func(t *testing.T) {
		applier, devops := newTestApplier()
		devops.aclErr = errors.New("TF401027: insufficient permissions")

		result := applier.ApplyPolicy(context.Background(), validPolicy())

		require.False(t, result.Success)
		assert.Contains(t, result.Message, "TF401027")
	})

	t.Run("invalid_policy_is_rejected_before_remote_calls", func(t *testing.T) {
		applier, devops := newTestApplier()

		result := applier.ApplyPolicy(context.Background(), Policy{})

		require.False(t, result.Success)
		assert.Contains(t, result.Message, "invalid policy")
		assert.Empty(t, devops.registered)
	})
}

func TestApplyBulk(t *testing.T) {
	t.Run("continues_past_failures_preserving_order", func(t *testing.T) {
		applier, _ := newTestApplier()

		bad := validPolicy()
		bad.Group = "No Such Group"
		bulk := applier.ApplyBulk(context.Background(), []Policy{validPolicy(), bad})

		require.Len(t, bulk.Results, 2)
		assert.Equal(t, 1, bulk.Succeeded)
		assert.Equal(t, 1, bulk.Failed)
		assert.True(t, bulk.Results[0].Result.Success)
		assert.False(t, bulk.Results[1].Result.Success)
		assert.Equal(t, "No Such Group", bulk.Results[1].Policy.Group)
	})

	t.Run("empty_input_yields_empty_result", func(t *testing.T) {
		applier, _ := newTestApplier()

		bulk := applier.ApplyBulk(context.Background(), nil)

		assert.Empty(t, bulk.Results)
		assert.Zero(t, bulk.Succeeded)
		assert.Zero(t, bulk.Failed)
	})
}

func TestResolveProject(t *testing.T) {
	t.Run("exact_match", func(t *testing.T) {
		applier, _ := newTestApplier()

		project, err := applier.ResolveProject(context.Background(), "aalcloud", "Website")
		require.NoError(t, err)
		assert.Equal(t, "p-2", project.ID)
	})

	t.Run("no_match", func(t *testing.T) {
		applier, _ := newTestApplier()

		_, err := applier.ResolveProject(context.Background(), "aalcloud", "website")
		require.Error(t, err, "matching is case-sensitive")
	})
}
