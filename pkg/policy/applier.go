package policy

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/azdevops"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/graph"
)

// ErrProjectNotFound is returned when no project in the organization matches
// the requested name.
var ErrProjectNotFound = errors.New("project not found")

const (
	// projectNamespace is the security namespace that scopes team-project
	// permissions.
	projectNamespace = "Project"

	// defaultAllowMask is written for every permission level. Per-permission
	// bitmasks are not modeled; the granted bits do not vary with the
	// requested permission tag.
	defaultAllowMask = 3
)

// DirectoryClient resolves groups in the identity directory.
type DirectoryClient interface {
	LookupGroup(ctx context.Context, name string) (*graph.Group, error)
}

// DevOpsClient performs the Azure DevOps calls the applier needs.
type DevOpsClient interface {
	ListProjects(ctx context.Context, org string) ([]azdevops.Project, error)
	RegisterGroup(ctx context.Context, org, originID string) (*azdevops.RegisteredGroup, error)
	FindNamespace(ctx context.Context, org, name string) (*azdevops.SecurityNamespace, error)
	SetAccessControlEntry(ctx context.Context, org, namespaceID, token, descriptor string, allow int) error
}

// Applier chains the group, project, registration, and ACL calls for one
// policy. It is stateless; every call stands alone.
type Applier struct {
	directory DirectoryClient
	devops    DevOpsClient
	debug     bool
}

func NewApplier(directory DirectoryClient, devops DevOpsClient, debug bool) *Applier {
	return &Applier{directory: directory, devops: devops, debug: debug}
}

// ResolveGroup finds the directory group by exact display-name match.
func (a *Applier) ResolveGroup(ctx context.Context, name string) (*graph.Group, error) {
	return a.directory.LookupGroup(ctx, name)
}

// ResolveProject lists the organization's projects and scans for an exact
// name match.
func (a *Applier) ResolveProject(ctx context.Context, org, name string) (*azdevops.Project, error) {
	projects, err := a.devops.ListProjects(ctx, org)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in organization %q", ErrProjectNotFound, name, org)
}

// ApplyPolicy runs the full sequence: resolve group, resolve project,
// register the group with the platform, write the access-control entry.
// It short-circuits at the first missing resource and always returns a
// Result; remote failures become failure messages, never escape as errors.
// Nothing is rolled back on failure.
func (a *Applier) ApplyPolicy(ctx context.Context, p Policy) Result {
	if err := p.Validate(); err != nil {
		return failure("invalid policy: %v", err)
	}

	group, err := a.ResolveGroup(ctx, p.Group)
	if err != nil {
		a.logf("group resolution failed: %v", err)
		return failure("group %q could not be resolved: %v", p.Group, err)
	}

	project, err := a.ResolveProject(ctx, p.Organization, p.Project)
	if err != nil {
		a.logf("project resolution failed: %v", err)
		return failure("project %q could not be resolved: %v", p.Project, err)
	}

	// Not idempotent: the platform may register the group again on repeat
	// applications.
	registered, err := a.devops.RegisterGroup(ctx, p.Organization, group.ID)
	if err != nil {
		a.logf("group registration failed: %v", err)
		return failure("registering group %q failed: %v", p.Group, err)
	}

	ns, err := a.devops.FindNamespace(ctx, p.Organization, projectNamespace)
	if err != nil {
		a.logf("namespace lookup failed: %v", err)
		return failure("looking up the %s security namespace failed: %v", projectNamespace, err)
	}

	token := fmt.Sprintf("$PROJECT:vstfs:///Classification/TeamProject/%s", project.ID)
	if err := a.devops.SetAccessControlEntry(ctx, p.Organization, ns.NamespaceID, token, registered.Descriptor, defaultAllowMask); err != nil {
		a.logf("ACL write failed: %v", err)
		return failure("writing permissions for group %q on project %q failed: %v", p.Group, p.Project, err)
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Granted %s to group %q on project %q", p.Permission.Label(), p.Group, p.Project),
	}
}

// ApplyBulk applies each policy in order, one at a time. A failed policy
// does not stop the rest.
func (a *Applier) ApplyBulk(ctx context.Context, policies []Policy) BulkResult {
	bulk := BulkResult{Results: make([]PolicyResult, 0, len(policies))}
	for _, p := range policies {
		result := a.ApplyPolicy(ctx, p)
		bulk.Results = append(bulk.Results, PolicyResult{Policy: p, Result: result})
		if result.Success {
			bulk.Succeeded++
		} else {
			bulk.Failed++
		}
	}
	return bulk
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

func (a *Applier) logf(format string, args ...any) {
	if a.debug {
		fmt.Fprintf(os.Stderr, "[AZDO-POLICY] "+format+"\n", args...)
	}
}
