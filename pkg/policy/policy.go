package policy

import (
	"fmt"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/validate"
)

// Permission identifies a permission level to grant. The set is closed.
type Permission string

const (
	PermissionReader       Permission = "reader"
	PermissionContributor  Permission = "contributor"
	PermissionProjectAdmin Permission = "projectAdmin"
	PermissionBuildAdmin   Permission = "buildAdmin"
	PermissionReleaseAdmin Permission = "releaseAdmin"
	PermissionCustom       Permission = "custom"
)

var permissionLabels = map[Permission]string{
	PermissionReader:       "Reader",
	PermissionContributor:  "Contributor",
	PermissionProjectAdmin: "Project Administrator",
	PermissionBuildAdmin:   "Build Administrator",
	PermissionReleaseAdmin: "Release Administrator",
	PermissionCustom:       "Custom",
}

// Permissions lists every valid permission value, for input schemas and
// usage strings.
func Permissions() []Permission {
	return []Permission{
		PermissionReader,
		PermissionContributor,
		PermissionProjectAdmin,
		PermissionBuildAdmin,
		PermissionReleaseAdmin,
		PermissionCustom,
	}
}

// ParsePermission validates a permission tag.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if _, ok := permissionLabels[p]; !ok {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// Label returns the fixed display label for the permission.
func (p Permission) Label() string {
	if label, ok := permissionLabels[p]; ok {
		return label
	}
	return string(p)
}

// Policy binds a directory group to a permission level on one project.
// Policies are transient; nothing is persisted.
type Policy struct {
	Organization string     `json:"organization" yaml:"organization" validate:"required"`
	Project      string     `json:"project" yaml:"project" validate:"required"`
	Group        string     `json:"group" yaml:"group" validate:"required"`
	Permission   Permission `json:"permission" yaml:"permission" validate:"required"`
}

// Validate checks the policy fields and the permission tag.
func (p *Policy) Validate() error {
	if err := validate.Get().Struct(p); err != nil {
		return err
	}
	_, err := ParsePermission(string(p.Permission))
	return err
}

// Result is the outcome of applying one policy. Failures carry a
// human-readable message instead of an error so callers always get a result
// object.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PolicyResult pairs a policy with its outcome for bulk responses.
type PolicyResult struct {
	Policy Policy `json:"policy"`
	Result Result `json:"result"`
}

// BulkResult aggregates the per-policy outcomes of a bulk apply, in input
// order.
type BulkResult struct {
	Results   []PolicyResult `json:"results"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}
