package azdevops

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/auth"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/remote"
)

const (
	defaultBaseURL      = "https://dev.azure.com"
	defaultGraphBaseURL = "https://vssps.dev.azure.com"

	apiVersion      = "7.0"
	graphAPIVersion = "7.0-preview.1"
)

// ErrNamespaceNotFound is returned when the requested security namespace is
// not defined for the organization.
var ErrNamespaceNotFound = errors.New("security namespace not found")

// Client talks to the Azure DevOps REST API for a single personal access
// token. It holds no state besides the credential.
type Client struct {
	baseURL      string
	graphBaseURL string
	http         *http.Client
	authHeader   string
}

func NewClient(pat string) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		graphBaseURL: defaultGraphBaseURL,
		http:         remote.NewClient(),
		authHeader:   auth.BasicAuth(pat),
	}
}

func (c *Client) headers() http.Header {
	return http.Header{"Authorization": {c.authHeader}}
}

// ListProjects returns every team project in the organization.
func (c *Client) ListProjects(ctx context.Context, org string) ([]Project, error) {
	url := fmt.Sprintf("%s/%s/_apis/projects?api-version=%s", c.baseURL, org, apiVersion)

	var list projectList
	if err := remote.DoJSON(ctx, c.http, http.MethodGet, url, c.headers(), nil, &list); err != nil {
		return nil, fmt.Errorf("listing projects for %s: %w", org, err)
	}
	return list.Projects, nil
}

// RegisterGroup materializes a directory group in the DevOps identity graph
// and returns its descriptor. The platform may create a duplicate
// registration when the group is already materialized; this call does not
// guard against that.
func (c *Client) RegisterGroup(ctx context.Context, org, originID string) (*RegisteredGroup, error) {
	url := fmt.Sprintf("%s/%s/_apis/graph/groups?api-version=%s", c.graphBaseURL, org, graphAPIVersion)

	body := map[string]string{"originId": originID}
	var group RegisteredGroup
	if err := remote.DoJSON(ctx, c.http, http.MethodPost, url, c.headers(), body, &group); err != nil {
		return nil, fmt.Errorf("registering group %s with %s: %w", originID, org, err)
	}
	return &group, nil
}

// FindNamespace returns the security namespace with the given name, or
// ErrNamespaceNotFound.
func (c *Client) FindNamespace(ctx context.Context, org, name string) (*SecurityNamespace, error) {
	url := fmt.Sprintf("%s/%s/_apis/securitynamespaces?api-version=%s", c.baseURL, org, apiVersion)

	var list namespaceList
	if err := remote.DoJSON(ctx, c.http, http.MethodGet, url, c.headers(), nil, &list); err != nil {
		return nil, fmt.Errorf("listing security namespaces for %s: %w", org, err)
	}

	for _, ns := range list.Namespaces {
		if ns.Name == name {
			return &ns, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, name)
}

// SetAccessControlEntry writes a single access-control entry granting allow
// bits to the descriptor on the given token within the namespace. Existing
// entries for other descriptors are merged, not replaced.
func (c *Client) SetAccessControlEntry(ctx context.Context, org, namespaceID, token, descriptor string, allow int) error {
	url := fmt.Sprintf("%s/%s/_apis/accesscontrolentries/%s?api-version=%s", c.baseURL, org, namespaceID, apiVersion)

	body := setAccessControlEntriesRequest{
		Token: token,
		Merge: true,
		AccessControlEntries: []accessControlEntry{
			{Descriptor: descriptor, Allow: allow, Deny: 0},
		},
	}
	if err := remote.DoJSON(ctx, c.http, http.MethodPost, url, c.headers(), body, nil); err != nil {
		return fmt.Errorf("writing access control entry in %s: %w", org, err)
	}
	return nil
}
