package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/auth"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/remote"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// ErrGroupNotFound is returned when no directory group matches the
// requested display name.
var ErrGroupNotFound = errors.New("group not found")

// Group is an Entra ID security group.
// https://learn.microsoft.com/en-us/graph/api/resources/group
type Group struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

type groupList struct {
	Context string  `json:"@odata.context"`
	Groups  []Group `json:"value"`
}

// Client looks up identities in the Microsoft Graph directory.
type Client struct {
	baseURL  string
	http     *http.Client
	provider auth.TokenProvider
}

func NewClient(provider auth.TokenProvider) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		http:     remote.NewClient(),
		provider: provider,
	}
}

// LookupGroup returns the first directory group whose display name exactly
// matches name, or ErrGroupNotFound.
func (c *Client) LookupGroup(ctx context.Context, name string) (*Group, error) {
	token, err := c.provider.Token(ctx)
	if err != nil {
		return nil, err
	}

	// OData string literals escape single quotes by doubling them.
	escaped := strings.ReplaceAll(name, "'", "''")

	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("displayName eq '%s'", escaped))
	q.Set("$select", "id,displayName,description")

	var list groupList
	headers := http.Header{"Authorization": {"Bearer " + token}}
	if err := remote.DoJSON(ctx, c.http, http.MethodGet, c.baseURL+"/groups?"+q.Encode(), headers, nil, &list); err != nil {
		return nil, fmt.Errorf("querying directory groups: %w", err)
	}

	if len(list.Groups) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	return &list.Groups[0], nil
}
