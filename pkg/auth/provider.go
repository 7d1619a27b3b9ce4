package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/config"
)

const (
	graphScope    = "https://graph.microsoft.com/.default"
	graphResource = "https://graph.microsoft.com"

	imdsTokenURL = "http://169.254.169.254/metadata/identity/oauth2/token"
)

// TokenProvider produces bearer tokens for the Microsoft Graph API.
// Implementations cache the token for the process lifetime; callers should
// not cache it again.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// NewProvider selects a token provider based on the available configuration:
// a full client-credential set wins, otherwise the ambient managed identity
// is used.
func NewProvider(cfg *config.Config) TokenProvider {
	if cfg.HasClientCredentials() {
		return NewClientCredentialsProvider(cfg.TenantID, cfg.ClientID, cfg.ClientSecret)
	}
	return NewManagedIdentityProvider()
}

// ClientCredentialsProvider obtains Graph tokens through the Entra
// client-credential flow.
type ClientCredentialsProvider struct {
	source oauth2.TokenSource
}

func NewClientCredentialsProvider(tenantID, clientID, clientSecret string) *ClientCredentialsProvider {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{graphScope},
	}
	return &ClientCredentialsProvider{
		// TokenSource caches the token until it expires.
		source: cfg.TokenSource(context.Background()),
	}
}

func (p *ClientCredentialsProvider) Token(_ context.Context) (string, error) {
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("acquiring Graph token: %w", err)
	}
	return tok.AccessToken, nil
}

// ManagedIdentityProvider obtains Graph tokens from the Azure instance
// metadata service. It is the fallback when no client credentials are
// configured.
type ManagedIdentityProvider struct {
	endpoint string
	client   *http.Client

	cached string
}

func NewManagedIdentityProvider() *ManagedIdentityProvider {
	return &ManagedIdentityProvider{
		endpoint: imdsTokenURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *ManagedIdentityProvider) Token(ctx context.Context) (string, error) {
	if p.cached != "" {
		return p.cached, nil
	}

	q := url.Values{}
	q.Set("api-version", "2018-02-01")
	q.Set("resource", graphResource)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Metadata", "true")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying instance metadata service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("instance metadata service returned %s: %s", resp.Status, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding instance metadata response: %w", err)
	}

	p.cached = payload.AccessToken
	return p.cached, nil
}

// BasicAuth returns the Authorization header value for an Azure DevOps
// personal access token. The username is left empty.
func BasicAuth(pat string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+pat))
}
