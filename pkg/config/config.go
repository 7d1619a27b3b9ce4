package config

import (
	"fmt"
	"os"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/validate"
)

// Error reports a missing or invalid configuration value.
type Error struct {
	Name   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Name, e.Reason)
}

// Config holds every setting the server reads from the environment.
//
// The DevOps personal access token is always required. The Entra
// client-credential settings are optional as a set: when the tenant id is
// absent the managed-identity fallback is used for Graph calls.
type Config struct {
	// DevOpsPAT authenticates every Azure DevOps REST call.
	DevOpsPAT string `validate:"required"`

	// Entra client-credential settings for Microsoft Graph.
	TenantID     string `validate:"required_with=ClientID ClientSecret"`
	ClientID     string `validate:"required_with=TenantID ClientSecret"`
	ClientSecret string `validate:"required_with=TenantID ClientID"`

	// Debug enables verbose logging on stderr.
	Debug bool
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DevOpsPAT:    os.Getenv("AZURE_DEVOPS_PAT"),
		TenantID:     os.Getenv("AZURE_TENANT_ID"),
		ClientID:     os.Getenv("AZURE_CLIENT_ID"),
		ClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
		Debug:        os.Getenv("AZDO_MCP_DEBUG") != "",
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.DevOpsPAT == "" {
		return &Error{Name: "AZURE_DEVOPS_PAT", Reason: "not set"}
	}
	if err := validate.Get().Struct(c); err != nil {
		return &Error{Name: "environment", Reason: err.Error()}
	}
	return nil
}

// HasClientCredentials reports whether a full Entra client-credential set is
// configured. When false, callers fall back to the ambient managed identity.
func (c *Config) HasClientCredentials() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}
