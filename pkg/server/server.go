package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aalcloud/azdo-permissions-mcp/pkg/auth"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/azdevops"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/config"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/graph"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/interceptors"
	"github.com/aalcloud/azdo-permissions-mcp/pkg/policy"
)

// Server exposes the permission-policy operations as MCP tools.
type Server struct {
	mcpServer *mcp.Server
	applier   *policy.Applier
	devops    policy.DevOpsClient
	port      int
	listener  net.Listener
	debug     bool

	toolCalls metric.Int64Counter
}

// New wires the credential provider, both API clients, and the tool set
// from configuration.
func New(cfg *config.Config) *Server {
	provider := auth.NewProvider(cfg)
	directory := graph.NewClient(provider)
	devops := azdevops.NewClient(cfg.DevOpsPAT)
	applier := policy.NewApplier(directory, devops, cfg.Debug)
	return newServer(applier, devops, cfg.Debug)
}

func newServer(applier *policy.Applier, devops policy.DevOpsClient, debug bool) *Server {
	s := &Server{
		applier: applier,
		devops:  devops,
		debug:   debug,
	}

	meter := otel.GetMeterProvider().Meter("github.com/aalcloud/azdo-permissions-mcp")
	s.toolCalls, _ = meter.Int64Counter("azdo.mcp.tool.calls",
		metric.WithDescription("Tool calls handled by the permissions server"),
		metric.WithUnit("1"))

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "azure-devops-permissions",
		Version: "1.0.0",
	}, nil)
	s.mcpServer.AddReceivingMiddleware(
		interceptors.CallLoggingMiddleware(debug),
		interceptors.DevOpsUnauthorizedMiddleware(),
	)

	s.registerTools()

	return s
}

func (s *Server) record(ctx context.Context, tool string, failed bool) {
	s.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("azdo.tool.name", tool),
		attribute.Bool("azdo.tool.error", failed),
	))
}

func permissionSchema() *jsonschema.Schema {
	values := make([]any, 0, len(policy.Permissions()))
	for _, p := range policy.Permissions() {
		values = append(values, string(p))
	}
	return &jsonschema.Schema{Type: "string", Enum: values}
}

func policyProperties() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"organization": {Type: "string", Description: "Azure DevOps organization name"},
		"project":      {Type: "string", Description: "Team project name"},
		"group":        {Type: "string", Description: "Entra ID group display name"},
		"permission":   permissionSchema(),
	}
}

func (s *Server) registerTools() {
	type applyArgs struct {
		Organization string `json:"organization"`
		Project      string `json:"project"`
		Group        string `json:"group"`
		Permission   string `json:"permission"`
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "apply_permission_policy",
		Description: "Grant a permission level to an Entra ID group on an Azure DevOps project",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: policyProperties(),
			Required:   []string{"organization", "project", "group", "permission"},
		},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args applyArgs) (*mcp.CallToolResult, any, error) {
		result := s.applier.ApplyPolicy(ctx, policy.Policy{
			Organization: args.Organization,
			Project:      args.Project,
			Group:        args.Group,
			Permission:   policy.Permission(args.Permission),
		})
		s.record(ctx, "apply_permission_policy", !result.Success)
		s.logf("apply_permission_policy: success=%v %s", result.Success, result.Message)
		return jsonResult(result), nil, nil
	})

	type listProjectsArgs struct {
		Organization string `json:"organization"`
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_projects",
		Description: "List all team projects in an Azure DevOps organization",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args listProjectsArgs) (*mcp.CallToolResult, any, error) {
		projects, err := s.devops.ListProjects(ctx, args.Organization)
		s.record(ctx, "list_projects", err != nil)
		if err != nil {
			return errorResult("listing projects failed: %v", err), nil, nil
		}
		return jsonResult(projects), nil, nil
	})

	type lookupGroupArgs struct {
		Name string `json:"name"`
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "lookup_group",
		Description: "Look up an Entra ID group by exact display name",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args lookupGroupArgs) (*mcp.CallToolResult, any, error) {
		group, err := s.applier.ResolveGroup(ctx, args.Name)
		s.record(ctx, "lookup_group", err != nil)
		if err != nil {
			return errorResult("group %q could not be resolved: %v", args.Name, err), nil, nil
		}
		return jsonResult(group), nil, nil
	})

	type bulkArgs struct {
		Policies []policy.Policy `json:"policies"`
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "bulk_apply_policies",
		Description: "Apply several permission policies in order, continuing past failures",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"policies": {
					Type: "array",
					Items: &jsonschema.Schema{
						Type:       "object",
						Properties: policyProperties(),
						Required:   []string{"organization", "project", "group", "permission"},
					},
				},
			},
			Required: []string{"policies"},
		},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args bulkArgs) (*mcp.CallToolResult, any, error) {
		bulk := s.applier.ApplyBulk(ctx, args.Policies)
		s.record(ctx, "bulk_apply_policies", bulk.Failed > 0)
		s.logf("bulk_apply_policies: %d succeeded, %d failed", bulk.Succeeded, bulk.Failed)
		return jsonResult(bulk), nil, nil
	})
}

// jsonResult renders v as a JSON text content block. Domain failures are
// encoded in the payload itself, not as protocol errors.
func jsonResult(v any) *mcp.CallToolResult {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encoding result: %v", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(buf)}}}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// RunStdio serves the MCP protocol over stdin/stdout until ctx is done.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcp.StdioTransport{})
}

// RunWithTransport serves the MCP protocol over a custom transport. Useful
// for connecting to the server programmatically.
func (s *Server) RunWithTransport(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// Start serves the streamable HTTP transport on the configured port.
// Port 0 picks a free one.
func (s *Server) Start(ctx context.Context, port int) error {
	var err error
	s.listener, err = net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	s.port = s.listener.Addr().(*net.TCPAddr).Port

	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(handler)

	httpServer := &http.Server{
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	s.logf("server starting on port %d", s.port)

	go func() {
		if err := httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logf("server error: %v", err)
		}
	}()

	return nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Stop stops the HTTP listener.
func (s *Server) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) logf(format string, args ...any) {
	if s.debug {
		fmt.Fprintf(os.Stderr, "[AZDO-MCP] "+format+"\n", args...)
	}
}
