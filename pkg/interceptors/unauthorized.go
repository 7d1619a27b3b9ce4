package interceptors

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const patHint = "Azure DevOps rejected the credentials. Check that AZURE_DEVOPS_PAT " +
	"is set to a valid personal access token with Identity and Security scopes."

// DevOpsUnauthorizedMiddleware intercepts unauthorized responses from Azure
// DevOps and adds a hint about the personal access token, which is the usual
// culprit. Handlers report remote failures as result payloads, so both the
// error and the result content are inspected.
func DevOpsUnauthorizedMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != "tools/call" {
				return next(ctx, method, req)
			}

			response, err := next(ctx, method, req)

			if err != nil {
				if looksUnauthorized(err.Error()) {
					return &mcp.CallToolResult{
						Content: []mcp.Content{&mcp.TextContent{Text: patHint}},
						IsError: true,
					}, nil
				}
				return response, err
			}

			// Check if the response itself indicates unauthorized.
			if toolResult, ok := response.(*mcp.CallToolResult); ok && toolResult.IsError {
				for _, content := range toolResult.Content {
					textContent, ok := content.(*mcp.TextContent)
					if !ok || !looksUnauthorized(textContent.Text) {
						continue
					}
					// Keep the original message so the status and body
					// stay visible.
					return &mcp.CallToolResult{
						Content: append(toolResult.Content, &mcp.TextContent{Text: patHint}),
						IsError: true,
					}, nil
				}
			}

			return response, err
		}
	}
}

func looksUnauthorized(message string) bool {
	text := strings.ToLower(message)
	return strings.Contains(text, "401") ||
		strings.Contains(text, "unauthorized") ||
		strings.Contains(text, "non-authoritative")
}

// CallLoggingMiddleware logs every tool call and its duration to stderr when
// debug logging is enabled.
func CallLoggingMiddleware(debug bool) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if !debug || method != "tools/call" {
				return next(ctx, method, req)
			}

			start := time.Now()
			response, err := next(ctx, method, req)
			fmt.Fprintf(os.Stderr, "[AZDO-MCP] Tool call %s took %s (err=%v)\n", toolName(req), time.Since(start), err)
			return response, err
		}
	}
}

// toolName extracts the called tool's name from a tools/call request. The
// server delivers params in raw form.
func toolName(req mcp.Request) string {
	if params, ok := req.GetParams().(*mcp.CallToolParamsRaw); ok {
		return params.Name
	}
	return "unknown"
}
