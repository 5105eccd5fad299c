// Package mcp exposes the tool registry to MCP clients. Every registered
// tool is advertised with a JSON schema built from its declared properties;
// invocation feeds the MCP arguments through the same dispatch pipeline the
// HTTP surface uses, so both transports emit identical envelopes.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/koustreak/pgbridge/internal/tools"
)

// NewServer creates an MCPServer with every registry tool registered.
func NewServer(registry *tools.Registry, version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"pgbridge",
		version,
		server.WithToolCapabilities(true),
	)

	for _, def := range registry.List() {
		registerTool(srv, registry, def)
	}

	return srv
}

// registerTool advertises one tool and bridges its calls into the registry.
func registerTool(srv *server.MCPServer, registry *tools.Registry, def tools.Definition) {
	tool := mcp.NewToolWithRawSchema(def.Name, def.Description, buildSchema(def))

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := json.Marshal(map[string]any{"arguments": req.GetArguments()})
		if err != nil {
			return mcp.NewToolResultError("Invalid JSON format in input context."), nil
		}
		envelope := registry.Dispatch(ctx, def.Name, payload)
		return mcp.NewToolResultText(string(envelope)), nil
	})
}

// buildSchema renders the declared properties as a JSON schema object.
// Every declared property is required.
func buildSchema(def tools.Definition) json.RawMessage {
	props := make(map[string]any, len(def.Properties))
	for _, p := range def.Properties {
		props[p.Name] = map[string]string{
			"type":        p.Type,
			"description": p.Description,
		}
	}

	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   def.Required(),
	})
	return schema
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

// NewSSEServer wraps srv for serving over HTTP/SSE on its own listener.
func NewSSEServer(srv *server.MCPServer) *server.SSEServer {
	return server.NewSSEServer(srv)
}
