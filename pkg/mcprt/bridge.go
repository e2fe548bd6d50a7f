package mcprt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Bridge registers every loaded saved query as an MCP tool. Tools added
// after a reload need a new Bridge call; the MCP tool list is static per
// server instance.
func Bridge(srv *server.MCPServer, reg *Registry, runner Runner) {
	for _, q := range reg.List() {
		registerSavedQuery(srv, reg, runner, q)
	}
}

func registerSavedQuery(srv *server.MCPServer, reg *Registry, runner Runner, q *SavedQuery) {
	schemaJSON, _ := json.Marshal(q.InputSchema)
	tool := mcp.NewToolWithRawSchema(q.Name, q.Description, schemaJSON)

	name := q.Name
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := reg.Execute(ctx, name, req.GetArguments(), runner)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", name, err)), nil
		}
		data, err := json.Marshal(res)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", name, err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}
