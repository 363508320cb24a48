package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPServerConfig describes an MCP server launched over stdio.
type MCPServerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// mcpTool adapts one tool exposed by an MCP server to the Tool interface.
type mcpTool struct {
	client *client.Client
	def    mcp.Tool
}

// ConnectMCP launches the configured MCP server, initializes the session,
// and returns its tools adapted to the Tool interface. The caller owns the
// returned close function.
func ConnectMCP(ctx context.Context, cfg MCPServerConfig) ([]Tool, func() error, error) {
	mcpClient, err := client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = "2024-11-05"
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "teamflow",
		Version: "1.0.0",
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		_ = mcpClient.Close()
		return nil, nil, fmt.Errorf("initialize MCP client: %w", err)
	}

	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	listed, err := mcpClient.ListTools(listCtx, mcp.ListToolsRequest{})
	if err != nil {
		_ = mcpClient.Close()
		return nil, nil, fmt.Errorf("list MCP tools: %w", err)
	}

	var tools []Tool
	for _, def := range listed.Tools {
		tools = append(tools, &mcpTool{client: mcpClient, def: def})
	}
	return tools, mcpClient.Close, nil
}

// Name implements Tool.
func (t *mcpTool) Name() string { return t.def.Name }

// Description implements Tool.
func (t *mcpTool) Description() string { return t.def.Description }

// Schema implements Tool.
func (t *mcpTool) Schema() map[string]any {
	raw, err := json.Marshal(t.def.InputSchema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return map[string]any{"type": "object"}
	}
	return schema
}

// Invoke implements Tool by calling the tool on the MCP server.
func (t *mcpTool) Invoke(ctx context.Context, input json.RawMessage) (string, error) {
	var args map[string]any
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("decode input: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	result, err := t.client.CallTool(callCtx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      t.def.Name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("call MCP tool %s: %w", t.def.Name, err)
	}

	var out string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			out += text.Text
		}
	}
	if result.IsError {
		return "", fmt.Errorf("MCP tool %s failed: %s", t.def.Name, out)
	}
	return out, nil
}
