package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/logger"
)

// MCPClient defines the methods we expect from an MCP client.
type MCPClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// DialMCP creates and starts a client for one configured MCP server.
func DialMCP(ctx context.Context, serverCfg config.MCPServerConfig) (MCPClient, error) {
	var mcpC *client.Client
	var err error

	switch serverCfg.Type {
	case config.ClientTypeSSE:
		var sseOpts []transport.ClientOption
		if len(serverCfg.Headers) > 0 {
			sseOpts = append(sseOpts, transport.WithHeaders(serverCfg.Headers))
		}
		mcpC, err = client.NewSSEMCPClient(serverCfg.URL, sseOpts...)
	case config.ClientTypeStreamableHTTP:
		var httpOpts []transport.StreamableHTTPCOption
		if len(serverCfg.Headers) > 0 {
			httpOpts = append(httpOpts, transport.WithHTTPHeaders(serverCfg.Headers))
		}
		mcpC, err = client.NewStreamableHttpClient(serverCfg.URL, httpOpts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range serverCfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		// Stdio clients are started on creation.
		mcpC, err = client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("mcp server %q: %w", serverCfg.Name, err)
		}
		return mcpC, nil
	case "":
		return nil, fmt.Errorf("mcp server %q: type not set (want sse, streamable_http or stdio)", serverCfg.Name)
	default:
		return nil, fmt.Errorf("mcp server %q: unsupported type %q", serverCfg.Name, serverCfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("mcp server %q: %w", serverCfg.Name, err)
	}

	if err := mcpC.Start(ctx); err != nil {
		if cerr := mcpC.Close(); cerr != nil {
			logger.L.Warn("MCP client close error after start failure", "error", cerr)
		}
		return nil, fmt.Errorf("mcp server %q: start: %w", serverCfg.Name, err)
	}
	return mcpC, nil
}

// RegisterMCP initializes c and registers every tool it lists. The manager
// takes ownership of c and closes it in Close.
func (m *Manager) RegisterMCP(ctx context.Context, server string, c MCPClient) (int, error) {
	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "azoai", Version: "1.0.0"},
			Capabilities:    mcp.ClientCapabilities{},
		},
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		if cerr := c.Close(); cerr != nil {
			logger.L.Warn("MCP client close error after init failure", "error", cerr)
		}
		return 0, fmt.Errorf("mcp server %q: initialize: %w", server, err)
	}
	logger.L.Info("Server initialized", "name", server)
	m.closers = append(m.closers, c)

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return 0, fmt.Errorf("mcp server %q: list tools: %w", server, err)
	}

	registered := 0
	for _, t := range listed.Tools {
		if m.Register(&mcpTool{server: server, client: c, tool: t}) {
			registered++
			logger.L.Info("Registered tool from MCP server", "tool", t.Name, "name", server)
		}
	}
	return registered, nil
}

// LoadMCPServers dials every configured server and registers its tools.
// Servers that cannot be reached are logged and skipped.
func (m *Manager) LoadMCPServers(ctx context.Context, servers []config.MCPServerConfig) {
	for _, serverCfg := range servers {
		c, err := DialMCP(ctx, serverCfg)
		if err != nil {
			logger.L.Error("Failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}
		if _, err := m.RegisterMCP(ctx, serverCfg.Name, c); err != nil {
			logger.L.Error("Failed to register MCP tools", "name", serverCfg.Name, "error", err)
		}
	}
}

// mcpTool forwards calls to a tool hosted by an MCP server.
type mcpTool struct {
	server string
	client MCPClient
	tool   mcp.Tool
}

func (t *mcpTool) Name() string        { return t.tool.Name }
func (t *mcpTool) Description() string { return t.tool.Description }

func (t *mcpTool) Parameters() json.RawMessage {
	if len(t.tool.RawInputSchema) > 0 && string(t.tool.RawInputSchema) != "null" {
		return t.tool.RawInputSchema
	}
	schema, err := json.Marshal(t.tool.InputSchema)
	if err != nil || t.tool.InputSchema.Type == "" || string(schema) == "{}" || string(schema) == "null" {
		logger.L.Warn("Tool from MCP server has an empty or null schema. Using default empty object schema.", "tool", t.tool.Name, "name", t.server)
		return emptySchema
	}
	return schema
}

func (t *mcpTool) Run(ctx context.Context, args string) (string, error) {
	var toolArgs map[string]any
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &toolArgs); err != nil {
			return "", fmt.Errorf("could not parse arguments for tool %s: %w", t.tool.Name, err)
		}
	}

	res, err := t.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: t.tool.Name, Arguments: toolArgs},
	})
	if err != nil {
		return "", fmt.Errorf("mcp server %q: call %s: %w", t.server, t.tool.Name, err)
	}
	if res == nil {
		return "", errors.New("mcp server returned no result")
	}

	text := firstText(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool execution resulted in an error without specific text"
		}
		return "", errors.New(text)
	}
	if text == "" {
		b, err := json.Marshal(res)
		if err != nil {
			return "", fmt.Errorf("format result of %s: %w", t.tool.Name, err)
		}
		text = string(b)
	}
	return text, nil
}

func firstText(contents []mcp.Content) string {
	for _, c := range contents {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
