// Package mcp bridges tools exposed by MCP servers into the dispatch
// chain. Each configured server is launched over stdio, its tool list
// is fetched once at connect time, and calls are forwarded with the
// registered name mapped back to the server's original tool name.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/tools"
)

const defaultCallTimeout = 60 * time.Second

// ServerConfig describes one stdio MCP server to launch.
type ServerConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
}

type bridgedTool struct {
	serverName  string
	toolName    string // original name on the server
	description string
	inputSchema map[string]any
	client      *mcpclient.Client
}

// Executor implements tools.MCPExecutor. Bridged names follow the
// server__tool convention.
type Executor struct {
	mu      sync.RWMutex
	bridged map[string]*bridgedTool
	clients []*mcpclient.Client
	timeout time.Duration
}

func NewExecutor() *Executor {
	return &Executor{
		bridged: make(map[string]*bridgedTool),
		timeout: defaultCallTimeout,
	}
}

// Connect launches the server, initializes the session and registers
// its tools under "<server>__<tool>". Tools whose bridged name fails
// validation are skipped with a warning.
func (e *Executor) Connect(ctx context.Context, cfg ServerConfig) error {
	if cfg.Name == "" || cfg.Command == "" {
		return fmt.Errorf("mcp server config requires name and command")
	}

	client, err := mcpclient.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return fmt.Errorf("start mcp server %s: %w", cfg.Name, err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "crewd", Version: "1.0.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		client.Close()
		return fmt.Errorf("initialize mcp server %s: %w", cfg.Name, err)
	}

	listed, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		client.Close()
		return fmt.Errorf("list tools on mcp server %s: %w", cfg.Name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clients = append(e.clients, client)

	for _, t := range listed.Tools {
		registered := cfg.Name + "__" + t.Name
		if err := tools.ValidateExternalName(registered); err != nil {
			slog.Warn("skipping mcp tool", "server", cfg.Name, "tool", t.Name, "error", err)
			continue
		}
		e.bridged[registered] = &bridgedTool{
			serverName:  cfg.Name,
			toolName:    t.Name,
			description: t.Description,
			inputSchema: inputSchemaToMap(t.InputSchema),
			client:      client,
		}
	}
	slog.Info("mcp server connected", "server", cfg.Name, "tools", len(listed.Tools))
	return nil
}

// Close shuts down every connected server.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.clients {
		_ = c.Close()
	}
	e.clients = nil
	e.bridged = make(map[string]*bridgedTool)
}

// Has reports whether a bridged tool with the given name exists.
func (e *Executor) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.bridged[name]
	return ok
}

// ProviderDefs returns definitions for every bridged tool, for
// inclusion in the model's tool list.
func (e *Executor) ProviderDefs() []providers.ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(e.bridged))
	for name, t := range e.bridged {
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        name,
				Description: t.description,
				Parameters:  t.inputSchema,
			},
		})
	}
	return defs
}

// Execute forwards the call to the owning server. Failures and
// timeouts become descriptive text.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) *tools.Result {
	e.mu.RLock()
	t, ok := e.bridged[name]
	timeout := e.timeout
	e.mu.RUnlock()
	if !ok {
		return tools.ErrorResult("unknown mcp tool: " + name)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.toolName
	req.Params.Arguments = args

	result, err := t.client.CallTool(callCtx, req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return tools.ErrorResult(fmt.Sprintf("mcp tool %q timed out after %s", name, timeout))
		}
		return tools.ErrorResult(fmt.Sprintf("mcp tool %q error: %v", name, err))
	}

	text := extractTextContent(result)
	if result.IsError {
		return tools.ErrorResult(text)
	}
	return tools.NewResult(text)
}

func inputSchemaToMap(schema mcpgo.ToolInputSchema) map[string]any {
	m := map[string]any{"type": schema.Type}
	if schema.Type == "" {
		m["type"] = "object"
	}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	return m
}

func extractTextContent(result *mcpgo.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
