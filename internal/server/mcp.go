package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"movies-mcp/internal/catalog"
	"movies-mcp/internal/dispatch"
)

// Server identity reported on initialize and /health.
const (
	ServerName    = "movies-mcp"
	ServerVersion = "1.0.0"
)

// MessageHandler processes one JSON-RPC message and returns the reply, or
// nil for notifications.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg json.RawMessage) mcp.JSONRPCMessage
}

// Protocol answers MCP messages for one connection. Lifecycle methods
// (initialize, ping, notifications) are served by an mcp-go MCPServer; tool
// listing and unknown tool calls are answered from the catalog so that every
// tool call yields a tool result rather than a JSON-RPC error.
type Protocol struct {
	srv        *mcpserver.MCPServer
	dispatcher *dispatch.Dispatcher
}

// NewProtocol builds a Protocol with every catalog tool registered.
func NewProtocol(d *dispatch.Dispatcher) *Protocol {
	s := mcpserver.NewMCPServer(ServerName, ServerVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	handler := d.ToolHandler()
	for _, tool := range d.Tools() {
		s.AddTool(tool, handler)
	}
	return &Protocol{srv: s, dispatcher: d}
}

type rpcEnvelope struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResult struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type toolCallParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// HandleMessage implements MessageHandler.
func (p *Protocol) HandleMessage(ctx context.Context, msg json.RawMessage) mcp.JSONRPCMessage {
	var env rpcEnvelope
	if err := json.Unmarshal(msg, &env); err != nil || len(env.ID) == 0 {
		return p.srv.HandleMessage(ctx, msg)
	}
	switch env.Method {
	case string(mcp.MethodToolsList):
		return rpcResult{JSONRPC: mcp.JSONRPC_VERSION, ID: env.ID, Result: mcp.ListToolsResult{Tools: p.dispatcher.Tools()}}
	case string(mcp.MethodToolsCall):
		var params toolCallParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			break
		}
		if _, ok := catalog.Lookup(params.Name); ok {
			break
		}
		args, _ := params.Arguments.(map[string]any)
		return rpcResult{JSONRPC: mcp.JSONRPC_VERSION, ID: env.ID, Result: p.dispatcher.Invoke(ctx, params.Name, args)}
	}
	return p.srv.HandleMessage(ctx, msg)
}
