package server

import "github.com/mark3labs/mcp-go/mcp"

// CallRequest is the body of POST /mcp/call.
type CallRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"arguments"`
}

type ToolsResponse struct {
	Tools []mcp.Tool `json:"tools"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
}
