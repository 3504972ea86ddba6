package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all TON Shield tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("tonshield", "1.0.0")
	client := NewShieldClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAnalyzeAddress, h.HandleAnalyzeAddress)
	s.AddTool(ToolAnalyzeJetton, h.HandleAnalyzeJetton)
	s.AddTool(ToolAnalyzeLink, h.HandleAnalyzeLink)
	s.AddTool(ToolAnalyzeTransaction, h.HandleAnalyzeTransaction)
	s.AddTool(ToolGetHistory, h.HandleGetHistory)
	s.AddTool(ToolGetDashboard, h.HandleGetDashboard)

	return s
}
