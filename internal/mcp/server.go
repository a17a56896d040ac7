package mcp

import (
	"net/http"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/stalker/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"activity_latest": {
		def:     latestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLatest },
	},
	"activity_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"activity_set_manual": {
		def:     setManualToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSetManual },
	},
	"activity_clear_manual": {
		def:     clearManualToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClearManual },
	},
	"activity_report_ping": {
		def:     reportPingToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReportPing },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the activity tools registered.
// Tools listed in disabledTools are excluded from registration.
func NewServer(eng ops.Engine, disabledTools []string, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"stalker",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(eng)

	disabled := make(map[string]bool, len(disabledTools))
	for _, name := range disabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// NewHTTPHandler serves s over the streamable HTTP transport.
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s)
}
