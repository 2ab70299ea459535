package mcp

import "github.com/mark3labs/mcp-go/server"

// Log levels for client notifications.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Notifier pushes log notifications to connected clients.
type Notifier interface {
	Notify(level string, data map[string]any)
}

// MCPNotifier implements Notifier with notifications/message broadcasts.
type MCPNotifier struct {
	mcpServer *server.MCPServer
}

// NewMCPNotifier creates a notifier bound to mcpServer.
func NewMCPNotifier(mcpServer *server.MCPServer) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer}
}

// Notify broadcasts to every active session. Best-effort: clients that are
// not connected simply miss it.
func (n *MCPNotifier) Notify(level string, data map[string]any) {
	n.mcpServer.SendNotificationToAllClients("notifications/message", map[string]any{
		"level":  level,
		"logger": "flowscript",
		"data":   data,
	})
}
