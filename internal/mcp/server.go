// Package mcp exposes the shell session and file tools over the Model
// Context Protocol, so automation clients drive the bridge through stdio
// instead of the realtime API.
package mcp

import (
	"shellbridge/internal/shell"
	"shellbridge/internal/tools"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	serverName    = "shellbridge"
	serverVersion = "1.0.0"
)

// Server wraps an MCP server around a single shell session.
type Server struct {
	mcpServer *server.MCPServer
	session   *shell.Session
	fileOps   *tools.FileOps
	logger    *zap.Logger
}

// New builds the MCP server and registers its tools.
func New(session *shell.Session, fileOps *tools.FileOps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
		),
		session: session,
		fileOps: fileOps,
		logger:  logger,
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the client closes
// the stream.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting on stdio")
	return server.ServeStdio(s.mcpServer)
}
