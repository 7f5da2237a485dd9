package mcp

import (
	"context"
	"encoding/json"
	"time"

	"shellbridge/internal/tools"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(shellExecuteTool(), s.handleShellExecute)
	s.mcpServer.AddTool(shellDrainTool(), s.handleShellDrain)
	s.mcpServer.AddTool(shellInterruptTool(), s.handleShellInterrupt)
	s.mcpServer.AddTool(shellResetTool(), s.handleShellReset)
	s.mcpServer.AddTool(shellStatusTool(), s.handleShellStatus)
	s.mcpServer.AddTool(fileOperationsTool(), s.handleFileOperations)
}

// Tool definitions

func shellExecuteTool() mcp.Tool {
	return mcp.NewTool("shell_execute",
		mcp.WithDescription("Execute a command in the persistent shell session. "+
			"State (working directory, environment, background jobs) carries over "+
			"between calls. On timeout the command keeps running; use shell_drain "+
			"to collect it later or shell_interrupt to stop it."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The shell command to execute"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("How long to wait for completion in milliseconds (default: 30000)"),
		),
	)
}

func shellDrainTool() mcp.Tool {
	return mcp.NewTool("shell_drain",
		mcp.WithDescription("Collect further output from a command that previously "+
			"timed out. Returns only output not yet delivered, and the final exit "+
			"code once the command finishes."),
	)
}

func shellInterruptTool() mcp.Tool {
	return mcp.NewTool("shell_interrupt",
		mcp.WithDescription("Send SIGINT (Ctrl+C) to the running command. The shell "+
			"session itself survives and stays usable."),
	)
}

func shellResetTool() mcp.Tool {
	return mcp.NewTool("shell_reset",
		mcp.WithDescription("Kill the shell process and start a fresh one. All "+
			"session state (working directory, environment, pending commands) is "+
			"discarded. Use when the session is wedged beyond interrupt."),
	)
}

func shellStatusTool() mcp.Tool {
	return mcp.NewTool("shell_status",
		mcp.WithDescription("Report session state: whether the shell process is "+
			"alive, whether a command is pending, and how many commands have run."),
	)
}

func fileOperationsTool() mcp.Tool {
	return mcp.NewTool("file_operations",
		mcp.WithDescription("Perform file and directory operations: list_directory, "+
			"create_directory, copy_file, copy_directory, move_file, move_directory, "+
			"delete_file, delete_directory, get_file_info, change_permissions, "+
			"find_files, get_file_size, get_directory_size"),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("The operation to perform"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Target file or directory path"),
		),
		mcp.WithString("destination",
			mcp.Description("Destination path for copy and move operations"),
		),
		mcp.WithString("pattern",
			mcp.Description("Glob pattern for find_files (e.g. '*.go')"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Apply the operation recursively"),
		),
		mcp.WithString("permissions",
			mcp.Description("Octal permission bits for change_permissions (e.g. '755')"),
		),
		mcp.WithBoolean("show_hidden",
			mcp.Description("Include hidden entries in list_directory"),
		),
	)
}

// Tool handlers

func (s *Server) handleShellExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := mcp.ParseString(req, "command", "")
	timeoutMs := mcp.ParseInt(req, "timeout_ms", 0)

	if command == "" {
		return mcp.NewToolResultError("command is required"), nil
	}

	s.logger.Info("executing command", zap.String("command", command))

	res, err := s.session.Execute(command, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleShellDrain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.session.ContinueDraining()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleShellInterrupt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("interrupting session")

	res, err := s.session.Interrupt()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleShellReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("resetting session")
	return jsonResult(s.session.Reset())
}

func (s *Server) handleShellStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.Status())
}

func (s *Server) handleFileOperations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileReq := tools.FileRequest{
		Operation:   mcp.ParseString(req, "operation", ""),
		Path:        mcp.ParseString(req, "path", ""),
		Destination: mcp.ParseString(req, "destination", ""),
		Pattern:     mcp.ParseString(req, "pattern", ""),
		Recursive:   mcp.ParseBoolean(req, "recursive", false),
		Permissions: mcp.ParseString(req, "permissions", ""),
		ShowHidden:  mcp.ParseBoolean(req, "show_hidden", false),
	}

	if fileReq.Operation == "" {
		return mcp.NewToolResultError("operation is required"), nil
	}

	out, err := s.fileOps.Execute(fileReq)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

// jsonResult converts a value to a JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
