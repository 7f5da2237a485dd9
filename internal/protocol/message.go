package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Server → Client message types.
const (
	TypeShellResult = "shell.result"
	TypeShellState  = "shell.state"
	TypeFilesUpdate = "files.update"
	TypeFilesTree   = "files.tree"
	TypeError       = "error"
)

// Client → Server message types.
const (
	TypeShellExecute     = "shell.execute"
	TypeShellDrain       = "shell.drain"
	TypeShellInterrupt   = "shell.interrupt"
	TypeShellReset       = "shell.reset"
	TypeShellStatus      = "shell.status"
	TypeFilesRequestTree = "files.requestTree"
)

// Error codes.
const (
	ErrInvalidMessage   = "INVALID_MESSAGE"
	ErrSessionBusy      = "SESSION_BUSY"
	ErrNoPendingCommand = "NO_PENDING_COMMAND"
	ErrSpawnFailed      = "SPAWN_FAILED"
	ErrBrokenPipe       = "BROKEN_PIPE"
)

// Server → Client payloads.

// ShellResultPayload carries the outcome of execute, drain, interrupt, or
// reset. ExitCode is absent for timed-out, crashed, and most interrupted
// commands.
type ShellResultPayload struct {
	Op       string `json:"op"`
	Status   string `json:"status"`
	Output   string `json:"output"`
	ExitCode *int   `json:"exitCode,omitempty"`
}

type ShellStatePayload struct {
	State          string `json:"state"`
	Alive          bool   `json:"alive"`
	CommandsRun    uint64 `json:"commandsRun"`
	PendingCommand string `json:"pendingCommand,omitempty"`
}

type FilesUpdatePayload struct {
	FileCount int `json:"fileCount"`
}

type FilesTreePayload struct {
	Tree []FileNode `json:"tree"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client → Server payloads.

type ShellExecutePayload struct {
	Command   string `json:"command"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

// FileNode represents a file or directory in the tree.
type FileNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	IsDir    bool       `json:"isDir"`
	Children []FileNode `json:"children,omitempty"`
	Size     int64      `json:"size,omitempty"`
}
