package protocol

import (
	"encoding/json"
	"fmt"
)

// validClientTypes is the set of allowed client→server message types.
var validClientTypes = map[string]bool{
	TypeShellExecute:     true,
	TypeShellDrain:       true,
	TypeShellInterrupt:   true,
	TypeShellReset:       true,
	TypeShellStatus:      true,
	TypeFilesRequestTree: true,
}

// ValidateClientMessage validates a raw JSON message from a client.
// Returns the parsed Message and any validation error.
func ValidateClientMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}

	if !validClientTypes[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}

	// Only shell.execute carries required payload fields; the remaining
	// client messages are bare requests.
	if msg.Type == TypeShellExecute {
		if msg.Payload == nil {
			return nil, fmt.Errorf("missing 'payload' field")
		}
		var p ShellExecutePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid payload for %s: %w", msg.Type, err)
		}
		if p.Command == "" {
			return nil, fmt.Errorf("missing required field 'command' in %s payload", msg.Type)
		}
		if p.TimeoutMs < 0 {
			return nil, fmt.Errorf("negative 'timeoutMs' in %s payload", msg.Type)
		}
	}

	return &msg, nil
}

// NewErrorMessage creates an error message ready to send to the client.
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}
