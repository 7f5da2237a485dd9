package protocol

import (
	"encoding/json"
	"testing"
)

func TestValidateClientMessage_InvalidJSON(t *testing.T) {
	_, err := ValidateClientMessage([]byte("not json"))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestValidateClientMessage_MissingType(t *testing.T) {
	_, err := ValidateClientMessage([]byte(`{"payload":{}}`))
	if err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestValidateClientMessage_UnknownType(t *testing.T) {
	_, err := ValidateClientMessage([]byte(`{"type":"shell.nonsense","payload":{}}`))
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestValidateClientMessage_ExecuteMissingPayload(t *testing.T) {
	_, err := ValidateClientMessage([]byte(`{"type":"shell.execute"}`))
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestValidateClientMessage_ExecuteMissingCommand(t *testing.T) {
	_, err := ValidateClientMessage([]byte(`{"type":"shell.execute","payload":{"timeoutMs":1000}}`))
	if err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestValidateClientMessage_ExecuteNegativeTimeout(t *testing.T) {
	_, err := ValidateClientMessage([]byte(`{"type":"shell.execute","payload":{"command":"ls","timeoutMs":-5}}`))
	if err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestValidateClientMessage_ValidExecute(t *testing.T) {
	msg, err := ValidateClientMessage([]byte(`{"type":"shell.execute","payload":{"command":"echo hi","timeoutMs":2000}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != TypeShellExecute {
		t.Errorf("expected type %s, got %s", TypeShellExecute, msg.Type)
	}

	var p ShellExecutePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Command != "echo hi" || p.TimeoutMs != 2000 {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestValidateClientMessage_BareRequestsNeedNoPayload(t *testing.T) {
	for _, typ := range []string{TypeShellDrain, TypeShellInterrupt, TypeShellReset, TypeShellStatus, TypeFilesRequestTree} {
		raw := []byte(`{"type":"` + typ + `"}`)
		if _, err := ValidateClientMessage(raw); err != nil {
			t.Errorf("%s: unexpected error: %v", typ, err)
		}
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(ErrSessionBusy, "a command is already pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != TypeError {
		t.Errorf("expected error type, got %s", msg.Type)
	}

	var p ErrorPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Code != ErrSessionBusy {
		t.Errorf("expected code %s, got %s", ErrSessionBusy, p.Code)
	}
}
