package shell

import "errors"

// Process-level and caller-protocol errors. Timeouts, crashes, and
// interrupts are not errors; they are result statuses (see Result).
var (
	// ErrSpawn means the shell executable could not be launched. The
	// session stays unusable until Reset.
	ErrSpawn = errors.New("shell: spawn failed")

	// ErrBrokenPipe means a write was attempted on a dead process.
	ErrBrokenPipe = errors.New("shell: process has exited")

	// ErrSessionBusy means a command was submitted while another is
	// still pending.
	ErrSessionBusy = errors.New("shell: a command is already pending")

	// ErrNoPending means interrupt or drain was called with no
	// pending command.
	ErrNoPending = errors.New("shell: no pending command")
)
