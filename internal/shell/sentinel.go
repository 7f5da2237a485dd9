package shell

import (
	"bytes"
	"fmt"
	"strconv"
)

// The sentinel protocol makes command completion machine-detectable: every
// submitted command is followed by a separate, unconditionally-executed
// statement that prints a marker line carrying the shell's reported exit
// status. Completion is then a matter of scanning the cumulative output
// buffer for that line, instead of relying on process exit (which never
// happens for a persistent shell).
//
// A command whose own output contains the token pattern would be
// misdetected. The structured delimiter plus numeric counter makes that
// improbable in ordinary shell output; it is a documented limitation, not
// a guaranteed-safe guard.

const (
	tokenPrefix = "__SHELLBRIDGE_DONE_"
	tokenSuffix = "__"
)

// Token derives the sentinel token for the seq-th command. Uniqueness is
// only required across concurrently pending commands, and at most one
// command is pending at a time, so a counter-derived token suffices.
func Token(seq uint64) string {
	return fmt.Sprintf("%s%d%s", tokenPrefix, seq, tokenSuffix)
}

// Encode returns the bytes to write to the shell for a command. The
// sentinel emission is its own statement on its own input line, so commands
// that background themselves, redirect, or pipe cannot corrupt it: the
// shell only reads the printf line after the command line has been consumed.
func Encode(command, token string) []byte {
	return []byte(fmt.Sprintf("%s\nprintf '%s:%%s\\n' \"$?\"", command, token))
}

// Scan searches buf for the sentinel line belonging to token. It returns
// whether the sentinel was found, the output preceding it (the user-visible
// result), and the exit code reported by the shell. Everything after the
// sentinel line is deliberately ignored; it belongs to a later buffer
// window.
//
// Scan operates on the cumulative buffer and only accepts a sentinel line
// terminated by a newline, so a token (or its exit code digits) split
// across multiple non-blocking reads is never half-detected.
func Scan(buf []byte, token string) (found bool, output []byte, exitCode int) {
	marker := []byte(token + ":")

	idx := bytes.Index(buf, marker)
	if idx < 0 {
		return false, nil, 0
	}

	rest := buf[idx+len(marker):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 {
		// Sentinel line still arriving.
		return false, nil, 0
	}

	code, err := strconv.Atoi(string(bytes.TrimSpace(rest[:nl])))
	if err != nil {
		code = -1
	}

	return true, buf[:idx], code
}
