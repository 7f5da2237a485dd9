package shell

import (
	"strings"
	"testing"
)

func TestToken_Format(t *testing.T) {
	tok := Token(7)
	if tok != "__SHELLBRIDGE_DONE_7__" {
		t.Errorf("unexpected token: %s", tok)
	}
	if Token(7) != Token(7) {
		t.Error("token derivation must be deterministic")
	}
	if Token(7) == Token(8) {
		t.Error("tokens for different counters must differ")
	}
}

func TestEncode_SentinelIsSeparateStatement(t *testing.T) {
	enc := string(Encode("echo hi", Token(1)))

	lines := strings.Split(enc, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected command line + sentinel line, got %d lines", len(lines))
	}
	if lines[0] != "echo hi" {
		t.Errorf("command line altered: %q", lines[0])
	}
	if !strings.Contains(lines[1], Token(1)+":") {
		t.Errorf("sentinel line missing token: %q", lines[1])
	}
	if !strings.Contains(lines[1], `"$?"`) {
		t.Errorf("sentinel line missing exit status reference: %q", lines[1])
	}
}

func TestEncode_BackgroundedCommand(t *testing.T) {
	// A trailing & must not end up on the same statement as the sentinel
	// emission; `cmd &; printf` is a shell syntax error.
	enc := string(Encode("sleep 100 &", Token(2)))
	lines := strings.Split(enc, "\n")
	if strings.Contains(lines[0], "printf") {
		t.Error("sentinel emission chained onto the command line")
	}
}

func TestScan_Found(t *testing.T) {
	tok := Token(3)
	buf := []byte("hello\n" + tok + ":0\n")

	found, out, code := Scan(buf, tok)
	if !found {
		t.Fatal("expected sentinel to be found")
	}
	if string(out) != "hello\n" {
		t.Errorf("expected output %q, got %q", "hello\n", out)
	}
	if code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
}

func TestScan_NonZeroExit(t *testing.T) {
	tok := Token(4)
	buf := []byte(tok + ":127\n")

	found, out, code := Scan(buf, tok)
	if !found {
		t.Fatal("expected sentinel to be found")
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %q", out)
	}
	if code != 127 {
		t.Errorf("expected exit code 127, got %d", code)
	}
}

func TestScan_NotPresent(t *testing.T) {
	found, _, _ := Scan([]byte("just some output\n"), Token(5))
	if found {
		t.Error("sentinel reported found in unrelated output")
	}
}

func TestScan_PartialSentinelLine(t *testing.T) {
	tok := Token(6)

	// Token arrived but the exit code line is not complete yet; the
	// sentinel must not be accepted until the terminating newline lands.
	partials := []string{
		"out\n" + tok[:len(tok)-3],
		"out\n" + tok,
		"out\n" + tok + ":",
		"out\n" + tok + ":12",
	}
	for _, p := range partials {
		if found, _, _ := Scan([]byte(p), tok); found {
			t.Errorf("sentinel accepted from incomplete buffer %q", p)
		}
	}

	// Completing the line flips the result.
	found, out, code := Scan([]byte("out\n"+tok+":12\n"), tok)
	if !found {
		t.Fatal("expected sentinel once line completed")
	}
	if string(out) != "out\n" || code != 12 {
		t.Errorf("got output %q code %d", out, code)
	}
}

func TestScan_DiscardsOutputAfterSentinel(t *testing.T) {
	tok := Token(8)
	buf := []byte("before\n" + tok + ":0\nafter-from-background-job\n")

	found, out, _ := Scan(buf, tok)
	if !found {
		t.Fatal("expected sentinel to be found")
	}
	if string(out) != "before\n" {
		t.Errorf("output should stop at the sentinel line, got %q", out)
	}
}
