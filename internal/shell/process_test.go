package shell

import (
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireBash(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	return path
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestSupervisor_StartAndAlive(t *testing.T) {
	sup := NewSupervisor(requireBash(t), "", nil)
	defer sup.Kill()

	if sup.Alive() {
		t.Error("expected not alive before start")
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !sup.Alive() {
		t.Error("expected alive after start")
	}

	// Start on a running process is a no-op.
	if err := sup.Start(); err != nil {
		t.Errorf("second Start failed: %v", err)
	}
}

func TestSupervisor_StartBadExecutable(t *testing.T) {
	sup := NewSupervisor("/nonexistent/shell-binary", "", nil)
	err := sup.Start()
	if err == nil {
		t.Fatal("expected spawn error")
	}
}

func TestSupervisor_WriteBeforeStart(t *testing.T) {
	sup := NewSupervisor(requireBash(t), "", nil)
	if err := sup.Write([]byte("echo hi")); err == nil {
		t.Fatal("expected error writing to unstarted process")
	}
}

func TestSupervisor_WriteAndDrain(t *testing.T) {
	sup := NewSupervisor(requireBash(t), "", nil)
	defer sup.Kill()

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sup.Write([]byte("echo from-supervisor")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		return strings.Contains(string(sup.Output().Since(0)), "from-supervisor")
	})
	if !ok {
		t.Errorf("output never arrived, buffer: %q", sup.Output().Since(0))
	}
}

func TestSupervisor_TerminateReleasesProcess(t *testing.T) {
	sup := NewSupervisor(requireBash(t), "", nil)
	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sup.Terminate()

	if sup.Alive() {
		t.Error("expected dead process after Terminate")
	}
	if err := sup.Write([]byte("echo ghost")); err == nil {
		t.Error("expected write to dead process to fail")
	}

	// Terminate on an already-dead process is safe.
	sup.Terminate()
}

func TestSupervisor_WriteAfterExit(t *testing.T) {
	sup := NewSupervisor(requireBash(t), "", nil)
	defer sup.Kill()

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sup.Write([]byte("exit 0"))

	if !waitFor(t, 3*time.Second, func() bool { return !sup.Alive() }) {
		t.Fatal("process never exited")
	}
	if err := sup.Write([]byte("echo ghost")); err == nil {
		t.Error("expected ErrBrokenPipe after exit")
	}
}

func TestSupervisor_RestartDiscardsBuffer(t *testing.T) {
	sup := NewSupervisor(requireBash(t), "", nil)
	defer sup.Kill()

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sup.Write([]byte("echo old-output"))
	waitFor(t, 3*time.Second, func() bool { return sup.Output().Len() > 0 })

	if err := sup.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if !sup.Alive() {
		t.Error("expected alive after restart")
	}
	if strings.Contains(string(sup.Output().Since(0)), "old-output") {
		t.Error("buffer retained output from the previous process")
	}
}

func TestSupervisor_InterruptForegroundDeadProcess(t *testing.T) {
	sup := NewSupervisor(requireBash(t), "", nil)
	if err := sup.InterruptForeground(); err == nil {
		t.Fatal("expected error interrupting an unstarted process")
	}
}
