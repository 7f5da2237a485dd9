package shell

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	pumpBufSize     = 4096
	gracefulTimeout = 2 * time.Second
)

// initTrap is written to the shell right after spawn. Trapped (but not
// ignored) signals are reset to their default disposition in child
// processes, so SIGINT delivered to the process group kills the foreground
// command while the shell itself survives to run the next one.
const initTrap = "trap ':' INT"

// stdinWriter wraps the input pipe with mutex protection.
type stdinWriter struct {
	mu     sync.Mutex
	writer *os.File
	closed bool
}

func (sw *stdinWriter) Write(data []byte) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.closed {
		return fmt.Errorf("stdin pipe closed")
	}
	_, err := sw.writer.Write(data)
	return err
}

func (sw *stdinWriter) Close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.closed {
		sw.writer.Close()
		sw.closed = true
	}
}

// Supervisor owns one OS-level shell process and its three byte streams.
// Output and error bytes are pumped by background goroutines into a shared
// Buffer, which is what lets callers drain available output without ever
// blocking on a read.
type Supervisor struct {
	shellPath string
	workDir   string
	logger    *zap.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin *stdinWriter
	buf   *Buffer
	done  chan struct{} // closed once Wait returns
}

// NewSupervisor creates a supervisor for the given shell executable.
// The process is not spawned until Start.
func NewSupervisor(shellPath, workDir string, logger *zap.Logger) *Supervisor {
	if shellPath == "" {
		shellPath = os.Getenv("SHELL")
		if shellPath == "" {
			shellPath = "/bin/bash"
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		shellPath: shellPath,
		workDir:   workDir,
		buf:       NewBuffer(),
		logger:    logger,
	}
}

// Start spawns the shell in its own process group and begins pumping its
// output streams into the buffer.
func (p *Supervisor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && p.aliveLocked() {
		return nil
	}

	cmd := exec.Command(p.shellPath)
	if p.workDir != "" {
		cmd.Dir = p.workDir
	}
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: create stdin pipe: %v", ErrSpawn, err)
	}
	cmd.Stdin = stdinR

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdinW.Close()
		stdinR.Close()
		return fmt.Errorf("%w: create stdout pipe: %v", ErrSpawn, err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		stdinW.Close()
		stdinR.Close()
		return fmt.Errorf("%w: create stderr pipe: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		stdinW.Close()
		stdinR.Close()
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	// The child holds the read end now.
	stdinR.Close()

	p.cmd = cmd
	p.stdin = &stdinWriter{writer: stdinW}
	p.done = make(chan struct{})

	go p.pump(stdoutPipe, "stdout")
	go p.pump(stderrPipe, "stderr")
	go p.waitForExit(cmd, p.stdin, p.done)

	p.logger.Info("shell started",
		zap.String("path", p.shellPath),
		zap.Int("pid", cmd.Process.Pid),
	)

	// Keep SIGINT survivable for the shell; see initTrap.
	if err := p.stdin.Write([]byte(initTrap + "\n")); err != nil {
		p.logger.Warn("failed to install INT trap", zap.Error(err))
	}

	return nil
}

// pump copies raw bytes from one output stream into the shared buffer,
// preserving order and partial lines.
func (p *Supervisor) pump(r io.Reader, stream string) {
	chunk := make([]byte, pumpBufSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			p.buf.Write(chunk[:n])
		}
		if err != nil {
			if err != io.EOF {
				p.logger.Debug("stream closed", zap.String("stream", stream), zap.Error(err))
			}
			return
		}
	}
}

// waitForExit reaps the process and releases the input pipe regardless of
// which path triggered shutdown.
func (p *Supervisor) waitForExit(cmd *exec.Cmd, stdin *stdinWriter, done chan struct{}) {
	err := cmd.Wait()
	stdin.Close()
	close(done)

	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	p.logger.Info("shell exited", zap.Int("exit_code", exitCode))
}

// Write appends bytes plus a trailing newline to the process's input
// stream. Returns ErrBrokenPipe if the process has exited.
func (p *Supervisor) Write(data []byte) error {
	p.mu.Lock()
	stdin := p.stdin
	alive := p.aliveLocked()
	p.mu.Unlock()

	if stdin == nil || !alive {
		return ErrBrokenPipe
	}
	if err := stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokenPipe, err)
	}
	return nil
}

// Output returns the shared output buffer. Drains are snapshot reads on
// the buffer and never block waiting for more data.
func (p *Supervisor) Output() *Buffer {
	return p.buf
}

// Alive reports whether the process is running.
func (p *Supervisor) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aliveLocked()
}

func (p *Supervisor) aliveLocked() bool {
	if p.cmd == nil || p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// InterruptForeground sends SIGINT to the shell's process group. The
// foreground command dies with the default disposition; the shell itself
// survives via the installed trap.
func (p *Supervisor) InterruptForeground() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.aliveLocked() {
		return ErrBrokenPipe
	}
	return syscall.Kill(-p.cmd.Process.Pid, syscall.SIGINT)
}

// Terminate attempts graceful shutdown: SIGTERM to the group, a bounded
// wait, then SIGKILL. The input pipe and process handle are released on
// every path.
func (p *Supervisor) Terminate() {
	p.mu.Lock()
	cmd := p.cmd
	stdin := p.stdin
	done := p.done
	alive := p.aliveLocked()
	p.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	if !alive {
		return
	}

	syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)

	select {
	case <-done:
	case <-time.After(gracefulTimeout):
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
	}
}

// Kill forcefully terminates the process group without a grace period.
func (p *Supervisor) Kill() {
	p.mu.Lock()
	cmd := p.cmd
	stdin := p.stdin
	done := p.done
	alive := p.aliveLocked()
	p.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	if !alive {
		return
	}

	syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	<-done
}

// Restart kills the process if alive and spawns a fresh shell. Working
// directory changes and exported variables from the old process are lost;
// that is documented, not hidden, behavior.
func (p *Supervisor) Restart() error {
	p.Kill()
	p.buf.Reset()
	return p.Start()
}
