package shell

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the session's machine state.
type State string

const (
	StateIdle     State = "idle"     // no pending command
	StateAwaiting State = "awaiting" // command sent, polling for sentinel
	StateFaulted  State = "faulted"  // process died or irrecoverable
)

// Status classifies the outcome of a session operation. These are
// first-class results, not errors: timeouts, crashes, and interrupts are
// expected, common outcomes.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusTimedOut    Status = "timed_out"
	StatusCrashed     Status = "crashed"
	StatusInterrupted Status = "interrupted"
	StatusIdle        Status = "idle"
)

// Result is the outcome returned for execute, drain, interrupt, and reset.
type Result struct {
	Status   Status `json:"status"`
	Output   string `json:"output"`
	ExitCode *int   `json:"exitCode,omitempty"`
}

// pendingCommand tracks one submitted command until the sentinel is
// observed, the timeout fires, or the session restarts. At most one exists
// at a time.
type pendingCommand struct {
	command     string
	token       string
	submittedAt time.Time
	timeout     time.Duration

	// window is the buffer offset where this command's output begins;
	// delivered counts bytes within the window already returned to the
	// client, so repeated drains never redeliver stale output.
	window    int
	delivered int

	// cancel is closed when the command is resolved externally
	// (interrupt or reset), waking a concurrent Execute poll loop.
	cancel chan struct{}
}

// Options configures a Session.
type Options struct {
	ShellPath      string
	WorkDir        string
	PollInterval   time.Duration
	InterruptGrace time.Duration
	DefaultTimeout time.Duration
	Logger         *zap.Logger
}

// Session is the orchestrator: it accepts one command at a time, writes it
// through the sentinel encoder to the process, polls the output buffer
// under a deadline, and classifies the outcome. It exclusively owns the
// process's input stream.
type Session struct {
	sup            *Supervisor
	pollInterval   time.Duration
	interruptGrace time.Duration
	defaultTimeout time.Duration
	logger         *zap.Logger

	mu      sync.Mutex
	state   State
	seq     uint64
	pending *pendingCommand
}

// NewSession creates a session. The shell process is spawned lazily on the
// first Execute.
func NewSession(opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if opts.InterruptGrace <= 0 {
		opts.InterruptGrace = time.Second
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{
		sup:            NewSupervisor(opts.ShellPath, opts.WorkDir, opts.Logger),
		pollInterval:   opts.PollInterval,
		interruptGrace: opts.InterruptGrace,
		defaultTimeout: opts.DefaultTimeout,
		state:          StateIdle,
		logger:         opts.Logger,
	}
}

// Execute submits one command and polls for its completion under the given
// timeout. Returns ErrSessionBusy while another command is pending. On
// timeout the pending command stays logically open and the process is not
// killed: the command may legitimately be long-running, interactive, or
// backgrounded, and a later ContinueDraining call keeps collecting its
// output.
func (s *Session) Execute(command string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return Result{}, ErrSessionBusy
	}

	// Lazy start covers the first call, a prior fault, and a crashed
	// process alike. Restart resets the buffer so a fresh shell never
	// sees a stale window.
	if !s.sup.Alive() {
		if err := s.sup.Restart(); err != nil {
			s.state = StateFaulted
			s.mu.Unlock()
			return Result{}, err
		}
		s.state = StateIdle
	}

	s.seq++
	p := &pendingCommand{
		command:     command,
		token:       Token(s.seq),
		submittedAt: time.Now(),
		timeout:     timeout,
		window:      s.sup.Output().Len(),
		cancel:      make(chan struct{}),
	}

	if err := s.sup.Write(Encode(command, p.token)); err != nil {
		s.state = StateFaulted
		s.mu.Unlock()
		return Result{}, err
	}

	s.pending = p
	s.state = StateAwaiting
	s.mu.Unlock()

	s.logger.Debug("command submitted",
		zap.String("token", p.token),
		zap.Duration("timeout", timeout),
	)

	return s.poll(p)
}

// poll is the bounded busy-wait: it sleeps a small fixed interval between
// buffer scans so a concurrent Interrupt or Reset is observed promptly
// instead of after the full timeout.
func (s *Session) poll(p *pendingCommand) (Result, error) {
	deadline := p.submittedAt.Add(p.timeout)

	for {
		select {
		case <-p.cancel:
			// Resolved externally; the resolver already returned any
			// drained output to its own caller.
			return Result{Status: StatusInterrupted}, nil
		default:
		}

		window := s.sup.Output().Since(p.window)

		if found, out, code := Scan(window, p.token); found {
			return s.resolve(p, StatusCompleted, out, &code), nil
		}

		if !s.sup.Alive() {
			// Final drain: the sentinel may have landed with the
			// process's last bytes.
			window = s.sup.Output().Since(p.window)
			if found, out, code := Scan(window, p.token); found {
				return s.resolve(p, StatusCompleted, out, &code), nil
			}
			return s.resolveCrashed(p, window), nil
		}

		if time.Now().After(deadline) {
			return s.timedOut(p), nil
		}

		time.Sleep(s.pollInterval)
	}
}

// resolve closes out a pending command with a definitive outcome and
// returns only the not-yet-delivered slice of its output.
func (s *Session) resolve(p *pendingCommand, status Status, output []byte, exitCode *int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != p {
		// Lost the race against interrupt or reset.
		return Result{Status: StatusInterrupted}
	}
	s.pending = nil
	s.state = StateIdle

	return Result{
		Status:   status,
		Output:   string(undelivered(p, output)),
		ExitCode: exitCode,
	}
}

func (s *Session) resolveCrashed(p *pendingCommand, output []byte) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == p {
		s.pending = nil
	}
	s.state = StateFaulted
	s.logger.Warn("shell died while a command was pending", zap.String("token", p.token))

	return Result{
		Status: StatusCrashed,
		Output: string(undelivered(p, output)),
	}
}

// timedOut reports accumulated output without resolving the pending
// command; the client decides whether to keep draining, interrupt, or
// reset.
func (s *Session) timedOut(p *pendingCommand) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != p {
		return Result{Status: StatusInterrupted}
	}

	window := s.sup.Output().Since(p.window)
	out := undelivered(p, window)
	p.delivered = len(window)

	return Result{Status: StatusTimedOut, Output: string(out)}
}

// ContinueDraining re-polls a command left open by a timeout without
// resubmitting it: it returns newly accumulated output and re-checks for
// the sentinel. Returns ErrNoPending when nothing is pending.
func (s *Session) ContinueDraining() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pending
	if p == nil {
		return Result{}, ErrNoPending
	}

	window := s.sup.Output().Since(p.window)

	if found, out, code := Scan(window, p.token); found {
		s.pending = nil
		s.state = StateIdle
		return Result{
			Status:   StatusCompleted,
			Output:   string(undelivered(p, out)),
			ExitCode: &code,
		}, nil
	}

	if !s.sup.Alive() {
		s.pending = nil
		s.state = StateFaulted
		return Result{
			Status: StatusCrashed,
			Output: string(undelivered(p, window)),
		}, nil
	}

	out := undelivered(p, window)
	p.delivered = len(window)
	return Result{Status: StatusTimedOut, Output: string(out)}, nil
}

// Interrupt sends SIGINT to the shell's foreground process group, then
// polls briefly for the sentinel (the interrupted command's shell may
// still emit it). If the sentinel does not appear within the grace window
// the pending command is resolved as Interrupted anyway: leaving the
// session stuck is worse than losing a definitive exit code. Returns
// ErrNoPending while idle.
func (s *Session) Interrupt() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pending
	if p == nil {
		return Result{}, ErrNoPending
	}

	if err := s.sup.InterruptForeground(); err != nil {
		s.logger.Warn("interrupt signal failed", zap.Error(err))
	}

	var (
		exitCode *int
		window   []byte
	)
	deadline := time.Now().Add(s.interruptGrace)
	for {
		window = s.sup.Output().Since(p.window)
		if found, out, code := Scan(window, p.token); found {
			window = out
			exitCode = &code
			break
		}
		if !s.sup.Alive() || time.Now().After(deadline) {
			break
		}
		time.Sleep(s.pollInterval)
	}

	close(p.cancel)
	s.pending = nil
	if s.sup.Alive() {
		s.state = StateIdle
	} else {
		s.state = StateFaulted
	}

	return Result{
		Status:   StatusInterrupted,
		Output:   string(undelivered(p, window)),
		ExitCode: exitCode,
	}, nil
}

// Reset forces a restart of the shell process, discarding any pending
// command. Always succeeds from the caller's perspective; the kill is best
// effort and a failed respawn surfaces on the next Execute.
func (s *Session) Reset() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		close(s.pending.cancel)
		s.pending = nil
	}

	if err := s.sup.Restart(); err != nil {
		s.logger.Warn("respawn after reset failed", zap.Error(err))
		s.state = StateFaulted
	} else {
		s.state = StateIdle
	}

	return Result{Status: StatusIdle}
}

// Close tears down the underlying process. The session is unusable
// afterwards except via Execute's lazy restart.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		close(s.pending.cancel)
		s.pending = nil
	}
	s.sup.Terminate()
	s.state = StateIdle
}

// Info is a point-in-time view of the session for status reporting.
type Info struct {
	State          State  `json:"state"`
	Alive          bool   `json:"alive"`
	CommandsRun    uint64 `json:"commandsRun"`
	PendingCommand string `json:"pendingCommand,omitempty"`
}

// Status reports the session's current state.
func (s *Session) Status() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		State:       s.state,
		Alive:       s.sup.Alive(),
		CommandsRun: s.seq,
	}
	if s.pending != nil {
		info.PendingCommand = s.pending.command
	}
	return info
}

// undelivered trims the already-returned prefix from a command's output
// window. If an earlier timed-out drain delivered bytes past this view
// (possible when a partial sentinel line was shipped), nothing is owed.
func undelivered(p *pendingCommand, output []byte) []byte {
	if p.delivered >= len(output) {
		return nil
	}
	return output[p.delivered:]
}
