package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	textunicode "golang.org/x/text/encoding/unicode"

	"pkt.systems/gitconsole/schema"
	"pkt.systems/pslog"
)

// StartError reports a child that could not be spawned.
type StartError struct {
	Command string
	Args    string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("%s: %v", schema.StartFailureMessage(e.Command, e.Args), e.Err)
}

func (e *StartError) Unwrap() []error {
	return []error{schema.ErrStartFailed, e.Err}
}

// SessionOptions describes one child invocation.
type SessionOptions struct {
	Command      string
	Args         string
	Dir          string
	Shell        []string
	Encoding     encoding.Encoding
	DrainTimeout time.Duration
	Platform     Platform
	// Stdout and Stderr receive decoded text on pump goroutines.
	Stdout func(string)
	Stderr func(string)
	// OnExit runs once on the waiter goroutine after output is drained.
	OnExit func(ExitResult)
}

// ExitResult describes how a child ended.
type ExitResult struct {
	ExitCode int
	Signal   string
	Duration time.Duration
}

// Session owns one child process and its redirected stdio.
// The pipes are non-nil only while the session is running.
type Session struct {
	id       string
	cmd      *exec.Cmd
	platform Platform
	enc      encoding.Encoding
	term     string
	drain    time.Duration
	log      pslog.Logger
	started  time.Time

	mu     sync.Mutex
	stdin  *os.File
	stdout *os.File
	stderr *os.File

	running atomic.Bool
	cancel  context.CancelFunc
	pumps   conc.WaitGroup
	once    sync.Once
	done    chan struct{}
	result  ExitResult
}

// StartSession spawns the child with all stdio redirected and starts both pumps.
func StartSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	platform := opts.Platform
	if platform == nil {
		platform = DefaultPlatform()
	}
	enc := opts.Encoding
	if enc == nil {
		enc = textunicode.UTF8
	}
	drain := opts.DrainTimeout
	if drain <= 0 {
		drain = schema.DefaultDrainTimeout
	}
	id := uuid.NewString()
	log := pslog.Ctx(ctx).With("process", id)

	fail := func(err error) (*Session, error) {
		log.Warn("process start failed", "command", opts.Command, "args", opts.Args, "err", err)
		return nil, &StartError{Command: opts.Command, Args: opts.Args, Err: err}
	}

	cmd, err := platform.Command(opts.Command, opts.Args, opts.Shell)
	if err != nil {
		return fail(err)
	}
	cmd.Dir = opts.Dir
	platform.SuppressWindowing(cmd)

	var files []*os.File
	pipe := func() (*os.File, *os.File, error) {
		r, w, err := os.Pipe()
		if err == nil {
			files = append(files, r, w)
		}
		return r, w, err
	}
	stdinR, stdinW, err := pipe()
	if err != nil {
		return fail(err)
	}
	stdoutR, stdoutW, err := pipe()
	if err != nil {
		closeFiles(files...)
		return fail(err)
	}
	stderrR, stderrW, err := pipe()
	if err != nil {
		closeFiles(files...)
		return fail(err)
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeFiles(files...)
		return fail(err)
	}
	closeFiles(stdinR, stdoutW, stderrW)

	s := &Session{
		id:       id,
		cmd:      cmd,
		platform: platform,
		enc:      enc,
		term:     platform.LineTerminator(),
		drain:    drain,
		log:      log,
		started:  time.Now(),
		stdin:    stdinW,
		stdout:   stdoutR,
		stderr:   stderrR,
		done:     make(chan struct{}),
	}
	s.running.Store(true)
	log.Info("process start", "command", opts.Command, "args", opts.Args, "dir", opts.Dir, "pid", cmd.Process.Pid)

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.pumps.Go(func() { NewPump(StreamStdout, stdoutR, enc, opts.Stdout).Run(pumpCtx) })
	s.pumps.Go(func() { NewPump(StreamStderr, stderrR, enc, opts.Stderr).Run(pumpCtx) })
	go s.wait(opts.OnExit)
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// IsRunning reports whether the child exists and has not been reaped.
func (s *Session) IsRunning() bool {
	return s != nil && s.running.Load()
}

// Done is closed after the exit notification has run.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the exit result once Done is closed.
func (s *Session) Result() ExitResult {
	<-s.done
	return s.result
}

// WriteLine writes text and the platform line terminator to the child's stdin.
// It is a no-op once the session has ended.
func (s *Session) WriteLine(text string) error {
	if !s.IsRunning() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return nil
	}
	data, err := s.enc.NewEncoder().String(text + s.term)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	if _, err := io.WriteString(s.stdin, data); err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	return nil
}

// RequestCancel interrupts the child. It never blocks and ignores ended sessions.
func (s *Session) RequestCancel() error {
	if !s.IsRunning() {
		return nil
	}
	s.log.Info("process interrupt", "pid", s.cmd.Process.Pid)
	if err := s.platform.RequestCancel(s.cmd.Process); err != nil {
		return fmt.Errorf("interrupt process: %w", err)
	}
	return nil
}

// Kill force-terminates the child.
func (s *Session) Kill() error {
	if !s.IsRunning() {
		return nil
	}
	s.log.Warn("process kill", "pid", s.cmd.Process.Pid)
	if err := s.platform.Kill(s.cmd.Process); err != nil {
		return fmt.Errorf("kill process: %w", err)
	}
	return nil
}

func (s *Session) wait(onExit func(ExitResult)) {
	err := s.cmd.Wait()
	res := ExitResult{Duration: time.Since(s.started)}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				res.Signal = status.Signal().String()
			}
		} else {
			res.ExitCode = -1
			s.log.Error("process wait failed", "err", err)
		}
	}
	s.finish(res, onExit)
}

// finish drains both pumps, bounded by the drain timeout, releases the pipes
// and fires onExit. Readers still parked after the timeout (a grandchild
// holding the pipe open) are unblocked by closing the read ends.
func (s *Session) finish(res ExitResult, onExit func(ExitResult)) {
	s.once.Do(func() {
		drained := make(chan struct{})
		go func() {
			s.pumps.Wait()
			close(drained)
		}()
		timer := time.NewTimer(s.drain)
		defer timer.Stop()
		select {
		case <-drained:
		case <-timer.C:
			s.log.Warn("process output drain timed out", "timeout_ms", s.drain.Milliseconds())
			s.cancel()
			s.mu.Lock()
			closeFiles(s.stdout, s.stderr)
			s.mu.Unlock()
			<-drained
		}
		s.cancel()

		s.mu.Lock()
		closeFiles(s.stdin, s.stdout, s.stderr)
		s.stdin, s.stdout, s.stderr = nil, nil, nil
		s.mu.Unlock()
		s.running.Store(false)
		s.result = res

		fields := []any{"exit_code", res.ExitCode, "duration_ms", res.Duration.Milliseconds()}
		if res.Signal != "" {
			fields = append(fields, "signal", res.Signal)
		}
		s.log.Info("process exit", fields...)
		close(s.done)
		if onExit != nil {
			onExit(res)
		}
	})
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// ResolveEncoding maps a WHATWG or IANA encoding name to an encoding.
func ResolveEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return textunicode.UTF8, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %s", schema.ErrInvalidEncoding, name)
	}
	return enc, nil
}
