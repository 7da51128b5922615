package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultTimeout bounds a single invocation when no timeout is configured.
	DefaultTimeout = 10 * time.Second

	// waitDelay is how long Wait keeps reading output after the process group
	// has been killed, in case a grandchild still holds the pipe open.
	waitDelay = 2 * time.Second
)

// Result is the captured outcome of a command that ran to completion.
type Result struct {
	// Output is everything the command wrote to stdout.
	Output string

	// Stderr is kept apart so diagnostics never land between status lines.
	Stderr string

	// ExitCode is the process exit status (-1 if killed by a signal).
	ExitCode int

	// Duration is the wall time between spawn and exit.
	Duration time.Duration
}

// Logger defines the logging interface for the invoker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Invoker runs one-shot commands with a fixed timeout.
// It holds no per-call state and is safe for concurrent use.
type Invoker struct {
	timeout time.Duration
	logger  Logger
}

// NewInvoker creates an invoker. A zero or negative timeout selects DefaultTimeout.
func NewInvoker(timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{
		timeout: timeout,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the invoker.
func (i *Invoker) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	i.logger = logger
}

// Timeout returns the per-call timeout.
func (i *Invoker) Timeout() time.Duration {
	return i.timeout
}

// Run spawns binary with args, waits for it to exit and returns its output.
// Anything written to stderr is logged at warn level and returned separately.
//
// The returned error is always an *Error:
//   - KindSpawn if the process could not be started
//   - KindTimeout if it was killed because the timeout expired or ctx was cancelled
//
// A non-zero exit status is not an error; check Result.ExitCode.
func (i *Invoker) Run(ctx context.Context, binary string, args ...string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, args...) //nolint:gosec // binary comes from validated config

	// Own process group so a timeout also takes down anything the binary forked
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	i.logger.Debug("command started",
		"binary", binary,
		"args", args,
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, &Error{Kind: KindSpawn, Binary: binary, Err: err}
	}

	waitErr := cmd.Wait()
	result := Result{
		Output:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if stderrText := strings.TrimSpace(result.Stderr); stderrText != "" {
		i.logger.Warn("command wrote to stderr",
			"binary", binary,
			"stderr", stderrText,
		)
	}

	if waitErr != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			i.logger.Warn("command killed",
				"binary", binary,
				"timeout", i.timeout,
				"reason", ctxErr,
			)
			return result, &Error{Kind: KindTimeout, Binary: binary, Err: ctxErr}
		}

		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			// Non-zero exit, reported through ExitCode only
		case errors.Is(waitErr, exec.ErrWaitDelay):
			i.logger.Warn("command output pipe held open after exit", "binary", binary)
		default:
			return result, &Error{Kind: KindSpawn, Binary: binary, Err: waitErr}
		}
	}

	i.logger.Debug("command exited",
		"binary", binary,
		"exit_code", result.ExitCode,
		"duration", result.Duration,
	)

	return result, nil
}
