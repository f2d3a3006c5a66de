package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// defaultTimeout bounds a command that does not set Timeout.
const defaultTimeout = 30 * time.Second

// ErrNoBinary is returned when a Command has no binary to run.
var ErrNoBinary = errors.New("process: no binary")

// Command describes a helper command to run to completion.
type Command struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the executable name or path, resolved through PATH.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Timeout bounds the whole run. Zero means defaultTimeout.
	Timeout time.Duration
}

// FromArgv builds a Command from an argv slice such as a config entry.
func FromArgv(name string, argv []string, timeout time.Duration) Command {
	cmd := Command{Name: name, Timeout: timeout}
	if len(argv) > 0 {
		cmd.Binary = argv[0]
		cmd.Args = argv[1:]
	}
	return cmd
}

// Logger defines the logging interface for command runs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Run starts c and waits for it to exit.
//
// The process is placed in its own process group. When the timeout
// expires or ctx is cancelled the whole group is killed.
//
// Parameters:
//   - ctx: Cancels the run
//   - c: Command to run
//   - logger: Receives lifecycle and output logs; may be nil
//
// Returns:
//   - error: nil on a zero exit status
func Run(ctx context.Context, c Command, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}
	if c.Binary == "" {
		return ErrNoBinary
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Binary, c.Args...) //nolint:gosec // Command comes from operator config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative PID signals the whole group
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("running command", "name", c.Name, "binary", c.Binary, "args", c.Args)
	start := time.Now()

	err := cmd.Run()

	logOutput(logger, c.Name, "stdout", stdout.String())
	logOutput(logger, c.Name, "stderr", stderr.String())

	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		logger.Warn("command failed", "name", c.Name, "error", err, "elapsed", time.Since(start))
		return fmt.Errorf("running %s: %w", c.Name, err)
	}

	logger.Debug("command finished", "name", c.Name, "elapsed", time.Since(start))
	return nil
}

// logOutput logs each non-empty line of a captured stream.
func logOutput(logger Logger, name, stream, output string) {
	for line := range strings.Lines(output) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		logger.Debug("process output", "name", name, "stream", stream, "output", line)
	}
}
