// Package netcheck decides whether the controller's network link is usable
// and tries to bring it back when it is not.
package netcheck

import (
	"context"
	"net"
	"time"

	"github.com/nerrad567/relayshell/internal/process"
)

// pollInterval is how often the probe is retried while waiting for a
// reconnect to take effect.
const pollInterval = time.Second

// Logger defines the logging interface for the checker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds checker settings.
type Config struct {
	// ProbeAddress is dialled over TCP. Empty means the link is always
	// considered up.
	ProbeAddress string

	// ProbeTimeout bounds a single dial.
	ProbeTimeout time.Duration

	// ReconnectCommand is run when the probe fails. Empty skips the run
	// and only waits for the probe.
	ReconnectCommand []string

	// ReconnectTimeout bounds the wait for the probe to succeed after
	// the command.
	ReconnectTimeout time.Duration
}

// Checker probes reachability and drives reconnection.
type Checker struct {
	cfg    Config
	logger Logger
	dialer net.Dialer
	run    func(ctx context.Context, c process.Command, logger process.Logger) error
}

// New creates a Checker.
func New(cfg Config) *Checker {
	return &Checker{
		cfg:    cfg,
		logger: noopLogger{},
		run:    process.Run,
	}
}

// SetLogger sets the logger for the checker.
func (c *Checker) SetLogger(logger Logger) {
	c.logger = logger
}

// IsConnected reports whether the probe address accepts a TCP connection.
func (c *Checker) IsConnected(ctx context.Context) bool {
	if c.cfg.ProbeAddress == "" {
		return true
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.cfg.ProbeAddress)
	if err != nil {
		c.logger.Debug("network probe failed", "address", c.cfg.ProbeAddress, "error", err)
		return false
	}
	conn.Close() //nolint:errcheck // Probe connection only
	return true
}

// Reconnect runs the reconnect command and waits for the probe to pass.
// It returns true once the link is back and false when the wait times out
// or ctx is cancelled.
func (c *Checker) Reconnect(ctx context.Context) bool {
	c.logger.Warn("network unreachable, reconnecting", "address", c.cfg.ProbeAddress)

	if len(c.cfg.ReconnectCommand) > 0 {
		cmd := process.FromArgv("reconnect", c.cfg.ReconnectCommand, c.cfg.ReconnectTimeout)
		if err := c.run(ctx, cmd, c.logger); err != nil {
			c.logger.Warn("reconnect command failed", "error", err)
		}
	}

	deadline := time.Now().Add(c.cfg.ReconnectTimeout)
	for {
		if c.IsConnected(ctx) {
			c.logger.Info("network reconnected", "address", c.cfg.ProbeAddress)
			return true
		}
		if time.Now().Add(pollInterval).After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}

	c.logger.Warn("network still unreachable", "address", c.cfg.ProbeAddress, "waited", c.cfg.ReconnectTimeout)
	return false
}

// Ensure checks the link and reconnects when it is down. It returns
// whether the link is up afterwards.
func (c *Checker) Ensure(ctx context.Context) bool {
	if c.IsConnected(ctx) {
		return true
	}
	return c.Reconnect(ctx)
}
