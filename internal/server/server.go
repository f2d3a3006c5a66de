package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nerrad567/relayshell/internal/infrastructure/logging"
	"github.com/nerrad567/relayshell/internal/shell"
)

// acceptRetryDelay spaces out retries after a non-timeout accept error.
const acceptRetryDelay = 100 * time.Millisecond

// Scheduler evaluates time-based automation.
type Scheduler interface {
	Run(now time.Time) error
}

// Network keeps the link up. Ensure returns whether it is usable.
type Network interface {
	Ensure(ctx context.Context) bool
}

// Task is periodic work polled on every Idle pass.
type Task interface {
	Name() string
	RunIfDue(ctx context.Context, now time.Time) (bool, error)
}

// SessionRecorder is told when sessions open and close.
type SessionRecorder interface {
	SessionOpened(ctx context.Context, remote string)
	SessionClosed(ctx context.Context, remote, reason string, duration time.Duration)
}

// Clock supplies local site time.
type Clock interface {
	Now() time.Time
}

// Config contains accept loop settings.
type Config struct {
	// Address is the host:port to listen on.
	Address string

	// AcceptTimeout bounds each wait for a peer.
	AcceptTimeout time.Duration

	// Session configures each shell session.
	Session shell.Config
}

// Deps holds the collaborators of the accept loop.
type Deps struct {
	Config     Config
	Logger     *logging.Logger
	Dispatcher shell.Dispatcher
	Completer  shell.Completer
	Scheduler  Scheduler
	Clock      Clock
	Network    Network         // optional
	Tasks      []Task          // optional
	Sessions   SessionRecorder // optional
}

// Server is the connection lifecycle manager.
type Server struct {
	cfg        Config
	logger     *logging.Logger
	dispatcher shell.Dispatcher
	completer  shell.Completer
	scheduler  Scheduler
	clock      Clock
	network    Network
	tasks      []Task
	sessions   SessionRecorder
}

// deadlineListener is a listener whose Accept can be bounded.
// *net.TCPListener satisfies it.
type deadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// New creates a Server with the given dependencies.
//
// Parameters:
//   - deps: Required collaborators; Network and Tasks may be empty
//
// Returns:
//   - *Server: Server ready to Run or Serve
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Dispatcher == nil:
		return nil, fmt.Errorf("dispatcher is required")
	case deps.Completer == nil:
		return nil, fmt.Errorf("completer is required")
	case deps.Scheduler == nil:
		return nil, fmt.Errorf("scheduler is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	case deps.Config.AcceptTimeout <= 0:
		return nil, fmt.Errorf("accept timeout must be positive")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger.With("component", "server"),
		dispatcher: deps.Dispatcher,
		completer:  deps.Completer,
		scheduler:  deps.Scheduler,
		clock:      deps.Clock,
		network:    deps.Network,
		tasks:      deps.Tasks,
		sessions:   deps.Sessions,
	}, nil
}

// Run listens on the configured address and serves until ctx is cancelled
// or a reboot is requested.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Address, err)
	}
	defer ln.Close() //nolint:errcheck // Also closed by Serve on cancel

	s.logger.Info("shell listening", "address", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln.
//
// Accept timeouts and transient accept errors never end the loop. It
// returns nil when ctx is cancelled, ErrRebootRequested after a reboot
// command, or an error if ln is closed from elsewhere.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	dl, ok := ln.(deadlineListener)
	if !ok {
		return ErrNoDeadline
	}

	stop := context.AfterFunc(ctx, func() {
		ln.Close() //nolint:errcheck // Unblocks Accept on shutdown
	})
	defer stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.idle(ctx)

		conn, err := s.accept(dl)
		if err != nil {
			switch {
			case isTimeout(err):
				continue
			case errors.Is(err, net.ErrClosed):
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accepting: %w", err)
			default:
				s.logger.Warn("accept failed", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(acceptRetryDelay):
				}
				continue
			}
		}

		if s.serveConn(ctx, conn) {
			return ErrRebootRequested
		}
	}
}

// idle runs the between-connection checks.
func (s *Server) idle(ctx context.Context) {
	if s.network != nil && !s.network.Ensure(ctx) {
		s.logger.Warn("network unreachable, continuing to listen")
	}

	now := s.clock.Now()
	for _, t := range s.tasks {
		ran, err := t.RunIfDue(ctx, now)
		switch {
		case err != nil:
			s.logger.Warn("periodic task failed", "task", t.Name(), "error", err)
		case ran:
			s.logger.Info("periodic task completed", "task", t.Name())
		}
	}

	s.runScheduler(now)
}

func (s *Server) runScheduler(now time.Time) {
	if err := s.scheduler.Run(now); err != nil {
		s.logger.Error("schedule evaluation failed", "error", err)
	}
}

func (s *Server) accept(ln deadlineListener) (net.Conn, error) {
	if err := ln.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil {
		return nil, err
	}
	return ln.Accept()
}

// serveConn runs one session to completion and reports whether it asked
// for a reboot.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) bool {
	defer conn.Close() //nolint:errcheck // Session is over either way

	remote := conn.RemoteAddr().String()
	start := time.Now()
	s.logger.Info("session opened", "remote", remote)
	if s.sessions != nil {
		s.sessions.SessionOpened(ctx, remote)
	}

	s.runScheduler(s.clock.Now())

	session := shell.NewSession(shell.WrapConn(conn), s.cfg.Session, s.completer, s.dispatcher, s.clock)
	reason, err := session.Run(ctx)
	elapsed := time.Since(start)

	if s.sessions != nil {
		// Record the close even when shutdown cancelled the session
		s.sessions.SessionClosed(context.WithoutCancel(ctx), remote, reason.String(), elapsed)
	}

	attrs := []any{"remote", remote, "reason", reason.String(), "duration", elapsed.Round(time.Millisecond)}
	if err != nil {
		attrs = append(attrs, "error", err)
		s.logger.Warn("session ended with error", attrs...)
	} else {
		s.logger.Info("session closed", attrs...)
	}

	return reason == shell.EndReboot
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
