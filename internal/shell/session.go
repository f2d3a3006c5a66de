package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/relayshell/internal/command"
)

// timeoutNotice is sent before an idle session is closed.
const timeoutNotice = "\nConnection timed out. Closing.\n"

// defaultHistorySize caps the history when Config.HistorySize is unset.
const defaultHistorySize = 50

// EndReason says why a session finished.
type EndReason int

const (
	EndPeerClosed EndReason = iota
	EndTimeout
	EndReboot
	EndInterrupted
	EndCancelled
	EndError
)

func (r EndReason) String() string {
	switch r {
	case EndPeerClosed:
		return "peer_closed"
	case EndTimeout:
		return "timeout"
	case EndReboot:
		return "reboot"
	case EndInterrupted:
		return "interrupted"
	case EndCancelled:
		return "cancelled"
	case EndError:
		return "error"
	default:
		return fmt.Sprintf("EndReason(%d)", int(r))
	}
}

// Dispatcher produces the banner and executes submitted lines.
type Dispatcher interface {
	Banner(ctx context.Context) string
	Dispatch(ctx context.Context, cmd string) command.Reply
}

// Completer lists the commands starting with a prefix.
type Completer interface {
	Complete(prefix string) []string
}

// Clock supplies the time used for the idle deadline.
type Clock interface {
	Now() time.Time
}

// Config contains session settings.
type Config struct {
	Prompt       string
	IdleTimeout  time.Duration
	PollInterval time.Duration
	HistorySize  int
}

// Session is the state of one connection. It is used by a single goroutine
// and discarded when Run returns.
type Session struct {
	conn       Conn
	cfg        Config
	completer  Completer
	dispatcher Dispatcher
	clock      Clock

	start time.Time
	editor
}

// NewSession creates a Session over conn.
func NewSession(conn Conn, cfg Config, completer Completer, dispatcher Dispatcher, clock Clock) *Session {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	return &Session{
		conn:       conn,
		cfg:        cfg,
		completer:  completer,
		dispatcher: dispatcher,
		clock:      clock,
	}
}

// Run sends the banner and prompt, then processes input until the session ends.
//
// The idle deadline is measured from the start of the session, not from the
// last keystroke.
//
// Returns:
//   - EndReason: Why the session finished
//   - error: The I/O error for EndError, otherwise nil
func (s *Session) Run(ctx context.Context) (EndReason, error) {
	s.start = s.clock.Now()

	if err := s.write(s.dispatcher.Banner(ctx) + s.cfg.Prompt); err != nil {
		return EndError, err
	}

	for {
		if ctx.Err() != nil {
			return EndCancelled, nil
		}
		if s.clock.Now().Sub(s.start) >= s.cfg.IdleTimeout {
			if err := s.write(timeoutNotice); err != nil {
				return EndError, err
			}
			return EndTimeout, nil
		}

		b, err := s.conn.NextByte(s.cfg.PollInterval)
		switch {
		case errors.Is(err, ErrNoData):
			continue
		case errors.Is(err, io.EOF):
			return EndPeerClosed, nil
		case err != nil:
			return EndError, fmt.Errorf("reading input: %w", err)
		}

		reason, done, err := s.handleByte(ctx, b)
		if err != nil {
			return EndError, fmt.Errorf("writing output: %w", err)
		}
		if done {
			return reason, nil
		}
	}
}

func (s *Session) write(text string) error {
	if text == "" {
		return nil
	}
	_, err := io.WriteString(s.conn, text)
	return err
}

// submit handles a newline: dispatch a non-empty line, then re-prompt.
func (s *Session) submit(ctx context.Context) (EndReason, bool, error) {
	line := s.takeLine()

	if err := s.write("\n"); err != nil {
		return EndError, true, err
	}

	if line != "" {
		s.remember(line, s.cfg.HistorySize)
		reply := s.dispatcher.Dispatch(ctx, line)
		if err := s.write(reply.Text); err != nil {
			return EndError, true, err
		}
		if reply.Reboot {
			return EndReboot, true, nil
		}
	}

	return 0, false, s.write(s.cfg.Prompt)
}
