package shell

import (
	"context"
	"slices"
	"strings"
)

// maxLineLength caps the input buffer; further printable bytes are dropped.
const maxLineLength = 256

// Control bytes.
const (
	keyInterrupt = 0x03
	keyEOF       = 0x04
	keyBackspace = 0x08
	keyTab       = '\t'
	keyNewline   = '\n'
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

// Telnet command bytes (RFC 854).
const (
	telnetSE   = 240
	telnetIP   = 244
	telnetSB   = 250
	telnetWILL = 251
	telnetDONT = 254
	telnetIAC  = 255
)

// clearLine returns to column 0 and erases the line.
const clearLine = "\r\x1b[K"

type escState int

const (
	escNone escState = iota
	escStart
	escCSI
)

type iacState int

const (
	iacNone iacState = iota
	iacCommand
	iacOption
	iacSub
	iacSubIAC
)

// editor is the line buffer and the input decoder state of a Session.
type editor struct {
	buf    []byte
	cursor int

	history []string
	// histPos is len(history) when not browsing.
	histPos int

	// completing is set while consecutive tabs cycle over the matches of
	// compPrefix. Any other key clears it.
	completing bool
	compPrefix string
	compIndex  int

	esc escState
	iac iacState
}

func (e *editor) resetCompletion() {
	e.completing = false
	e.compPrefix = ""
	e.compIndex = 0
}

// takeLine returns the trimmed buffer and clears the buffer, cursor and completion cycle.
func (e *editor) takeLine() string {
	line := strings.TrimSpace(string(e.buf))
	e.buf = e.buf[:0]
	e.cursor = 0
	e.resetCompletion()
	return line
}

// remember appends line to the history and stops browsing.
func (e *editor) remember(line string, limit int) {
	e.history = append(e.history, line)
	if len(e.history) > limit {
		e.history = e.history[len(e.history)-limit:]
	}
	e.histPos = len(e.history)
}

// handleByte feeds one input byte through the telnet and escape decoders
// and then the editor.
func (s *Session) handleByte(ctx context.Context, b byte) (EndReason, bool, error) {
	if s.iac != iacNone || b == telnetIAC {
		return s.handleTelnet(b)
	}
	if s.esc == escStart && b != '[' && b != 'O' {
		// A lone ESC is dropped; b is ordinary input.
		s.esc = escNone
	}
	if s.esc != escNone {
		return 0, false, s.handleEscape(b)
	}

	switch {
	case b == keyNewline:
		return s.submit(ctx)
	case b == keyTab:
		return 0, false, s.complete()
	case b == keyDelete || b == keyBackspace:
		return 0, false, s.backspace()
	case b == keyEscape:
		s.esc = escStart
	case b == keyInterrupt || b == keyEOF:
		return EndInterrupted, true, nil
	case b >= 0x20 && b < 0x7f:
		return 0, false, s.insert(b)
	}
	return 0, false, nil
}

// handleTelnet skips IAC command sequences. IAC IP ends the session like ctrl+c.
func (s *Session) handleTelnet(b byte) (EndReason, bool, error) {
	switch s.iac {
	case iacNone:
		s.iac = iacCommand
	case iacCommand:
		switch {
		case b >= telnetWILL && b <= telnetDONT:
			s.iac = iacOption
		case b == telnetSB:
			s.iac = iacSub
		case b == telnetIP:
			s.iac = iacNone
			return EndInterrupted, true, nil
		default:
			s.iac = iacNone
		}
	case iacOption:
		s.iac = iacNone
	case iacSub:
		if b == telnetIAC {
			s.iac = iacSubIAC
		}
	case iacSubIAC:
		if b == telnetSE {
			s.iac = iacNone
		} else {
			s.iac = iacSub
		}
	}
	return 0, false, nil
}

// handleEscape decodes ESC [ x and ESC O x sequences.
func (s *Session) handleEscape(b byte) error {
	switch s.esc {
	case escStart:
		s.esc = escCSI
		return nil
	case escCSI:
		// Parameter and intermediate bytes precede the final byte.
		if b < 0x40 || b > 0x7e {
			return nil
		}
		s.esc = escNone
	}

	s.resetCompletion()
	switch b {
	case 'A':
		return s.historyPrev()
	case 'B':
		return s.historyNext()
	case 'C':
		return s.cursorRight()
	case 'D':
		return s.cursorLeft()
	}
	return nil
}

func (s *Session) insert(b byte) error {
	if len(s.buf) >= maxLineLength {
		return nil
	}
	s.resetCompletion()

	s.buf = slices.Insert(s.buf, s.cursor, b)
	s.cursor++

	if s.cursor == len(s.buf) {
		return s.write(string(b))
	}
	tail := string(s.buf[s.cursor:])
	return s.write(string(b) + tail + strings.Repeat("\b", len(tail)))
}

func (s *Session) backspace() error {
	if s.cursor == 0 {
		return nil
	}
	s.resetCompletion()

	s.buf = slices.Delete(s.buf, s.cursor-1, s.cursor)
	s.cursor--

	if s.cursor == len(s.buf) {
		return s.write("\b \b")
	}
	tail := string(s.buf[s.cursor:])
	return s.write("\b" + tail + " " + strings.Repeat("\b", len(tail)+1))
}

// complete replaces the buffer with the next match of the prefix the cycle
// started from and echoes the match list.
func (s *Session) complete() error {
	if !s.completing {
		s.compPrefix = string(s.buf)
		s.compIndex = 0
	}

	matches := s.completer.Complete(s.compPrefix)
	if len(matches) == 0 {
		return nil
	}

	match := matches[s.compIndex%len(matches)]
	s.compIndex = (s.compIndex + 1) % len(matches)
	s.completing = true

	s.buf = append(s.buf[:0], match...)
	s.cursor = len(s.buf)

	return s.write("\n" + strings.Join(matches, "  ") + "\n" + s.cfg.Prompt + match)
}

func (s *Session) historyPrev() error {
	if s.histPos == 0 {
		return nil
	}
	s.histPos--
	return s.replaceLine(s.history[s.histPos])
}

func (s *Session) historyNext() error {
	if s.histPos >= len(s.history) {
		return nil
	}
	s.histPos++
	if s.histPos == len(s.history) {
		return s.replaceLine("")
	}
	return s.replaceLine(s.history[s.histPos])
}

func (s *Session) replaceLine(line string) error {
	s.buf = append(s.buf[:0], line...)
	s.cursor = len(s.buf)
	return s.write(clearLine + s.cfg.Prompt + line)
}

func (s *Session) cursorLeft() error {
	if s.cursor == 0 {
		return nil
	}
	s.cursor--
	return s.write("\b")
}

func (s *Session) cursorRight() error {
	if s.cursor == len(s.buf) {
		return nil
	}
	s.cursor++
	return s.write(string(s.buf[s.cursor-1]))
}
