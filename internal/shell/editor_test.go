package shell

import (
	"context"
	"testing"
)

func TestTabCompletionCycles(t *testing.T) {
	s, conn, _ := newTestSession("", true)
	feed(t, s, "F")

	want := []string{"fans on", "fans off", "fans on", "fans off"}
	for i, w := range want {
		conn.out.Reset()
		feed(t, s, "\t")
		if got := string(s.buf); got != w {
			t.Errorf("tab %d: buffer = %q, want %q", i+1, got, w)
		}
		if s.cursor != len(s.buf) {
			t.Errorf("tab %d: cursor = %d, want end", i+1, s.cursor)
		}
		if echo := conn.out.String(); echo != "\nfans on  fans off\n>>> "+w {
			t.Errorf("tab %d: echo = %q", i+1, echo)
		}
	}
}

func TestTabCompletionSingleMatch(t *testing.T) {
	s, _, _ := newTestSession("", true)
	feed(t, s, "st\t\t")

	if got := string(s.buf); got != "status" {
		t.Errorf("buffer = %q, want status", got)
	}
}

func TestTabCompletionNoMatch(t *testing.T) {
	s, conn, _ := newTestSession("", true)
	feed(t, s, "xyz")
	conn.out.Reset()

	feed(t, s, "\t")

	if string(s.buf) != "xyz" || conn.out.Len() != 0 {
		t.Errorf("no-match tab should be a no-op, buffer = %q echo = %q", s.buf, conn.out.String())
	}
}

func TestTabCompletionResetByEdit(t *testing.T) {
	s, _, _ := newTestSession("", true)
	feed(t, s, "t\t")
	if string(s.buf) != "toggle schedule" {
		t.Fatalf("buffer = %q", s.buf)
	}

	// Erasing starts a new cycle from the edited buffer
	feed(t, s, "\x7f\x7f\x7f\x7f\x7f\x7f\x7f\x7f")
	feed(t, s, "\t")
	if got := string(s.buf); got != "toggle schedule" {
		t.Errorf("buffer = %q, want first match of the new prefix", got)
	}
}

func TestBackspace(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantBuf    string
		wantCursor int
		wantEcho   string
	}{
		{
			name:       "empty buffer",
			input:      "\x7f",
			wantBuf:    "",
			wantCursor: 0,
			wantEcho:   "",
		},
		{
			name:       "end of line",
			input:      "led\x7f",
			wantBuf:    "le",
			wantCursor: 2,
			wantEcho:   "led\b \b",
		},
		{
			name:       "ctrl+h",
			input:      "led\x08",
			wantBuf:    "le",
			wantCursor: 2,
			wantEcho:   "led\b \b",
		},
		{
			name:       "mid line",
			input:      "lxed\x1b[D\x1b[D\x7f",
			wantBuf:    "led",
			wantCursor: 1,
			wantEcho:   "lxed\b\b" + "\bed \b\b\b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, conn, _ := newTestSession("", true)
			feed(t, s, tt.input)

			if string(s.buf) != tt.wantBuf || s.cursor != tt.wantCursor {
				t.Errorf("buffer = %q cursor = %d, want %q %d", s.buf, s.cursor, tt.wantBuf, tt.wantCursor)
			}
			if conn.out.String() != tt.wantEcho {
				t.Errorf("echo = %q, want %q", conn.out.String(), tt.wantEcho)
			}
		})
	}
}

func TestMidLineInsert(t *testing.T) {
	s, conn, _ := newTestSession("", true)
	feed(t, s, "fns on")
	feed(t, s, "\x1b[D\x1b[D\x1b[D\x1b[D\x1b[D")
	conn.out.Reset()

	feed(t, s, "a")

	if got := string(s.buf); got != "fans on" {
		t.Errorf("buffer = %q, want %q", got, "fans on")
	}
	if s.cursor != 2 {
		t.Errorf("cursor = %d, want 2", s.cursor)
	}
	if echo := conn.out.String(); echo != "ans on\b\b\b\b\b" {
		t.Errorf("echo = %q", echo)
	}
}

func TestCursorBounds(t *testing.T) {
	s, conn, _ := newTestSession("", true)

	feed(t, s, "\x1b[D\x1b[C")
	if s.cursor != 0 || conn.out.Len() != 0 {
		t.Errorf("arrows on empty line: cursor = %d echo = %q", s.cursor, conn.out.String())
	}

	feed(t, s, "ab\x1b[D\x1b[C\x1b[C")
	if s.cursor != 2 {
		t.Errorf("cursor = %d, want 2", s.cursor)
	}
}

func TestHistory(t *testing.T) {
	s, conn, disp := newTestSession("", true)
	ctx := context.Background()

	feed(t, s, "\x1b[A")
	if len(s.buf) != 0 || conn.out.Len() != 0 {
		t.Fatal("up on empty history should be a no-op")
	}

	feed(t, s, "led on\nstatus\n")
	conn.out.Reset()

	feed(t, s, "\x1b[A")
	if string(s.buf) != "status" {
		t.Errorf("up: buffer = %q", s.buf)
	}
	if conn.out.String() != "\r\x1b[K>>> status" {
		t.Errorf("redraw = %q", conn.out.String())
	}

	feed(t, s, "\x1b[A\x1b[A")
	if string(s.buf) != "led on" {
		t.Errorf("up at oldest: buffer = %q", s.buf)
	}

	feed(t, s, "\x1b[B\x1b[B")
	if len(s.buf) != 0 {
		t.Errorf("down past newest: buffer = %q", s.buf)
	}

	feed(t, s, "\x1b[A")
	if _, _, err := s.handleByte(ctx, '\n'); err != nil {
		t.Fatal(err)
	}
	if last := disp.lines[len(disp.lines)-1]; last != "status" {
		t.Errorf("recalled line dispatched as %q", last)
	}
}

func TestHistoryLimit(t *testing.T) {
	s, _, _ := newTestSession("", true)
	for range defaultHistorySize + 5 {
		feed(t, s, "status\n")
	}
	if len(s.history) != defaultHistorySize {
		t.Errorf("history length = %d, want %d", len(s.history), defaultHistorySize)
	}
}

func TestIgnoredBytes(t *testing.T) {
	s, conn, _ := newTestSession("", true)

	// CR, NUL, telnet negotiation and subnegotiation, unknown escape
	feed(t, s, "\r\x00\xff\xfb\x01\xff\xfa\x18\x01\xff\xf0\x1b[5~")

	if len(s.buf) != 0 || conn.out.Len() != 0 {
		t.Errorf("buffer = %q echo = %q, want both empty", s.buf, conn.out.String())
	}

	feed(t, s, "ok")
	if string(s.buf) != "ok" {
		t.Errorf("decoder did not recover, buffer = %q", s.buf)
	}
}

func TestLoneEscapeKeepsNextByte(t *testing.T) {
	s, conn, _ := newTestSession("", true)

	feed(t, s, "\x1bl\x1b\x1b[Ded")
	if got := string(s.buf); got != "edl" {
		t.Errorf("buffer = %q, want %q", got, "edl")
	}
	if s.cursor != 2 {
		t.Errorf("cursor = %d, want 2", s.cursor)
	}
	if conn.out.Len() == 0 {
		t.Error("expected the typed bytes to be echoed")
	}
}

func TestMaxLineLength(t *testing.T) {
	s, _, _ := newTestSession("", true)
	for range maxLineLength + 10 {
		feed(t, s, "a")
	}
	if len(s.buf) != maxLineLength {
		t.Errorf("buffer length = %d, want %d", len(s.buf), maxLineLength)
	}
}
