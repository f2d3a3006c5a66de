package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/relayshell/internal/command"
	"github.com/nerrad567/relayshell/internal/device"
	"github.com/nerrad567/relayshell/internal/infrastructure/logging"
	"github.com/nerrad567/relayshell/internal/shell"
)

const prompt = ">>> "

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type countingScheduler struct {
	runs atomic.Int32
	err  error
}

func (s *countingScheduler) Run(time.Time) error {
	s.runs.Add(1)
	return s.err
}

type fakeNetwork struct {
	checks atomic.Int32
	up     bool
}

func (n *fakeNetwork) Ensure(context.Context) bool {
	n.checks.Add(1)
	return n.up
}

type fakeTask struct {
	runs atomic.Int32
	err  error
}

func (*fakeTask) Name() string { return "resync" }

func (t *fakeTask) RunIfDue(context.Context, time.Time) (bool, error) {
	t.runs.Add(1)
	return true, t.err
}

type harness struct {
	srv       *Server
	state     *device.State
	scheduler *countingScheduler
	ln        net.Listener
}

func newHarness(t *testing.T, network Network, tasks ...Task) *harness {
	t.Helper()

	state := device.NewState(device.NewMemoryGPIO(device.DefaultOutputs), device.DefaultOutputs)
	clk := fixedClock{time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)}
	registry := command.NewRegistry(device.DefaultOutputs)
	dispatcher := command.NewDispatcher(registry, state, clk)
	dispatcher.SetSiteName("Greenhouse")
	scheduler := &countingScheduler{}

	srv, err := New(Deps{
		Config: Config{
			AcceptTimeout: 50 * time.Millisecond,
			Session: shell.Config{
				Prompt:       prompt,
				IdleTimeout:  time.Minute,
				PollInterval: 20 * time.Millisecond,
			},
		},
		Logger:     logging.Discard(),
		Dispatcher: dispatcher,
		Completer:  registry,
		Scheduler:  scheduler,
		Clock:      clk,
		Network:    network,
		Tasks:      tasks,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	return &harness{srv: srv, state: state, scheduler: scheduler, ln: ln}
}

// serve starts Serve in the background and returns its result channel.
func (h *harness) serve(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- h.srv.Serve(ctx, h.ln) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return")
		return nil
	}
}

// readUntil reads from r until the accumulated text ends with suffix.
func readUntil(t *testing.T, conn net.Conn, r *bufio.Reader, suffix string) string {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	for !strings.HasSuffix(b.String(), suffix) {
		c, err := r.ReadByte()
		if err != nil {
			t.Fatalf("reading %q so far: %v", b.String(), err)
		}
		b.WriteByte(c)
	}
	return b.String()
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no deps should fail")
	}
}

func TestServe_SessionRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := h.serve(ctx)

	conn, err := net.Dial("tcp", h.ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	banner := readUntil(t, conn, r, prompt)
	if !strings.HasPrefix(banner, "Welcome to Greenhouse!\n") {
		t.Errorf("banner = %q, want welcome line first", banner)
	}

	if _, err := conn.Write([]byte("led on\n")); err != nil {
		t.Fatal(err)
	}
	reply := readUntil(t, conn, r, prompt)
	if !strings.Contains(reply, "LED is now ON\n") {
		t.Errorf("reply = %q, want LED confirmation", reply)
	}

	cancel()
	if err := wait(t, done); err != nil {
		t.Errorf("Serve() error = %v, want nil after cancel", err)
	}

	if on, _ := h.state.OutputOn("led"); !on {
		t.Error("led should be on after the session")
	}
	// Once per idle pass plus once after accept
	if runs := h.scheduler.runs.Load(); runs < 2 {
		t.Errorf("scheduler runs = %d, want at least 2", runs)
	}
}

func TestServe_PeerCloseReturnsToAccept(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := h.serve(ctx)

	for i := range 2 {
		conn, err := net.Dial("tcp", h.ln.Addr().String())
		if err != nil {
			t.Fatalf("Dial() #%d error = %v", i, err)
		}
		readUntil(t, conn, bufio.NewReader(conn), prompt)
		conn.Close()
	}

	cancel()
	if err := wait(t, done); err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestServe_Reboot(t *testing.T) {
	h := newHarness(t, nil)
	done := h.serve(context.Background())

	conn, err := net.Dial("tcp", h.ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	readUntil(t, conn, r, prompt)

	if _, err := conn.Write([]byte("reboot\n")); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, r, "Rebooting...\n")

	if err := wait(t, done); !errors.Is(err, ErrRebootRequested) {
		t.Errorf("Serve() error = %v, want ErrRebootRequested", err)
	}
}

func TestServe_AcceptTimeoutLoopsThroughIdle(t *testing.T) {
	network := &fakeNetwork{up: false}
	task := &fakeTask{err: errors.New("ntp unreachable")}
	h := newHarness(t, network, task)
	h.scheduler.err = errors.New("gpio fault")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// Failures in every collaborator must not stop the loop
	if err := wait(t, h.serve(ctx)); err != nil {
		t.Errorf("Serve() error = %v, want nil", err)
	}

	if n := network.checks.Load(); n < 2 {
		t.Errorf("network checks = %d, want several idle passes", n)
	}
	if n := task.runs.Load(); n < 2 {
		t.Errorf("task runs = %d, want several idle passes", n)
	}
	if n := h.scheduler.runs.Load(); n < 2 {
		t.Errorf("scheduler runs = %d, want several idle passes", n)
	}
}

func TestServe_ListenerClosedElsewhere(t *testing.T) {
	h := newHarness(t, nil)
	done := h.serve(context.Background())

	time.Sleep(20 * time.Millisecond)
	h.ln.Close()

	if err := wait(t, done); err == nil || errors.Is(err, ErrRebootRequested) {
		t.Errorf("Serve() error = %v, want accept error", err)
	}
}

type plainListener struct{ net.Listener }

func TestServe_RequiresDeadlines(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.srv.Serve(context.Background(), plainListener{h.ln}); !errors.Is(err, ErrNoDeadline) {
		t.Errorf("Serve() error = %v, want ErrNoDeadline", err)
	}
}

func TestRun_ListenError(t *testing.T) {
	h := newHarness(t, nil)
	h.srv.cfg.Address = h.ln.Addr().String() // already in use

	if err := h.srv.Run(context.Background()); err == nil {
		t.Error("Run() expected error for address in use")
	}
}

type recordedSession struct {
	event, remote, reason string
	ctxErr                error
}

type fakeSessions struct {
	mu     sync.Mutex
	events []recordedSession
}

func (f *fakeSessions) SessionOpened(ctx context.Context, remote string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedSession{"open", remote, "", ctx.Err()})
}

func (f *fakeSessions) SessionClosed(ctx context.Context, remote, reason string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedSession{"close", remote, reason, ctx.Err()})
}

func TestServe_RecordsSessions(t *testing.T) {
	h := newHarness(t, nil)
	rec := &fakeSessions{}
	h.srv.sessions = rec

	ctx, cancel := context.WithCancel(context.Background())
	done := h.serve(ctx)

	conn, err := net.Dial("tcp", h.ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, bufio.NewReader(conn), prompt)

	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 2 {
		t.Fatalf("events = %+v, want open and close", rec.events)
	}
	if rec.events[0].event != "open" || rec.events[0].remote != conn.LocalAddr().String() {
		t.Errorf("open event = %+v, want remote %s", rec.events[0], conn.LocalAddr())
	}
	closed := rec.events[1]
	if closed.event != "close" || closed.reason != "cancelled" {
		t.Errorf("close event = %+v, want reason cancelled", closed)
	}
	if closed.ctxErr != nil {
		t.Errorf("close event context error = %v, want a live context", closed.ctxErr)
	}
}
