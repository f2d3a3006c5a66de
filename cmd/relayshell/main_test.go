package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/relayshell/internal/audit"
	"github.com/nerrad567/relayshell/internal/device"
	"github.com/nerrad567/relayshell/internal/infrastructure/config"
	"github.com/nerrad567/relayshell/internal/infrastructure/database"
	"github.com/nerrad567/relayshell/internal/infrastructure/logging"
	"github.com/nerrad567/relayshell/internal/settings"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// writeConfig writes a config using the memory GPIO driver and no network
// services, and points RELAYSHELL_CONFIG at it.
func writeConfig(t *testing.T, dir string, port int) string {
	t.Helper()
	dbPath := filepath.Join(dir, "relayshell.db")
	content := fmt.Sprintf(`
site:
  id: test-site
  name: "Test Bench"
  timezone: "UTC"
shell:
  host: "127.0.0.1"
  port: %d
  accept_timeout: 1
gpio:
  driver: memory
clock:
  ntp_server: ""
database:
  path: %q
  wal_mode: true
  busy_timeout: 5
logging:
  level: error
  format: text
  output: stderr
`, port, dbPath)

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("RELAYSHELL_CONFIG", configPath)
	t.Setenv("RELAYSHELL_ENV_FILE", filepath.Join(dir, "missing.env"))
	return dbPath
}

// dial connects to the shell, retrying while run is still starting.
func dial(t *testing.T, port int) net.Conn {
	t.Helper()
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatalf("Dial(%s) error = %v", addr, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

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

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("RELAYSHELL_CONFIG", "/nonexistent/path/config.yaml")
	t.Setenv("RELAYSHELL_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidEnvFile verifies a malformed dotenv file stops startup.
func TestRun_InvalidEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "bad.env")
	if err := os.WriteFile(envPath, []byte("RELAYSHELL_X='unterminated\n"), 0600); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, freePort(t))
	t.Setenv("RELAYSHELL_ENV_FILE", envPath)

	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail with a malformed env file")
	}
}

// TestRun_SessionAndShutdown starts the full stack on a fresh database,
// checks the schedule starts enabled, toggles it off over the shell and
// checks the setting and the audit trail were persisted.
func TestRun_SessionAndShutdown(t *testing.T) {
	dir := t.TempDir()
	port := freePort(t)
	dbPath := writeConfig(t, dir, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	conn := dial(t, port)
	defer conn.Close()
	r := bufio.NewReader(conn)

	banner := readUntil(t, conn, r, ">>> ")
	if !strings.HasPrefix(banner, "Welcome to Test Bench!\n") {
		t.Errorf("banner = %q, want welcome line", banner)
	}
	if !strings.Contains(banner, "Schedule is ENABLED") {
		t.Errorf("banner = %q, want schedule enabled on a fresh install", banner)
	}

	if _, err := conn.Write([]byte("toggle schedule\n")); err != nil {
		t.Fatal(err)
	}
	reply := readUntil(t, conn, r, ">>> ")
	if !strings.Contains(reply, "Schedule is now DISABLED\n") {
		t.Errorf("reply = %q, want schedule disabled", reply)
	}
	if strings.Contains(reply, "Warning") {
		t.Errorf("reply = %q, setting should have been saved", reply)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v, want nil on shutdown", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	db, err := database.Open(context.Background(), database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()

	enabled, err := settings.NewStore(db.DB).GetBool(context.Background(), settings.KeyScheduleEnabled)
	if err != nil {
		t.Fatalf("GetBool() error = %v", err)
	}
	if enabled {
		t.Error("schedule_enabled should persist as false")
	}

	repo := audit.NewSQLiteRepository(db.DB)
	for _, action := range []string{audit.ActionSessionOpen, audit.ActionSessionClose} {
		res, err := repo.List(context.Background(), audit.Filter{Action: action})
		if err != nil {
			t.Fatalf("List(%s) error = %v", action, err)
		}
		if res.Total != 1 {
			t.Errorf("audit %s entries = %d, want 1", action, res.Total)
		}
	}

	// The startup value is recorded before the toggle.
	res, err := repo.List(context.Background(), audit.Filter{Action: audit.ActionFlag, EntityID: device.FlagSchedule})
	if err != nil {
		t.Fatalf("List(flag) error = %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("schedule flag entries = %d, want 2", res.Total)
	}
	sources := map[string]any{}
	for _, l := range res.Logs {
		sources[l.Source] = l.Details["on"]
	}
	if sources[string(device.SourceStartup)] != true || sources[string(device.SourceCommand)] != false {
		t.Errorf("schedule flag entries by source = %v", sources)
	}
}

// TestRun_EnvFileOverridesPort verifies values from the dotenv file reach
// the config loader.
func TestRun_EnvFileOverridesPort(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, freePort(t))

	port := freePort(t)
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte(fmt.Sprintf("RELAYSHELL_SHELL_PORT=%d\n", port)), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RELAYSHELL_ENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv("RELAYSHELL_SHELL_PORT") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	conn := dial(t, port)
	readUntil(t, conn, bufio.NewReader(conn), ">>> ")
	conn.Close()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("run() error = %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("RELAYSHELL_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("RELAYSHELL_CONFIG", "/etc/relayshell/config.yaml")
	if got := getConfigPath(); got != "/etc/relayshell/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestGetEnvPath(t *testing.T) {
	t.Setenv("RELAYSHELL_ENV_FILE", "")
	if got := getEnvPath(); got != defaultEnvPath {
		t.Errorf("getEnvPath() = %q, want %q", got, defaultEnvPath)
	}

	t.Setenv("RELAYSHELL_ENV_FILE", "/etc/relayshell/env")
	if got := getEnvPath(); got != "/etc/relayshell/env" {
		t.Errorf("getEnvPath() = %q, want env override", got)
	}
}

func TestOpenGPIO_Memory(t *testing.T) {
	cfg := &config.Config{GPIO: config.GPIOConfig{Driver: config.GPIODriverMemory}}

	gpio, release, err := openGPIO(cfg)
	if err != nil {
		t.Fatalf("openGPIO() error = %v", err)
	}
	defer release()

	if err := gpio.Set("fans", true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if on, err := gpio.Get("fans"); err != nil || !on {
		t.Errorf("Get() = %v, %v; want true", on, err)
	}
}

func TestOpenGPIO_MissingChip(t *testing.T) {
	cfg := &config.Config{GPIO: config.GPIOConfig{
		Driver: config.GPIODriverGPIOCDev,
		Chip:   "gpiochip-does-not-exist",
		Lines:  map[string]int{"led": 25, "fans": 16},
	}}

	if _, _, err := openGPIO(cfg); err == nil {
		t.Error("openGPIO() should fail for a missing chip")
	}
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

func TestStartTelemetry_Disabled(t *testing.T) {
	cfg := &config.Config{}

	recorder, checks, closeAll := startTelemetry(context.Background(), cfg, utcClock{}, logging.Discard())
	defer closeAll()

	if recorder != nil {
		t.Error("startTelemetry() should return no recorder when every sink is disabled")
	}
	if len(checks) != 0 {
		t.Errorf("startTelemetry() checks = %d, want 0", len(checks))
	}
}

func TestStartTelemetry_UnreachableSinksAreSkipped(t *testing.T) {
	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			Enabled: true,
			Broker:  config.MQTTBrokerConfig{Host: "127.0.0.1", Port: freePort(t), ClientID: "relayshell-test"},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recorder, checks, closeAll := startTelemetry(ctx, cfg, utcClock{}, logging.Discard())
	defer closeAll()

	if recorder != nil {
		t.Error("startTelemetry() should skip a broker that refuses connections")
	}
	if len(checks) != 0 {
		t.Errorf("startTelemetry() checks = %d, want 0 for a skipped broker", len(checks))
	}
}

func TestHealthCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("not connected") }

	tests := []struct {
		name       string
		components []component
		wantErr    []string
	}{
		{"no components", nil, nil},
		{"all healthy", []component{{"database", ok}, {"mqtt", ok}}, nil},
		{"one degraded", []component{{"database", ok}, {"mqtt", down}}, []string{"mqtt: not connected"}},
		{
			"every failure reported",
			[]component{{"database", down}, {"influxdb", down}},
			[]string{"database: not connected", "influxdb: not connected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := healthCheck(tt.components)(context.Background())
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("healthCheck() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("healthCheck() error = nil, want failure")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestHealthCheck_Database(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "health.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	check := healthCheck([]component{{name: "database", check: db.HealthCheck}})

	if err := check(context.Background()); err != nil {
		t.Errorf("healthCheck() error = %v, want nil for an open database", err)
	}
	db.Close()
	if err := check(context.Background()); err == nil {
		t.Error("healthCheck() should fail after the database is closed")
	}
}
