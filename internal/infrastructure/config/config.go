package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported GPIO drivers.
const (
	GPIODriverMemory   = "memory"
	GPIODriverGPIOCDev = "gpiocdev"
)

// Config is the root configuration structure for relayshell.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Shell    ShellConfig    `yaml:"shell"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Network  NetworkConfig  `yaml:"network"`
	Clock    ClockConfig    `yaml:"clock"`
	Database DatabaseConfig `yaml:"database"`
	Audit    AuditConfig    `yaml:"audit"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// ShellConfig contains settings for the remote command shell.
// Timeouts are in seconds.
type ShellConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Prompt        string `yaml:"prompt"`
	AcceptTimeout int    `yaml:"accept_timeout"`
	IdleTimeout   int    `yaml:"idle_timeout"`
	PollInterval  int    `yaml:"poll_interval"`
}

// GPIOConfig selects the relay driver and maps output names to line offsets.
type GPIOConfig struct {
	// Driver is "memory" (no hardware, state held in process) or "gpiocdev".
	Driver string `yaml:"driver"`

	// Chip is the GPIO character device name, e.g. "gpiochip0".
	Chip string `yaml:"chip"`

	// Lines maps an output name ("led", "fans") to its line offset on Chip.
	Lines map[string]int `yaml:"lines"`
}

// ScheduleConfig contains the built-in fan schedule settings.
type ScheduleConfig struct {
	// Enabled is the value used when no persisted setting exists.
	Enabled bool `yaml:"enabled"`

	// Output is the relay output switched by the schedule marks.
	Output string `yaml:"output"`
}

// SensorConfig contains 1-Wire temperature sensor settings.
type SensorConfig struct {
	Enabled bool `yaml:"enabled"`

	// DeviceGlob locates the w1_slave file of the DS18B20.
	DeviceGlob string `yaml:"device_glob"`
}

// NetworkConfig contains reachability and reconnection settings.
type NetworkConfig struct {
	// ProbeAddress is a host:port dialled to decide whether the network is up.
	// Empty disables reachability checks.
	ProbeAddress string `yaml:"probe_address"`

	// ProbeTimeout is the dial timeout in seconds.
	ProbeTimeout int `yaml:"probe_timeout"`

	// ReconnectCommand is run when the probe fails, e.g. ["nmcli", "networking", "on"].
	ReconnectCommand []string `yaml:"reconnect_command"`

	// ReconnectTimeout is how long to wait for the probe to succeed after reconnecting (seconds).
	ReconnectTimeout int `yaml:"reconnect_timeout"`
}

// ClockConfig contains wall-clock synchronisation settings.
type ClockConfig struct {
	// NTPServer is queried on startup and every ResyncInterval. Empty disables resync.
	NTPServer string `yaml:"ntp_server"`

	// ResyncInterval is in hours.
	ResyncInterval int `yaml:"resync_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuditConfig controls the session and relay change trail kept in the database.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how long entries are kept before pruning.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RELAYSHELL_SECTION_KEY
// For example: RELAYSHELL_DATABASE_PATH, RELAYSHELL_SHELL_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "relayshell-001",
			Name:     "relayshell",
			Timezone: "UTC",
		},
		Shell: ShellConfig{
			Host:          "0.0.0.0",
			Port:          23,
			Prompt:        ">>> ",
			AcceptTimeout: 10,
			IdleTimeout:   180,
			PollInterval:  1,
		},
		GPIO: GPIOConfig{
			Driver: GPIODriverMemory,
			Chip:   "gpiochip0",
		},
		Schedule: ScheduleConfig{
			Enabled: true,
			Output:  "fans",
		},
		Sensor: SensorConfig{
			DeviceGlob: "/sys/bus/w1/devices/28-*/w1_slave",
		},
		Network: NetworkConfig{
			ProbeTimeout:     3,
			ReconnectTimeout: 10,
		},
		Clock: ClockConfig{
			NTPServer:      "pool.ntp.org",
			ResyncInterval: 7 * 24,
		},
		Database: DatabaseConfig{
			Path:        "./data/relayshell.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "relayshell",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RELAYSHELL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELAYSHELL_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}

	// Shell
	if v := os.Getenv("RELAYSHELL_SHELL_HOST"); v != "" {
		cfg.Shell.Host = v
	}
	if v := os.Getenv("RELAYSHELL_SHELL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Shell.Port = port
		}
	}

	// GPIO
	if v := os.Getenv("RELAYSHELL_GPIO_DRIVER"); v != "" {
		cfg.GPIO.Driver = v
	}

	// Database
	if v := os.Getenv("RELAYSHELL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("RELAYSHELL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RELAYSHELL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RELAYSHELL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("RELAYSHELL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a known zone", c.Site.Timezone))
	}

	// Shell validation
	if c.Shell.Port < 1 || c.Shell.Port > 65535 {
		errs = append(errs, "shell.port must be between 1 and 65535")
	}
	if c.Shell.AcceptTimeout <= 0 {
		errs = append(errs, "shell.accept_timeout must be positive")
	}
	if c.Shell.IdleTimeout <= 0 {
		errs = append(errs, "shell.idle_timeout must be positive")
	}
	if c.Shell.PollInterval <= 0 {
		errs = append(errs, "shell.poll_interval must be positive")
	}

	// GPIO validation
	switch c.GPIO.Driver {
	case GPIODriverMemory:
	case GPIODriverGPIOCDev:
		if c.GPIO.Chip == "" {
			errs = append(errs, "gpio.chip is required for the gpiocdev driver")
		}
		for _, name := range OutputNames {
			if offset, ok := c.GPIO.Lines[name]; !ok || offset < 0 {
				errs = append(errs, fmt.Sprintf("gpio.lines.%s must be a line offset", name))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("gpio.driver must be %q or %q", GPIODriverMemory, GPIODriverGPIOCDev))
	}

	if !isOutputName(c.Schedule.Output) {
		errs = append(errs, fmt.Sprintf("schedule.output must be one of %s", strings.Join(OutputNames, ", ")))
	}

	if c.Network.ProbeAddress != "" && c.Network.ProbeTimeout <= 0 {
		errs = append(errs, "network.probe_timeout must be positive")
	}
	if c.Clock.NTPServer != "" && c.Clock.ResyncInterval <= 0 {
		errs = append(errs, "clock.resync_interval must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Audit.Enabled && c.Audit.RetentionDays <= 0 {
		errs = append(errs, "audit.retention_days must be positive")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// OutputNames lists the relay outputs compiled into the firmware, in display order.
var OutputNames = []string{"led", "fans"}

func isOutputName(name string) bool {
	for _, n := range OutputNames {
		if n == name {
			return true
		}
	}
	return false
}

// GetAcceptTimeout returns the bounded accept wait as a Duration.
func (c *Config) GetAcceptTimeout() time.Duration {
	return time.Duration(c.Shell.AcceptTimeout) * time.Second
}

// GetIdleTimeout returns the session idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Shell.IdleTimeout) * time.Second
}

// GetPollInterval returns the session input poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Shell.PollInterval) * time.Second
}

// GetResyncInterval returns the clock resync interval as a Duration.
func (c *Config) GetResyncInterval() time.Duration {
	return time.Duration(c.Clock.ResyncInterval) * time.Hour
}

// GetProbeTimeout returns the reachability probe timeout as a Duration.
func (c *Config) GetProbeTimeout() time.Duration {
	return time.Duration(c.Network.ProbeTimeout) * time.Second
}

// GetReconnectTimeout returns the network reconnect wait as a Duration.
func (c *Config) GetReconnectTimeout() time.Duration {
	return time.Duration(c.Network.ReconnectTimeout) * time.Second
}

// GetAuditRetention returns how long audit entries are kept.
func (c *Config) GetAuditRetention() time.Duration {
	return time.Duration(c.Audit.RetentionDays) * 24 * time.Hour
}

// ListenAddress returns the host:port the shell listens on.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Shell.Host, c.Shell.Port)
}
