package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the root configuration structure for the gridosc daemon.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Store      StoreConfig      `yaml:"store"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Device     DeviceConfig     `yaml:"device"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is stderr or stdout. Bridges default to stderr because stdout
	// carries the control channel when supervised.
	Output string `yaml:"output"`
}

// StoreConfig selects where per-device configuration is kept.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Dir      string         `yaml:"dir"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// DiscoveryConfig contains mDNS service advertisement settings.
type DiscoveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
	Domain  string `yaml:"domain"`
}

// DeviceConfig identifies the device this bridge serves.
type DeviceConfig struct {
	// Port is a substring of the MIDI port name to open.
	Port string `yaml:"port"`
	// Serial overrides the serial derived from the port name.
	Serial string `yaml:"serial"`
	// FriendlyName overrides the advertised device name.
	FriendlyName string `yaml:"friendly_name"`
	// Channel is the MIDI channel (0-15) used for LED output.
	Channel int `yaml:"channel"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	TopicRoot string              `yaml:"topic_root"`
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
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

// SupervisorConfig controls how gridosc-supervisor restarts its bridge.
type SupervisorConfig struct {
	RestartOnFailure   bool          `yaml:"restart_on_failure"`
	RestartDelay       time.Duration `yaml:"restart_delay"`
	MaxRestartDelay    time.Duration `yaml:"max_restart_delay"`
	MaxRestartAttempts int           `yaml:"max_restart_attempts"`
	GracefulTimeout    time.Duration `yaml:"graceful_timeout"`

	// StatusInterval is how often the supervisor logs bridge stats. 0 disables.
	StatusInterval time.Duration `yaml:"status_interval"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides. A missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// LoadOptional is Load, except that a missing file yields the defaults
// (still with environment overrides applied).
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(Defaults())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// DefaultDir is where per-device state lives when nothing else is set:
// $XDG_CONFIG_HOME/gridosc, falling back to ~/.config/gridosc.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gridosc")
	}
	return filepath.Join(".", "gridosc")
}

// Defaults returns a Config with the built-in default values.
func Defaults() *Config {
	dir := DefaultDir()
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Store: StoreConfig{
			Backend: BackendFile,
			Dir:     dir,
			Database: DatabaseConfig{
				Path:        filepath.Join(dir, "gridosc.db"),
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Service: "_monome-osc._udp",
			Domain:  "local.",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "gridosc",
			},
			QoS:       0,
			TopicRoot: "gridosc",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Supervisor: SupervisorConfig{
			RestartOnFailure:   true,
			RestartDelay:       2 * time.Second,
			MaxRestartDelay:    time.Minute,
			MaxRestartAttempts: 0,
			GracefulTimeout:    5 * time.Second,
			StatusInterval:     5 * time.Minute,
		},
	}
}

// applyEnvOverrides applies GRIDOSC_SECTION_KEY environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRIDOSC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("GRIDOSC_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("GRIDOSC_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("GRIDOSC_DATABASE_PATH"); v != "" {
		cfg.Store.Database.Path = v
	}

	if v := os.Getenv("GRIDOSC_DISCOVERY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Discovery.Enabled = b
		}
	}

	if v := os.Getenv("GRIDOSC_DEVICE_PORT"); v != "" {
		cfg.Device.Port = v
	}

	if v := os.Getenv("GRIDOSC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRIDOSC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRIDOSC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRIDOSC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Output) {
	case "stderr", "stdout":
	default:
		errs = append(errs, "logging.output must be stderr or stdout")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Dir == "" {
			errs = append(errs, "store.dir is required for the file backend")
		}
	case BackendSQLite:
		if c.Store.Database.Path == "" {
			errs = append(errs, "store.database.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.backend must be %q or %q", BackendFile, BackendSQLite))
	}

	if c.Device.Channel < 0 || c.Device.Channel > 15 {
		errs = append(errs, "device.channel must be between 0 and 15")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.TopicRoot == "" {
			errs = append(errs, "mqtt.topic_root is required when mqtt is enabled")
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Supervisor.MaxRestartAttempts < 0 {
		errs = append(errs, "supervisor.max_restart_attempts must not be negative")
	}
	if c.Supervisor.StatusInterval < 0 {
		errs = append(errs, "supervisor.status_interval must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
