package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the BLE bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Network  NetworkConfig  `yaml:"network"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	BLE      BLEConfig      `yaml:"ble"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BridgeConfig identifies this bridge instance.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// NetworkConfig contains WiFi supervision settings.
type NetworkConfig struct {
	// Interface is the network interface to watch (e.g., "wlan0").
	Interface string `yaml:"interface"`

	// PollInterval is how often to poll the interface state, in seconds.
	PollInterval int `yaml:"poll_interval"`

	// Supplicant contains settings for managing wpa_supplicant.
	Supplicant SupplicantConfig `yaml:"supplicant"`
}

// SupplicantConfig contains settings for managing the wpa_supplicant daemon.
type SupplicantConfig struct {
	// Managed indicates whether the bridge should manage wpa_supplicant
	// lifecycle. If false, the supplicant is expected to be running
	// externally (e.g., as a systemd service).
	Managed bool `yaml:"managed"`

	// Binary is the path to the wpa_supplicant executable.
	// Default: "/sbin/wpa_supplicant"
	Binary string `yaml:"binary"`

	// ConfigFile is the path to the wpa_supplicant configuration file.
	ConfigFile string `yaml:"config_file"`

	// Driver is the supplicant driver to use. Default: "nl80211"
	Driver string `yaml:"driver"`

	// RestartOnFailure enables automatic restart if the supplicant crashes.
	// Default: true
	RestartOnFailure bool `yaml:"restart_on_failure"`

	// RestartDelaySeconds is the time to wait before restarting (in seconds).
	// Default: 5
	RestartDelaySeconds int `yaml:"restart_delay_seconds"`

	// MaxRestartAttempts limits restart attempts. 0 means unlimited.
	// Default: 10
	MaxRestartAttempts int `yaml:"max_restart_attempts"`
}

// MQTTConfig contains MQTT broker connection settings.
//
// Reconnection timing is deliberately absent here: the connection
// coordinator owns retry behaviour, configured under the ble section.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
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

// String implements fmt.Stringer with the password redacted, so the
// struct is safe to hand to a logger.
func (c MQTTAuthConfig) String() string {
	return fmt.Sprintf("{Username:%s Password:REDACTED}", c.Username)
}

// BLEConfig contains bridge behaviour settings.
type BLEConfig struct {
	// GetSuffix and SetSuffix are appended to characteristic topics to
	// form the read-request and write-request topics.
	GetSuffix string `yaml:"get_suffix"`
	SetSuffix string `yaml:"set_suffix"`

	// QoS and Retained control how characteristic values are published.
	QoS      int  `yaml:"qos"`
	Retained bool `yaml:"retained"`

	// QueueSize is the capacity of the internal event queue.
	QueueSize int `yaml:"queue_size"`

	// Reconnect controls broker reconnection backoff (seconds).
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// OfflineHoldoff suppresses broker reconnect attempts while the
	// network is down.
	OfflineHoldoff bool `yaml:"offline_holdoff"`

	// Whitelist and Blacklist filter discovered devices by MAC address.
	// At most one may be set.
	Whitelist []string `yaml:"whitelist"`
	Blacklist []string `yaml:"blacklist"`

	// StatusTopic carries the retained online/offline availability
	// message (also used as the LWT topic).
	StatusTopic string `yaml:"status_topic"`

	// HealthTopic carries periodic JSON health reports.
	HealthTopic string `yaml:"health_topic"`

	// HealthInterval is the health report period, in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// ReconnectConfig contains broker reconnection backoff settings.
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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

// String implements fmt.Stringer with the API token redacted.
func (c InfluxDBConfig) String() string {
	return fmt.Sprintf("{Enabled:%t URL:%s Token:REDACTED Org:%s Bucket:%s}",
		c.Enabled, c.URL, c.Org, c.Bucket)
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BLE2MQTT_SECTION_KEY
// For example: BLE2MQTT_DATABASE_PATH, BLE2MQTT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:   "ble2mqtt-001",
			Name: "BLE Bridge",
		},
		Network: NetworkConfig{
			Interface:    "wlan0",
			PollInterval: 2,
			Supplicant: SupplicantConfig{
				Managed:             false,
				Binary:              "/sbin/wpa_supplicant",
				Driver:              "nl80211",
				RestartOnFailure:    true,
				RestartDelaySeconds: 5,
				MaxRestartAttempts:  10,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ble2mqtt",
			},
			QoS: 1,
		},
		BLE: BLEConfig{
			GetSuffix: "/Get",
			SetSuffix: "/Set",
			QoS:       0,
			Retained:  true,
			QueueSize: 64,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			OfflineHoldoff: true,
			StatusTopic:    "ble2mqtt/status",
			HealthTopic:    "ble2mqtt/health",
			HealthInterval: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/ble2mqtt.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BLE2MQTT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("BLE2MQTT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BLE2MQTT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BLE2MQTT_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("BLE2MQTT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BLE2MQTT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Network
	if v := os.Getenv("BLE2MQTT_NETWORK_INTERFACE"); v != "" {
		cfg.Network.Interface = v
	}

	// InfluxDB
	if v := os.Getenv("BLE2MQTT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Bridge behaviour settings (suffixes, filters, backoff) get a second,
// stricter validation pass when converted for the bridge itself; the
// checks here catch what is wrong at the file level.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Bridge validation
	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	// Network validation
	if c.Network.Interface == "" {
		errs = append(errs, "network.interface is required")
	}
	if c.Network.PollInterval < 1 {
		errs = append(errs, "network.poll_interval must be at least 1 second")
	}
	if c.Network.Supplicant.Managed && c.Network.Supplicant.ConfigFile == "" {
		errs = append(errs, "network.supplicant.config_file is required when managed")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// BLE validation
	if c.BLE.QoS < 0 || c.BLE.QoS > 2 {
		errs = append(errs, "ble.qos must be 0, 1, or 2")
	}
	if c.BLE.QueueSize < 1 {
		errs = append(errs, "ble.queue_size must be at least 1")
	}
	if c.BLE.Reconnect.InitialDelay < 0 || c.BLE.Reconnect.MaxDelay < 0 {
		errs = append(errs, "ble.reconnect delays must not be negative")
	}
	if c.BLE.Reconnect.MaxDelay < c.BLE.Reconnect.InitialDelay {
		errs = append(errs, "ble.reconnect.max_delay must be >= initial_delay")
	}
	if len(c.BLE.Whitelist) > 0 && len(c.BLE.Blacklist) > 0 {
		errs = append(errs, "ble.whitelist and ble.blacklist are mutually exclusive")
	}
	if c.BLE.HealthInterval < 1 {
		errs = append(errs, "ble.health_interval must be at least 1 second")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when enabled (set BLE2MQTT_INFLUXDB_TOKEN)")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the network poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Network.PollInterval) * time.Second
}

// GetReconnectInitialDelay returns the broker reconnect initial delay as a Duration.
func (c *Config) GetReconnectInitialDelay() time.Duration {
	return time.Duration(c.BLE.Reconnect.InitialDelay) * time.Second
}

// GetReconnectMaxDelay returns the broker reconnect delay cap as a Duration.
func (c *Config) GetReconnectMaxDelay() time.Duration {
	return time.Duration(c.BLE.Reconnect.MaxDelay) * time.Second
}

// GetHealthInterval returns the health report period as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.BLE.HealthInterval) * time.Second
}
