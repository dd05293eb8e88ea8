package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
bridge:
  id: "test-bridge"
network:
  interface: "wlan0"
  poll_interval: 2
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
ble:
  get_suffix: "/Get"
  set_suffix: "/Set"
  queue_size: 32
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "test-bridge" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "test-bridge")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	if cfg.BLE.QueueSize != 32 {
		t.Errorf("BLE.QueueSize = %d, want 32", cfg.BLE.QueueSize)
	}

	// Unset keys keep their defaults.
	if !cfg.BLE.OfflineHoldoff {
		t.Error("BLE.OfflineHoldoff = false, want default true")
	}
	if cfg.BLE.Reconnect.MaxDelay != 60 {
		t.Errorf("BLE.Reconnect.MaxDelay = %d, want default 60", cfg.BLE.Reconnect.MaxDelay)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
bridge:
  id: ""
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty bridge.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// valid returns a default config, which must validate, and lets
	// each case break exactly one thing.
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing bridge ID", func(c *Config) { c.Bridge.ID = "" }},
		{"missing network interface", func(c *Config) { c.Network.Interface = "" }},
		{"poll interval zero", func(c *Config) { c.Network.PollInterval = 0 }},
		{"managed supplicant without config file", func(c *Config) {
			c.Network.Supplicant.Managed = true
			c.Network.Supplicant.ConfigFile = ""
		}},
		{"missing broker host", func(c *Config) { c.MQTT.Broker.Host = "" }},
		{"broker port low", func(c *Config) { c.MQTT.Broker.Port = 0 }},
		{"broker port high", func(c *Config) { c.MQTT.Broker.Port = 70000 }},
		{"missing client ID", func(c *Config) { c.MQTT.Broker.ClientID = "" }},
		{"invalid mqtt QoS", func(c *Config) { c.MQTT.QoS = 3 }},
		{"invalid ble QoS", func(c *Config) { c.BLE.QoS = 5 }},
		{"queue size zero", func(c *Config) { c.BLE.QueueSize = 0 }},
		{"negative reconnect delay", func(c *Config) { c.BLE.Reconnect.InitialDelay = -1 }},
		{"max delay below initial", func(c *Config) {
			c.BLE.Reconnect.InitialDelay = 30
			c.BLE.Reconnect.MaxDelay = 5
		}},
		{"both filters set", func(c *Config) {
			c.BLE.Whitelist = []string{"AABBCCDDEEFF"}
			c.BLE.Blacklist = []string{"112233445566"}
		}},
		{"health interval zero", func(c *Config) { c.BLE.HealthInterval = 0 }},
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"influx enabled without url", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.Token = "tok"
			c.InfluxDB.Org = "org"
			c.InfluxDB.Bucket = "bucket"
		}},
		{"influx enabled without token", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.URL = "http://localhost:8086"
			c.InfluxDB.Org = "org"
			c.InfluxDB.Bucket = "bucket"
		}},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestConfig_DurationAccessors(t *testing.T) {
	cfg := &Config{
		Network: NetworkConfig{PollInterval: 2},
		BLE: BLEConfig{
			Reconnect:      ReconnectConfig{InitialDelay: 1, MaxDelay: 60},
			HealthInterval: 30,
		},
	}

	if got := cfg.GetPollInterval().Seconds(); got != 2 {
		t.Errorf("GetPollInterval() = %v, want 2", got)
	}
	if got := cfg.GetReconnectInitialDelay().Seconds(); got != 1 {
		t.Errorf("GetReconnectInitialDelay() = %v, want 1", got)
	}
	if got := cfg.GetReconnectMaxDelay().Seconds(); got != 60 {
		t.Errorf("GetReconnectMaxDelay() = %v, want 60", got)
	}
	if got := cfg.GetHealthInterval().Seconds(); got != 30 {
		t.Errorf("GetHealthInterval() = %v, want 30", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("BLE2MQTT_DATABASE_PATH", "/custom/path.db")
	t.Setenv("BLE2MQTT_MQTT_HOST", "mqtt.example.com")
	t.Setenv("BLE2MQTT_MQTT_PORT", "8883")
	t.Setenv("BLE2MQTT_MQTT_USERNAME", "testuser")
	t.Setenv("BLE2MQTT_MQTT_PASSWORD", "testpass")
	t.Setenv("BLE2MQTT_NETWORK_INTERFACE", "wlan1")
	t.Setenv("BLE2MQTT_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.Network.Interface != "wlan1" {
		t.Errorf("Network.Interface = %q, want %q", cfg.Network.Interface, "wlan1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverridesBadPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("BLE2MQTT_MQTT_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want untouched 1883", cfg.MQTT.Broker.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bridge.ID == "" {
		t.Error("defaultConfig should have non-empty Bridge.ID")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.BLE.GetSuffix != "/Get" || cfg.BLE.SetSuffix != "/Set" {
		t.Errorf("defaultConfig suffixes = %q/%q, want /Get and /Set",
			cfg.BLE.GetSuffix, cfg.BLE.SetSuffix)
	}

	if !cfg.BLE.OfflineHoldoff {
		t.Error("defaultConfig BLE.OfflineHoldoff = false, want true")
	}
}

func TestCredentialsRedactedInStringForm(t *testing.T) {
	auth := MQTTAuthConfig{Username: "bridge", Password: "hunter2"}
	if s := auth.String(); strings.Contains(s, "hunter2") {
		t.Errorf("MQTTAuthConfig.String() = %q, leaks password", s)
	}
	if s := auth.String(); !strings.Contains(s, "bridge") {
		t.Errorf("MQTTAuthConfig.String() = %q, should keep username", s)
	}

	influx := InfluxDBConfig{Enabled: true, URL: "http://localhost:8086", Token: "secret-token"}
	if s := influx.String(); strings.Contains(s, "secret-token") {
		t.Errorf("InfluxDBConfig.String() = %q, leaks token", s)
	}
}
