// ble2mqtt - BLE GATT to MQTT bridge
//
// This is the main entry point for the ble2mqtt bridge. The bridge
// connects BLE peripherals to an MQTT broker, mapping every GATT
// characteristic to a topic and every topic write back to the
// characteristic. Connectivity is cascaded: the broker connection
// waits for the network, and BLE activity waits for the broker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/ble2mqtt/migrations"

	"github.com/nerrad567/ble2mqtt/internal/bridges/ble"
	"github.com/nerrad567/ble2mqtt/internal/device"
	"github.com/nerrad567/ble2mqtt/internal/infrastructure/config"
	"github.com/nerrad567/ble2mqtt/internal/infrastructure/database"
	"github.com/nerrad567/ble2mqtt/internal/infrastructure/influxdb"
	"github.com/nerrad567/ble2mqtt/internal/infrastructure/logging"
	"github.com/nerrad567/ble2mqtt/internal/infrastructure/mqtt"
	"github.com/nerrad567/ble2mqtt/internal/wifi"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ble2mqtt",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "bridge_id", cfg.Bridge.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Discovery journal writes sightings to the database
	recorder := ble.NewRecorder(db.DB)
	recorder.SetLogger(log.WithComponent("journal"))
	if recErr := recorder.Start(); recErr != nil {
		return fmt.Errorf("starting discovery recorder: %w", recErr)
	}
	defer recorder.Stop()

	// InfluxDB is optional telemetry output
	influxClient := startInfluxDB(cfg, log)
	if influxClient != nil {
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB client", "error", closeErr)
			}
		}()
	}
	var telemetry ble.Telemetry
	if influxClient != nil {
		telemetry = &influxTelemetry{client: influxClient}
	}

	// MQTT client; the bridge owns connect/reconnect timing
	mqttClient := mqtt.NewClient(cfg.MQTT)
	mqttClient.SetLogger(log.WithComponent("mqtt"))

	// Characteristic flags come from BlueZ via D-Bus; without them
	// every characteristic is treated as read-only
	flags := startFlagsResolver(log)
	if flags != nil {
		defer func() {
			if closeErr := flags.Close(); closeErr != nil {
				log.Error("error closing flags resolver", "error", closeErr)
			}
		}()
	}

	// The central needs the bridge's event queue and the bridge needs
	// the central; late-bind the submit callback. No BLE events can
	// fire before Start.
	bleLog := log.WithComponent("ble")
	var bridge *ble.Bridge
	central, err := ble.NewCentral(ble.CentralOptions{
		Submit: func(ev ble.Event) { bridge.Submit(ev) },
		Flags:  flags,
		Logger: bleLog,
	})
	if err != nil {
		return fmt.Errorf("creating BLE central: %w", err)
	}
	if enableErr := central.Enable(); enableErr != nil {
		return fmt.Errorf("enabling bluetooth adapter: %w", enableErr)
	}
	log.Info("bluetooth adapter enabled")

	bleCfg := buildBLEConfig(cfg)
	bridge, err = ble.NewBridge(ble.Options{
		Config:    bleCfg,
		MQTT:      mqttClient,
		Central:   central,
		Registry:  device.NewRegistry(),
		Recorder:  recorder,
		Telemetry: telemetry,
		Logger:    bleLog,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	// LWT must be registered before the first connect attempt
	health := bridge.Health()
	mqttClient.SetWill(health.LWTTopic(), health.LWTPayload(), bleCfg.QoS, true)
	mqttClient.SetOnConnect(func() {
		bridge.Submit(ble.Event{Kind: ble.EventBrokerUp})
	})
	mqttClient.SetOnDisconnect(func(reason error) {
		bridge.Submit(ble.Event{Kind: ble.EventBrokerDown, Err: reason})
	})

	// Network watcher drives the bottom of the cascade
	sup, err := startWifiSupervisor(cfg, bridge, log)
	if err != nil {
		return err
	}

	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}

	if startErr := sup.Start(ctx); startErr != nil {
		bridge.Stop()
		return fmt.Errorf("starting wifi supervisor: %w", startErr)
	}

	if healthErr := healthCheck(ctx, db, influxClient); healthErr != nil {
		log.Warn("startup health check", "error", healthErr)
	}

	log.Info("ble2mqtt started",
		"interface", cfg.Network.Interface,
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
	)

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Stop the network watcher first so no new cascade events arrive,
	// then the bridge, which tears down peripherals and publishes the
	// offline status before disconnecting.
	sup.Stop()
	bridge.Stop()

	log.Info("ble2mqtt stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Checks BLE2MQTT_CONFIG environment variable, falls back to default.
func getConfigPath() string {
	if path := os.Getenv("BLE2MQTT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildBLEConfig maps the application configuration onto the bridge's
// runtime settings, converting second counts to durations.
func buildBLEConfig(cfg *config.Config) ble.Config {
	return ble.Config{
		GetSuffix:             cfg.BLE.GetSuffix,
		SetSuffix:             cfg.BLE.SetSuffix,
		QoS:                   byte(cfg.BLE.QoS),
		Retained:              cfg.BLE.Retained,
		QueueSize:             cfg.BLE.QueueSize,
		ReconnectInitialDelay: cfg.GetReconnectInitialDelay(),
		ReconnectMaxDelay:     cfg.GetReconnectMaxDelay(),
		OfflineHoldoff:        cfg.BLE.OfflineHoldoff,
		Whitelist:             cfg.BLE.Whitelist,
		Blacklist:             cfg.BLE.Blacklist,
		StatusTopic:           cfg.BLE.StatusTopic,
		HealthTopic:           cfg.BLE.HealthTopic,
		HealthInterval:        cfg.GetHealthInterval(),
	}
}

// startInfluxDB connects to InfluxDB if enabled.
// Returns nil if disabled or connection fails (non-fatal).
func startInfluxDB(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		if errors.Is(err, influxdb.ErrDisabled) {
			log.Info("InfluxDB disabled")
		} else {
			log.Warn("InfluxDB connection failed, telemetry disabled", "error", err)
		}
		return nil
	}

	client.SetOnError(func(writeErr error) {
		log.Warn("InfluxDB write error", "error", writeErr)
	})

	log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL)
	return client
}

// startFlagsResolver opens the D-Bus connection used to read
// characteristic property flags from BlueZ.
// Returns nil if the system bus is unavailable (non-fatal).
func startFlagsResolver(log *logging.Logger) *ble.FlagsResolver {
	flags, err := ble.NewFlagsResolver()
	if err != nil {
		log.Warn("flags resolver unavailable, characteristics will be read-only", "error", err)
		return nil
	}
	return flags
}

// startWifiSupervisor builds the network watcher and wires its
// transitions into the bridge event queue.
func startWifiSupervisor(cfg *config.Config, bridge *ble.Bridge, log *logging.Logger) (*wifi.Supervisor, error) {
	sup, err := wifi.NewSupervisor(wifi.Config{
		Interface:    cfg.Network.Interface,
		PollInterval: cfg.GetPollInterval(),
		Supplicant: wifi.SupplicantConfig{
			Managed:            cfg.Network.Supplicant.Managed,
			Binary:             cfg.Network.Supplicant.Binary,
			ConfigFile:         cfg.Network.Supplicant.ConfigFile,
			Driver:             cfg.Network.Supplicant.Driver,
			RestartOnFailure:   cfg.Network.Supplicant.RestartOnFailure,
			RestartDelay:       time.Duration(cfg.Network.Supplicant.RestartDelaySeconds) * time.Second,
			MaxRestartAttempts: cfg.Network.Supplicant.MaxRestartAttempts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating wifi supervisor: %w", err)
	}

	sup.SetLogger(log.WithComponent("wifi"))
	sup.SetOnUp(func() {
		bridge.Submit(ble.Event{Kind: ble.EventNetworkUp})
	})
	sup.SetOnDown(func() {
		bridge.Submit(ble.Event{Kind: ble.EventNetworkDown})
	})
	return sup, nil
}

// healthCheck verifies the storage backends after startup. The MQTT
// connection is excluded: it comes up asynchronously once the network
// watcher reports the uplink.
//
// Parameters:
//   - ctx: Context for timeout control
//   - db: Database connection
//   - influxClient: InfluxDB client (may be nil)
//
// Returns:
//   - error: First failure found, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb health check: %w", err)
		}
	}

	return nil
}

// influxTelemetry adapts the InfluxDB client to the bridge's telemetry
// interface, flattening typed measurements into line-protocol fields.
type influxTelemetry struct {
	client *influxdb.Client
}

var _ ble.Telemetry = (*influxTelemetry)(nil)

func (t *influxTelemetry) WriteRSSI(addr device.MAC, rssi int16) {
	t.client.WriteRSSI(addr.String(), int(rssi))
}

func (t *influxTelemetry) WriteDeviceConnected(addr device.MAC, connected bool) {
	t.client.WriteDeviceConnected(addr.String(), connected)
}

func (t *influxTelemetry) WriteBridgeCounters(m ble.Metrics) {
	t.client.WriteBridgeCounters(map[string]interface{}{
		"network_up":        m.NetworkUp,
		"broker_connected":  m.BrokerConnected,
		"scanning":          m.Scanning,
		"devices_tracked":   m.DevicesTracked,
		"devices_connected": m.DevicesConnected,
		"values_published":  int64(m.ValuesPublished),
		"reads_issued":      int64(m.ReadsIssued),
		"writes_issued":     int64(m.WritesIssued),
		"events_dropped":    int64(m.EventsDropped),
		"connect_attempts":  int64(m.ConnectAttempts),
	})
}
