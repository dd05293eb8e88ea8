package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

// scanRestartDelay is the pause before restarting scanning after it
// terminates unexpectedly. Fixed rather than backed off: a flapping
// radio is bounded by this delay and resolves itself, unlike a broker.
const scanRestartDelay = 5 * time.Second

// Bridge is the connection coordinator. It owns the event queue and
// the single dispatch goroutine, and drives the cascade:
//
//	network up   → connect to the broker
//	network down → disconnect from the broker
//	broker up    → start BLE scanning
//	broker down  → tear down every peripheral, schedule a reconnect
//
// Peripheral lifecycle (discovered → connected → services discovered →
// values flowing) hangs off the broker-up leg; everything is undone in
// reverse when the broker goes away.
//
// Thread Safety: Submit, Stop and the metrics accessors are safe for
// concurrent use. All coordinator state is confined to the dispatch
// goroutine.
type Bridge struct {
	cfg      Config
	codec    Codec
	mqtt     MQTTClient
	central  Central
	registry *device.Registry
	sync     *Synchronizer
	health   *HealthReporter
	policy   ConnectPolicy

	recorder  DiscoveryRecorder // Optional discovery journal
	telemetry Telemetry         // Optional metrics sink

	// Event queue consumed by the dispatch goroutine.
	events      chan Event
	reconnectCh chan struct{}

	// Dispatch-goroutine state. Never touched elsewhere.
	networkUp      bool
	brokerUp       bool
	scanning       bool
	reconnectDelay time.Duration
	reconnectTimer *time.Timer

	metrics   Metrics
	metricsMu sync.Mutex

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the minimal structured logging interface the bridge needs.
// Satisfied by the application's slog wrapper; nil disables logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
//
// Connect is asynchronous: it starts a connection attempt and returns;
// the outcome arrives later through the client's connect/disconnect
// callbacks, which the application wires to Submit as EventBrokerUp and
// EventBrokerDown. The bridge owns the retry schedule, so the client
// must not reconnect on its own.
type MQTTClient interface {
	// Connect starts an asynchronous connection attempt.
	Connect() error

	// Disconnect closes the connection gracefully, waiting up to
	// quiesce milliseconds for in-flight messages.
	Disconnect(quiesce uint)

	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Central is the interface to the BLE radio.
//
// Connect, DiscoverServices, Read and Write are fire-and-forget: they
// start the operation and return, and the result arrives later as an
// event (EventDeviceConnected, EventServicesDiscovered,
// EventValueChanged) submitted by the central. An immediate error
// means the operation never started.
type Central interface {
	// StartScan begins advertisement scanning. Discoveries arrive as
	// EventDeviceDiscovered.
	StartScan() error

	// StopScan stops advertisement scanning.
	StopScan() error

	// Connect starts a connection attempt to a peripheral.
	Connect(addr device.MAC) error

	// Disconnect drops the connection to one peripheral.
	Disconnect(addr device.MAC) error

	// DisconnectAll drops every peripheral connection.
	DisconnectAll()

	// DiscoverServices starts GATT service/characteristic discovery.
	DiscoverServices(addr device.MAC) error

	// Read starts a characteristic read.
	Read(addr device.MAC, service, characteristic device.UUID) error

	// Write writes a characteristic value.
	Write(addr device.MAC, service, characteristic device.UUID, value []byte) error

	// EnableNotifications registers a value-change callback.
	EnableNotifications(addr device.MAC, service, characteristic device.UUID, callback func(value []byte)) error

	// DisableNotifications removes a value-change callback.
	DisableNotifications(addr device.MAC, service, characteristic device.UUID) error
}

// DiscoveryRecorder journals discovered devices and characteristics.
// This is optional - if nil, the bridge operates without recording.
// Recording is diagnostic only; the bridge never reads it back.
type DiscoveryRecorder interface {
	// RecordDevice records a device sighting.
	RecordDevice(addr device.MAC, name string, rssi int16)

	// RecordCharacteristics records a device's discovered characteristics.
	RecordCharacteristics(addr device.MAC, chars []device.Characteristic)
}

// Telemetry is an optional sink for operational measurements.
// This is optional - if nil, the bridge operates without telemetry.
type Telemetry interface {
	// WriteRSSI records an advertisement signal strength sample.
	WriteRSSI(addr device.MAC, rssi int16)

	// WriteDeviceConnected records a connection state change.
	WriteDeviceConnected(addr device.MAC, connected bool)

	// WriteBridgeCounters records a bridge metrics snapshot.
	WriteBridgeCounters(m Metrics)
}

// Metrics is a point-in-time snapshot of bridge counters and state.
type Metrics struct {
	NetworkUp        bool
	BrokerConnected  bool
	Scanning         bool
	DevicesTracked   int
	DevicesConnected int
	ValuesPublished  uint64
	ReadsIssued      uint64
	WritesIssued     uint64
	EventsDropped    uint64
	ConnectAttempts  uint64 // Broker connect attempts, initial included
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Config is the validated bridge configuration.
	Config Config

	// MQTT is the broker client implementation.
	MQTT MQTTClient

	// Central is the BLE radio implementation.
	Central Central

	// Registry tracks known peripherals. Required.
	Registry *device.Registry

	// Policy decides which discovered peripherals to connect to.
	// If nil, every peripheral is eligible.
	Policy ConnectPolicy

	// Recorder is optional discovery journaling.
	Recorder DiscoveryRecorder

	// Telemetry is optional metrics output.
	Telemetry Telemetry

	// Logger is optional structured logger.
	Logger Logger

	// Version is the bridge software version for health reports.
	Version string
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Central == nil {
		return nil, fmt.Errorf("central is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	policy := opts.Policy
	if policy == nil {
		policy = NewListPolicy(opts.Config.Whitelist, opts.Config.Blacklist)
	}

	b := &Bridge{
		cfg:            opts.Config,
		codec:          NewCodec(opts.Config.GetSuffix, opts.Config.SetSuffix),
		mqtt:           opts.MQTT,
		central:        opts.Central,
		registry:       opts.Registry,
		policy:         policy,
		recorder:       opts.Recorder,  // May be nil (optional)
		telemetry:      opts.Telemetry, // May be nil (optional)
		events:         make(chan Event, opts.Config.QueueSize),
		reconnectCh:    make(chan struct{}, 1),
		reconnectDelay: opts.Config.ReconnectInitialDelay,
		done:           make(chan struct{}),
		logger:         opts.Logger,
	}

	b.sync = NewSynchronizer(SynchronizerConfig{
		Codec:    b.codec,
		MQTT:     opts.MQTT,
		Central:  opts.Central,
		QoS:      opts.Config.QoS,
		Retained: opts.Config.Retained,
		Submit:   b.Submit,
	})
	if opts.Logger != nil {
		b.sync.SetLogger(opts.Logger)
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Version:     opts.Version,
		StatusTopic: opts.Config.StatusTopic,
		HealthTopic: opts.Config.HealthTopic,
		Interval:    opts.Config.HealthInterval,
		Publisher:   opts.MQTT,
		Source:      b,
		Telemetry:   opts.Telemetry,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Codec returns the bridge's topic codec.
func (b *Bridge) Codec() Codec { return b.codec }

// Health returns the bridge's health reporter, for LWT wiring during
// MQTT client construction.
func (b *Bridge) Health() *HealthReporter { return b.health }

// Start begins bridge operation: the dispatch goroutine and periodic
// health reporting. The cascade itself starts when the network watcher
// submits its first EventNetworkUp.
func (b *Bridge) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.run()

	b.health.Start(ctx)

	b.logInfo("bridge started", "queue_size", b.cfg.QueueSize)
	return nil
}

// Stop gracefully shuts down the bridge: stops the dispatch goroutine,
// tears down all peripherals, publishes the offline status and closes
// the broker connection.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()

		b.health.Stop()

		// Dispatch goroutine is gone; safe to touch its state here.
		if b.reconnectTimer != nil {
			b.reconnectTimer.Stop()
		}
		if b.scanning {
			if err := b.central.StopScan(); err != nil {
				b.logWarn("stop scan failed", "error", err)
			}
		}
		b.sync.TeardownAll()
		b.central.DisconnectAll()

		if b.mqtt.IsConnected() {
			if err := b.health.PublishOffline(); err != nil {
				b.logWarn("offline publish failed", "error", err)
			}
			b.mqtt.Disconnect(250)
		}

		b.logInfo("bridge stopped")
	})
}

// Submit enqueues an event for the dispatch goroutine. It never
// blocks: if the queue is full the event is dropped with a warning and
// counted. Safe to call from any goroutine, including collaborator
// callbacks.
func (b *Bridge) Submit(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.metricsMu.Lock()
		b.metrics.EventsDropped++
		dropped := b.metrics.EventsDropped
		b.metricsMu.Unlock()
		b.logWarn("event queue full, dropping event",
			"kind", ev.Kind.String(),
			"dropped_total", dropped)
	}
}

// run is the dispatch loop. Sole consumer of the event queue.
func (b *Bridge) run() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case <-b.reconnectCh:
			b.tryConnectBroker()
		case ev := <-b.events:
			b.dispatch(ev)
		}
	}
}

// dispatch handles a single event. Runs on the dispatch goroutine only.
func (b *Bridge) dispatch(ev Event) {
	switch ev.Kind {
	case EventNetworkUp:
		b.handleNetworkUp()
	case EventNetworkDown:
		b.handleNetworkDown()
	case EventBrokerUp:
		b.handleBrokerUp()
	case EventBrokerDown:
		b.handleBrokerDown(ev.Err)
	case EventDeviceDiscovered:
		b.handleDeviceDiscovered(ev)
	case EventDeviceConnected:
		b.handleDeviceConnected(ev)
	case EventDeviceDisconnected:
		b.handleDeviceDisconnected(ev)
	case EventServicesDiscovered:
		b.handleServicesDiscovered(ev)
	case EventValueChanged:
		b.handleValueChanged(ev)
	case EventReadRequest:
		b.handleReadRequest(ev)
	case EventWriteRequest:
		b.handleWriteRequest(ev)
	case EventScanStopped:
		b.handleScanStopped(ev)
	case EventScanRestart:
		b.handleScanRestart()
	default:
		b.logWarn("unhandled event", "kind", ev.Kind.String())
	}
}

// handleNetworkUp starts the broker leg of the cascade.
func (b *Bridge) handleNetworkUp() {
	if b.networkUp {
		return
	}
	b.networkUp = true
	b.setFlag(func(m *Metrics) { m.NetworkUp = true })
	b.logInfo("network up, connecting to broker")

	b.resetBackoff()
	b.tryConnectBroker()
}

// handleNetworkDown drops the broker connection. The usual broker-down
// teardown runs here directly because a deliberate local disconnect
// produces no lost-connection callback.
func (b *Bridge) handleNetworkDown() {
	if !b.networkUp {
		return
	}
	b.networkUp = false
	b.setFlag(func(m *Metrics) { m.NetworkUp = false })
	b.logInfo("network down, disconnecting from broker")

	b.stopReconnectTimer()

	if b.brokerUp {
		b.mqtt.Disconnect(250)
		b.handleBrokerDown(nil)
	}
}

// handleBrokerUp starts scanning and announces availability.
func (b *Bridge) handleBrokerUp() {
	if b.brokerUp {
		return
	}
	b.brokerUp = true
	b.setFlag(func(m *Metrics) { m.BrokerConnected = true })
	b.resetBackoff()

	if err := b.health.PublishOnline(); err != nil {
		b.logWarn("online publish failed", "error", err)
	}

	if err := b.central.StartScan(); err != nil {
		b.logError("scan start failed", err)
		b.scheduleScanRestart()
	} else {
		b.scanning = true
		b.setFlag(func(m *Metrics) { m.Scanning = true })
	}

	b.logInfo("broker up, scanning started")
}

// handleScanStopped reacts to scanning dying underneath us. While the
// broker is up a restart is scheduled; otherwise the stop was part of
// normal teardown.
func (b *Bridge) handleScanStopped(ev Event) {
	b.scanning = false
	b.setFlag(func(m *Metrics) { m.Scanning = false })

	if !b.brokerUp {
		return
	}
	b.logWarn("scan stopped unexpectedly", "error", ev.Err)
	b.scheduleScanRestart()
}

// handleScanRestart starts scanning again after an unexpected stop.
func (b *Bridge) handleScanRestart() {
	if !b.brokerUp || b.scanning {
		return
	}
	if err := b.central.StartScan(); err != nil {
		b.logError("scan restart failed", err)
		b.scheduleScanRestart()
		return
	}
	b.scanning = true
	b.setFlag(func(m *Metrics) { m.Scanning = true })
	b.logInfo("scanning restarted")
}

// scheduleScanRestart arms a one-shot retry. The timer resubmits
// through the event queue so the restart runs on the dispatch
// goroutine; a bridge stopped in the meantime just drops the event.
func (b *Bridge) scheduleScanRestart() {
	time.AfterFunc(scanRestartDelay, func() {
		b.Submit(Event{Kind: EventScanRestart})
	})
}

// handleBrokerDown tears every peripheral down and schedules the next
// connect attempt. Without a broker there is nowhere to deliver values,
// so GATT connections are not kept alive.
func (b *Bridge) handleBrokerDown(reason error) {
	wasUp := b.brokerUp
	b.brokerUp = false
	b.setFlag(func(m *Metrics) { m.BrokerConnected = false })

	if wasUp {
		b.logWarn("broker down", "error", reason)

		if b.scanning {
			if err := b.central.StopScan(); err != nil {
				b.logWarn("stop scan failed", "error", err)
			}
			b.scanning = false
			b.setFlag(func(m *Metrics) { m.Scanning = false })
		}

		b.sync.TeardownAll()
		b.central.DisconnectAll()
		for _, addr := range b.registry.Addresses() {
			//nolint:errcheck // Address came from the registry a moment ago
			b.registry.Remove(addr)
		}
	}

	if !b.networkUp && b.cfg.OfflineHoldoff {
		b.logDebug("network down, holding off broker reconnect")
		return
	}
	b.scheduleReconnect()
}

// handleDeviceDiscovered evaluates a discovered peripheral and starts
// a connection if the policy allows and it is not already tracked.
func (b *Bridge) handleDeviceDiscovered(ev Event) {
	if b.recorder != nil {
		b.recorder.RecordDevice(ev.Addr, ev.Name, ev.RSSI)
	}
	if b.telemetry != nil {
		b.telemetry.WriteRSSI(ev.Addr, ev.RSSI)
	}

	if !b.brokerUp {
		return
	}
	if _, tracked := b.registry.Get(ev.Addr); tracked {
		return
	}
	if !b.policy.ShouldConnect(ev.Addr) {
		b.logDebug("device filtered out", "device", ev.Addr.String())
		return
	}

	if err := b.registry.Add(&device.Device{
		Addr:     ev.Addr,
		Name:     ev.Name,
		State:    device.StateConnecting,
		RSSI:     ev.RSSI,
		LastSeen: time.Now(),
	}); err != nil {
		return
	}

	b.logInfo("connecting to device", "device", ev.Addr.String(), "name", ev.Name, "rssi", ev.RSSI)
	if err := b.central.Connect(ev.Addr); err != nil {
		b.logError("connect start failed", err)
		//nolint:errcheck // Added above in this same handler
		b.registry.Remove(ev.Addr)
	}
}

// handleDeviceConnected publishes the status topic and starts GATT
// discovery.
func (b *Bridge) handleDeviceConnected(ev Event) {
	if err := b.registry.SetState(ev.Addr, device.StateConnected); err != nil {
		// Connect completion for a device dropped in the meantime.
		b.logDebug("ignoring connect for untracked device", "device", ev.Addr.String())
		b.central.Disconnect(ev.Addr) //nolint:errcheck // Best-effort cleanup
		return
	}
	b.setFlag(func(m *Metrics) { m.DevicesConnected = b.registry.ConnectedCount() })

	b.logInfo("device connected", "device", ev.Addr.String())

	if b.brokerUp {
		if err := b.sync.PublishConnected(ev.Addr, true); err != nil {
			b.logWarn("status publish failed", "device", ev.Addr.String(), "error", err)
		}
	}
	if b.telemetry != nil {
		b.telemetry.WriteDeviceConnected(ev.Addr, true)
	}

	if err := b.central.DiscoverServices(ev.Addr); err != nil {
		b.logError("service discovery start failed", err)
	}
}

// handleDeviceDisconnected tears the device's wiring down and forgets
// it; a rediscovery starts the lifecycle over.
func (b *Bridge) handleDeviceDisconnected(ev Event) {
	if _, tracked := b.registry.Get(ev.Addr); !tracked {
		return
	}

	b.logInfo("device disconnected", "device", ev.Addr.String(), "error", ev.Err)

	// Status goes out before teardown so subscribers see the device go
	// offline while its topics are still live.
	if b.brokerUp {
		if err := b.sync.PublishConnected(ev.Addr, false); err != nil {
			b.logWarn("status publish failed", "device", ev.Addr.String(), "error", err)
		}
	}

	b.sync.Teardown(ev.Addr)
	if b.telemetry != nil {
		b.telemetry.WriteDeviceConnected(ev.Addr, false)
	}

	//nolint:errcheck // Presence checked above
	b.registry.Remove(ev.Addr)
	b.setFlag(func(m *Metrics) { m.DevicesConnected = b.registry.ConnectedCount() })
}

// handleServicesDiscovered records the characteristic batch and hands
// it to the synchronizer.
func (b *Bridge) handleServicesDiscovered(ev Event) {
	if err := b.registry.SetCharacteristics(ev.Addr, ev.Characteristics); err != nil {
		b.logDebug("ignoring discovery for untracked device", "device", ev.Addr.String())
		return
	}

	if b.recorder != nil {
		b.recorder.RecordCharacteristics(ev.Addr, ev.Characteristics)
	}

	b.logInfo("services discovered",
		"device", ev.Addr.String(),
		"characteristics", len(ev.Characteristics))

	b.sync.OnServicesDiscovered(ev.Addr, ev.Characteristics)
}

// handleValueChanged publishes a characteristic value verbatim.
func (b *Bridge) handleValueChanged(ev Event) {
	if !b.brokerUp {
		return
	}
	if err := b.sync.PublishValue(ev.Addr, ev.Service, ev.Characteristic, ev.Value); err != nil {
		b.logWarn("value publish failed",
			"device", ev.Addr.String(),
			"characteristic", ev.Characteristic.String(),
			"error", err)
		return
	}
	b.bump(func(m *Metrics) { m.ValuesPublished++ })
}

// handleReadRequest starts a characteristic read. The value arrives
// later as EventValueChanged.
func (b *Bridge) handleReadRequest(ev Event) {
	d, ok := b.registry.Get(ev.Addr)
	if !ok || d.State != device.StateConnected {
		b.logDebug("dropping read for unavailable device", "device", ev.Addr.String())
		return
	}
	if err := b.central.Read(ev.Addr, ev.Service, ev.Characteristic); err != nil {
		b.logWarn("read start failed",
			"device", ev.Addr.String(),
			"characteristic", ev.Characteristic.String(),
			"error", err)
		return
	}
	b.bump(func(m *Metrics) { m.ReadsIssued++ })
}

// handleWriteRequest writes the payload to the characteristic,
// byte-for-byte as received from the broker.
func (b *Bridge) handleWriteRequest(ev Event) {
	d, ok := b.registry.Get(ev.Addr)
	if !ok || d.State != device.StateConnected {
		b.logDebug("dropping write for unavailable device", "device", ev.Addr.String())
		return
	}
	if err := b.central.Write(ev.Addr, ev.Service, ev.Characteristic, ev.Value); err != nil {
		b.logWarn("write failed",
			"device", ev.Addr.String(),
			"characteristic", ev.Characteristic.String(),
			"error", err)
		return
	}
	b.bump(func(m *Metrics) { m.WritesIssued++ })
}

// tryConnectBroker starts a broker connect attempt if one makes sense
// right now. A failed start schedules the next attempt; an async
// failure comes back as EventBrokerDown and does the same.
func (b *Bridge) tryConnectBroker() {
	if b.mqtt.IsConnected() {
		return
	}
	if !b.networkUp && b.cfg.OfflineHoldoff {
		return
	}

	b.bump(func(m *Metrics) { m.ConnectAttempts++ })
	if err := b.mqtt.Connect(); err != nil {
		b.logError("broker connect start failed", err)
		b.scheduleReconnect()
	}
}

// scheduleReconnect arms the next connect attempt using the doubling
// backoff. A non-positive delay retries immediately and synchronously.
func (b *Bridge) scheduleReconnect() {
	delay := b.reconnectDelay

	next := delay * 2
	if next > b.cfg.ReconnectMaxDelay {
		next = b.cfg.ReconnectMaxDelay
	}
	b.reconnectDelay = next

	if delay <= 0 {
		b.tryConnectBroker()
		return
	}

	b.logDebug("scheduling broker reconnect", "delay", delay.String())
	b.stopReconnectTimer()
	b.reconnectTimer = time.AfterFunc(delay, func() {
		select {
		case b.reconnectCh <- struct{}{}:
		default:
		}
	})
}

// resetBackoff restores the reconnect delay to its initial value.
func (b *Bridge) resetBackoff() {
	b.reconnectDelay = b.cfg.ReconnectInitialDelay
	b.stopReconnectTimer()
}

// stopReconnectTimer cancels a pending reconnect, if armed.
func (b *Bridge) stopReconnectTimer() {
	if b.reconnectTimer != nil {
		b.reconnectTimer.Stop()
		b.reconnectTimer = nil
	}
}

// GetMetrics returns a snapshot of bridge counters and state.
func (b *Bridge) GetMetrics() Metrics {
	b.metricsMu.Lock()
	m := b.metrics
	b.metricsMu.Unlock()

	m.DevicesTracked = b.registry.Count()
	m.DevicesConnected = b.registry.ConnectedCount()
	return m
}

// bump applies a counter increment under the metrics lock.
func (b *Bridge) bump(f func(*Metrics)) {
	b.metricsMu.Lock()
	f(&b.metrics)
	b.metricsMu.Unlock()
}

// setFlag applies a state flag update under the metrics lock.
func (b *Bridge) setFlag(f func(*Metrics)) {
	b.metricsMu.Lock()
	f(&b.metrics)
	b.metricsMu.Unlock()
}

// SetLogger sets the logger for the bridge and its components.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.sync != nil {
		b.sync.SetLogger(logger)
	}
	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
