package ble

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Availability payloads published to the status topic. The offline
// payload doubles as the broker-side LWT, so an ungraceful death and a
// graceful shutdown look the same to subscribers.
const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// Health status values reported in the health document.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// HealthReporter manages the bridge's availability topic and periodic
// health documents.
type HealthReporter struct {
	version     string
	statusTopic string
	healthTopic string
	startTime   time.Time
	interval    time.Duration
	publisher   HealthPublisher
	source      MetricsSource
	telemetry   Telemetry

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// MetricsSource provides the counters included in health documents.
// Implemented by the Bridge.
type MetricsSource interface {
	GetMetrics() Metrics
}

// HealthMessage is the JSON document published to the health topic.
type HealthMessage struct {
	Status           string    `json:"status"`
	Version          string    `json:"version,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	UptimeSeconds    int64     `json:"uptime_seconds"`
	NetworkUp        bool      `json:"network_up"`
	BrokerConnected  bool      `json:"broker_connected"`
	Scanning         bool      `json:"scanning"`
	DevicesTracked   int       `json:"devices_tracked"`
	DevicesConnected int       `json:"devices_connected"`
	ValuesPublished  uint64    `json:"values_published"`
	ReadsIssued      uint64    `json:"reads_issued"`
	WritesIssued     uint64    `json:"writes_issued"`
	EventsDropped    uint64    `json:"events_dropped"`
	ConnectAttempts  uint64    `json:"connect_attempts"`
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Version is the bridge software version.
	Version string

	// StatusTopic carries "online"/"offline" availability.
	StatusTopic string

	// HealthTopic carries periodic HealthMessage documents.
	HealthTopic string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	// Source provides bridge counters for health documents.
	Source MetricsSource

	// Telemetry optionally receives the same counter snapshots.
	Telemetry Telemetry
}

// NewHealthReporter creates a new health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}

	return &HealthReporter{
		version:     cfg.Version,
		statusTopic: cfg.StatusTopic,
		healthTopic: cfg.HealthTopic,
		startTime:   time.Now(),
		interval:    interval,
		publisher:   cfg.Publisher,
		source:      cfg.Source,
		telemetry:   cfg.Telemetry,
		done:        make(chan struct{}),
	}
}

// Start begins periodic health reporting.
// Must be called after creation. Call Stop to shut down.
//
// Parameters:
//   - ctx: Context for cancellation (will stop reporting when cancelled)
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops periodic reporting. It does not publish a final status;
// the caller decides whether to PublishOffline (graceful shutdown) or
// leave it to the LWT (crash). Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
	})
}

// PublishOnline publishes the retained "online" availability marker.
// Called when the broker connection is established.
func (h *HealthReporter) PublishOnline() error {
	return h.publishStatus(statusOnline)
}

// PublishOffline publishes the retained "offline" availability marker.
// Called during graceful shutdown while the connection is still up.
func (h *HealthReporter) PublishOffline() error {
	return h.publishStatus(statusOffline)
}

// PublishNow publishes the current health document immediately.
// Useful for forcing an update after a significant event.
func (h *HealthReporter) PublishNow() error {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return nil // Nowhere to deliver; the next tick will retry
	}

	msg := h.buildMessage()
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.healthTopic, payload, 1, true)
}

// LWTTopic returns the topic for the broker-registered last will.
func (h *HealthReporter) LWTTopic() string {
	return h.statusTopic
}

// LWTPayload returns the last-will payload, the same "offline" marker
// a graceful shutdown publishes.
func (h *HealthReporter) LWTPayload() []byte {
	return []byte(statusOffline)
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// reportLoop runs the periodic health reporting.
func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
			if h.telemetry != nil && h.source != nil {
				h.telemetry.WriteBridgeCounters(h.source.GetMetrics())
			}
		}
	}
}

// buildMessage assembles the health document from the current counters.
func (h *HealthReporter) buildMessage() HealthMessage {
	var m Metrics
	if h.source != nil {
		m = h.source.GetMetrics()
	}

	status := HealthHealthy
	if !m.NetworkUp || !m.BrokerConnected {
		status = HealthDegraded
	}

	return HealthMessage{
		Status:           status,
		Version:          h.version,
		Timestamp:        time.Now().UTC(),
		UptimeSeconds:    int64(time.Since(h.startTime).Seconds()),
		NetworkUp:        m.NetworkUp,
		BrokerConnected:  m.BrokerConnected,
		Scanning:         m.Scanning,
		DevicesTracked:   m.DevicesTracked,
		DevicesConnected: m.DevicesConnected,
		ValuesPublished:  m.ValuesPublished,
		ReadsIssued:      m.ReadsIssued,
		WritesIssued:     m.WritesIssued,
		EventsDropped:    m.EventsDropped,
		ConnectAttempts:  m.ConnectAttempts,
	}
}

// publishStatus publishes a retained availability marker (QoS 1).
func (h *HealthReporter) publishStatus(status string) error {
	if h.publisher == nil {
		return nil // No publisher configured
	}
	return h.publisher.Publish(h.statusTopic, []byte(status), 1, true)
}

// logError logs an error if logger is set.
func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
