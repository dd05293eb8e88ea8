package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/ble2mqtt/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// No broker is required; these tests never complete a connection.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "ble2mqtt-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
	}
}

// =============================================================================
// Option-building Tests
// =============================================================================

func TestBuildClientOptionsPlain(t *testing.T) {
	cfg := testConfig()

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers = %d entries, want 1", len(opts.Servers))
	}
	if got, want := opts.Servers[0].String(), "tcp://127.0.0.1:1883"; got != want {
		t.Errorf("broker URL = %q, want %q", got, want)
	}
	if opts.ClientID != "ble2mqtt-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "ble2mqtt-test")
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set for a plain-TCP broker")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
}

func TestBuildClientOptionsReconnectDisabled(t *testing.T) {
	opts := buildClientOptions(testConfig())

	// The coordinator owns retry timing; paho must not reconnect on its own.
	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if got, want := opts.Servers[0].String(), "ssl://127.0.0.1:8883"; got != want {
		t.Errorf("broker URL = %q, want %q", got, want)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLSConfig = nil for a TLS broker")
	}
	if opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLS MinVersion = %x, want %x", opts.TLSConfig.MinVersion, tlsMinVersion)
	}
}

func TestBuildClientOptionsCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if opts.Username != "bridge" {
		t.Errorf("Username = %q, want %q", opts.Username, "bridge")
	}
	if opts.Password != "secret" {
		t.Errorf("Password = %q, want %q", opts.Password, "secret")
	}
}

func TestSetWill(t *testing.T) {
	client := NewClient(testConfig())
	client.SetWill("ble2mqtt/status", []byte("offline"), 1, true)

	if !client.options.WillEnabled {
		t.Fatal("WillEnabled = false after SetWill()")
	}
	if client.options.WillTopic != "ble2mqtt/status" {
		t.Errorf("WillTopic = %q, want %q", client.options.WillTopic, "ble2mqtt/status")
	}
	if string(client.options.WillPayload) != "offline" {
		t.Errorf("WillPayload = %q, want %q", client.options.WillPayload, "offline")
	}
	if client.options.WillQos != 1 || !client.options.WillRetained {
		t.Errorf("WillQos/WillRetained = %d/%v, want 1/true",
			client.options.WillQos, client.options.WillRetained)
	}
}

// =============================================================================
// Disconnected-state Tests
// =============================================================================

func TestNewClientNotConnected(t *testing.T) {
	client := NewClient(testConfig())

	if client.IsConnected() {
		t.Error("IsConnected() = true for a fresh client")
	}
	if got := client.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", got)
	}
}

func TestDisconnectBeforeConnectIsNoop(t *testing.T) {
	client := NewClient(testConfig())
	client.Disconnect(0) // must not panic
}

func TestPublishValidation(t *testing.T) {
	client := NewClient(testConfig())

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 0, ErrInvalidTopic},
		{"invalid qos", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "a/b", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"not connected", "a/b", []byte("x"), 0, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := NewClient(testConfig())
	handler := func(topic string, payload []byte) {}

	if err := client.Subscribe("", 0, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("a/b", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("invalid qos error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("a/b", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("a/b", 0, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}

	// Failed subscriptions must not be tracked.
	if got := client.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", got)
	}
}

func TestUnsubscribeValidation(t *testing.T) {
	client := NewClient(testConfig())

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("a/b"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := NewClient(testConfig())

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := NewClient(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Callback Tests
// =============================================================================

func TestConnectionCallbacks(t *testing.T) {
	client := NewClient(testConfig())

	var mu sync.Mutex
	var connects int
	var lastErr error

	client.SetOnConnect(func() {
		mu.Lock()
		connects++
		mu.Unlock()
	})
	client.SetOnDisconnect(func(err error) {
		mu.Lock()
		lastErr = err
		mu.Unlock()
	})

	client.handleConnect()
	client.handleDisconnect(errors.New("link down"))

	mu.Lock()
	defer mu.Unlock()
	if connects != 1 {
		t.Errorf("onConnect invocations = %d, want 1", connects)
	}
	if lastErr == nil || lastErr.Error() != "link down" {
		t.Errorf("onDisconnect error = %v, want %q", lastErr, "link down")
	}
}

func TestCallbacksOptional(t *testing.T) {
	client := NewClient(testConfig())

	// No callbacks registered: transitions must not panic.
	client.handleConnect()
	client.handleDisconnect(errors.New("lost"))
}

func TestDisconnectedAfterHandleDisconnect(t *testing.T) {
	client := NewClient(testConfig())

	client.handleConnect()
	client.handleDisconnect(errors.New("lost"))

	if client.IsConnected() {
		t.Error("IsConnected() = true after handleDisconnect()")
	}
}

// =============================================================================
// Handler wrapping Tests
// =============================================================================

// fakeMessage implements pahomqtt.Message for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

var _ pahomqtt.Message = (*fakeMessage)(nil)

func TestWrapHandlerDelivers(t *testing.T) {
	client := NewClient(testConfig())

	var gotTopic string
	var gotPayload []byte
	wrapped := client.wrapHandler(func(topic string, payload []byte) {
		gotTopic = topic
		gotPayload = payload
	})

	wrapped(nil, &fakeMessage{topic: "AABBCCDDEEFF/180d/2a37", payload: []byte{0x42}})

	if gotTopic != "AABBCCDDEEFF/180d/2a37" {
		t.Errorf("topic = %q, want %q", gotTopic, "AABBCCDDEEFF/180d/2a37")
	}
	if len(gotPayload) != 1 || gotPayload[0] != 0x42 {
		t.Errorf("payload = %x, want 42", gotPayload)
	}
}

func TestWrapHandlerRecoversPanic(t *testing.T) {
	client := NewClient(testConfig())
	logger := &mockLogger{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(topic string, payload []byte) {
		panic("handler exploded")
	})

	// Must not propagate the panic.
	wrapped(nil, &fakeMessage{topic: "a/b", payload: nil})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 || !strings.Contains(logger.errors[0], "panic") {
		t.Errorf("logged errors = %v, want one panic message", logger.errors)
	}
}

func TestWrapHandlerPanicWithoutLogger(t *testing.T) {
	client := NewClient(testConfig())

	wrapped := client.wrapHandler(func(topic string, payload []byte) {
		panic("handler exploded")
	})

	// No logger set: panic is swallowed silently.
	wrapped(nil, &fakeMessage{topic: "a/b", payload: nil})
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
