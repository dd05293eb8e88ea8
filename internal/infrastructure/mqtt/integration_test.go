//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ble2mqtt/internal/infrastructure/config"
)

// Integration tests for broker connectivity.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...
//
// Note: Some tests may be flaky in CI due to timing dependencies.
// Consider running with: go test -tags=integration -count=1 -v ...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
			TLS:      false,
		},
		QoS: 1,
	}
}

// connectAndWait starts an async connect and blocks until the
// OnConnect callback fires or the timeout expires.
func connectAndWait(t *testing.T, client *Client) {
	t.Helper()

	connected := make(chan struct{})
	var once sync.Once
	client.SetOnConnect(func() {
		once.Do(func() { close(connected) })
	})

	if err := client.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for broker connection")
	}
}

func TestIntegration_ConnectReportsViaCallback(t *testing.T) {
	client := NewClient(integrationConfig("ble2mqtt-int-connect"))
	defer client.Disconnect(250)

	connectAndWait(t, client)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after OnConnect fired")
	}
}

func TestIntegration_ConnectFailureReportsViaCallback(t *testing.T) {
	cfg := integrationConfig("ble2mqtt-int-refused")
	cfg.Broker.Port = 19999 // nothing listens here

	client := NewClient(cfg)

	failed := make(chan error, 1)
	client.SetOnDisconnect(func(err error) {
		select {
		case failed <- err:
		default:
		}
	})

	if err := client.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	select {
	case err := <-failed:
		if err == nil {
			t.Error("OnDisconnect fired with nil error")
		}
	case <-time.After(15 * time.Second):
		t.Fatal("timeout waiting for connect failure")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := NewClient(integrationConfig("ble2mqtt-int-sub-track"))
	defer client.Disconnect(250)

	connectAndWait(t, client)

	topics := []string{
		"ble2mqtt/int/test/topic1",
		"ble2mqtt/int/test/topic2",
		"ble2mqtt/int/test/topic3",
	}

	handler := func(topic string, payload []byte) {}

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	for _, topic := range topics {
		if !client.HasSubscription(topic) {
			t.Errorf("HasSubscription(%s) = false, want true", topic)
		}
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if client.SubscriptionCount() != len(topics)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", client.SubscriptionCount(), len(topics)-1)
	}

	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	pubClient := NewClient(integrationConfig("ble2mqtt-int-pub"))
	defer pubClient.Disconnect(250)
	connectAndWait(t, pubClient)

	subClient := NewClient(integrationConfig("ble2mqtt-int-sub"))
	defer subClient.Disconnect(250)
	connectAndWait(t, subClient)

	topic := "ble2mqtt/int/roundtrip"
	expected := []byte{0x01, 0x00, 0xFF}

	received := make(chan []byte, 1)
	var once sync.Once

	err := subClient.Subscribe(topic, 1, func(t string, p []byte) {
		once.Do(func() {
			received <- p
		})
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pubClient.Publish(topic, expected, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if string(msg) != string(expected) {
			t.Errorf("Received = %x, want %x", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestIntegration_DeliberateDisconnectFiresNoCallback(t *testing.T) {
	client := NewClient(integrationConfig("ble2mqtt-int-quiet"))
	connectAndWait(t, client)

	fired := make(chan struct{}, 1)
	client.SetOnDisconnect(func(err error) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	client.Disconnect(250)

	select {
	case <-fired:
		t.Error("OnDisconnect fired for a deliberate Disconnect()")
	case <-time.After(2 * time.Second):
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Disconnect()")
	}
}
