// Package mqtt provides broker connectivity for the BLE bridge.
//
// This package manages:
//   - Connection to the MQTT broker (Mosquitto or compatible)
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health checks
//
// # Architecture
//
// The bridge mirrors BLE characteristics onto MQTT topics, so the broker
// is the public face of every tracked peripheral:
//
//	BLE Peripherals ↔ ble2mqtt ↔ MQTT Broker ↔ Consumers
//
// Connection lifecycle is owned by the bridge's coordinator, not by
// this package: Connect is asynchronous, auto-reconnect is disabled,
// and connect/disconnect outcomes are reported through the
// SetOnConnect/SetOnDisconnect callbacks. The coordinator reacts to
// those callbacks and schedules retries with its own backoff. A
// deliberate Disconnect fires no callback.
//
// Subscriptions are tracked internally and restored when the
// coordinator re-establishes the connection.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Characteristic payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client := mqtt.NewClient(cfg.MQTT)
//	client.SetWill("ble2mqtt/status", []byte("offline"), 1, true)
//	client.SetOnConnect(func() { /* broker up */ })
//	client.SetOnDisconnect(func(err error) { /* broker down */ })
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Subscribe to set requests for one characteristic
//	err := client.Subscribe("AABBCCDDEEFF/180d/2a37/Set", 1,
//	    func(topic string, payload []byte) {
//	        log.Printf("Received: %s = %x", topic, payload)
//	    })
package mqtt
