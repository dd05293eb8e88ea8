// Package ble implements the BLE-to-MQTT bridging orchestrator.
//
// The bridge exposes every characteristic of every connected BLE
// peripheral as a set of MQTT topics, so that reads, writes and
// change-notifications flow transparently between the two protocols.
//
// # Architecture
//
// The bridge sits between two event sources and translates between them:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│   MQTT Broker   │◄────────►│   BLE Bridge    │◄────────► BLE Peripherals
//	│                 │          │   (this pkg)    │
//	└─────────────────┘          └─────────────────┘
//
// Three components carry the design:
//
//   - Codec: pure, stateless mapping between (MAC, service UUID,
//     characteristic UUID, direction) tuples and MQTT topic strings.
//   - Synchronizer: keeps MQTT subscriptions and BLE notification
//     registrations in lock-step with the characteristics of connected
//     devices, and moves payloads between the two sides verbatim.
//   - Bridge: the connection coordinator. A cascading state machine that
//     reacts to network, broker and peripheral lifecycle events: network
//     up starts the broker connection, broker up starts BLE scanning,
//     broker down tears every peripheral down and schedules a reconnect.
//
// # Event model
//
// All collaborator callbacks (MQTT client, BLE central, network watcher)
// enqueue tagged Event values onto the Bridge's queue and return
// immediately. A single dispatch goroutine owned by the Bridge consumes
// the queue, so coordinator and synchronizer state is only ever mutated
// from one goroutine and no handler blocks a collaborator's own event
// loop. Operations that need a result (a read completing, a connect
// finishing) are issued fire-and-forget; the result arrives later as
// another event.
//
// # Topic format
//
// Value topics are three slash-separated segments:
//
//	<MAC>/<ServiceUUID>/<CharacteristicUUID>
//
// with the MAC rendered as 12 uppercase hex digits and UUIDs as
// dash-free lowercase hex (4 digits for 16-bit UUIDs, 32 for 128-bit).
// Readable characteristics additionally get a get-topic and writable
// ones a set-topic, formed by appending the configured suffixes.
// Connection status is published to <MAC>/Connected as "true"/"false".
//
// # Thread Safety
//
// Bridge, Synchronizer and the metrics/health accessors are safe for
// concurrent use. Codec values are immutable.
package ble
