package ble

import "github.com/nerrad567/ble2mqtt/internal/device"

// EventKind tags the variant of an Event.
type EventKind int

// Event variants consumed by the Bridge's dispatch loop.
const (
	// EventNetworkUp signals the uplink became available.
	EventNetworkUp EventKind = iota

	// EventNetworkDown signals the uplink was lost.
	EventNetworkDown

	// EventBrokerUp signals the MQTT connection was established.
	EventBrokerUp

	// EventBrokerDown signals the MQTT connection was lost or a
	// connect attempt failed. Err carries the reason, if known.
	EventBrokerDown

	// EventDeviceDiscovered signals an advertisement was received.
	// Addr, Name and RSSI are populated.
	EventDeviceDiscovered

	// EventDeviceConnected signals a GATT connection was established.
	EventDeviceConnected

	// EventDeviceDisconnected signals a GATT connection was lost or a
	// connect attempt failed. Err carries the reason, if known.
	EventDeviceDisconnected

	// EventServicesDiscovered signals GATT discovery completed.
	// Characteristics carries the device's full batch.
	EventServicesDiscovered

	// EventValueChanged signals a characteristic produced a value,
	// from a completed read or a notification. Value is the raw bytes.
	EventValueChanged

	// EventReadRequest is an inbound message on a get-topic. Topic is
	// the bare three-segment form (suffix already stripped).
	EventReadRequest

	// EventWriteRequest is an inbound message on a set-topic. Topic is
	// the bare three-segment form; Value is the verbatim payload.
	EventWriteRequest

	// EventScanStopped signals advertisement scanning terminated on its
	// own rather than through StopScan. Err carries the reason, if known.
	EventScanStopped

	// EventScanRestart asks the dispatch loop to start scanning again
	// after an unexpected stop. Produced by the bridge's own restart
	// timer.
	EventScanRestart
)

// String returns a human-readable event name for logging.
func (k EventKind) String() string {
	switch k {
	case EventNetworkUp:
		return "network_up"
	case EventNetworkDown:
		return "network_down"
	case EventBrokerUp:
		return "broker_up"
	case EventBrokerDown:
		return "broker_down"
	case EventDeviceDiscovered:
		return "device_discovered"
	case EventDeviceConnected:
		return "device_connected"
	case EventDeviceDisconnected:
		return "device_disconnected"
	case EventServicesDiscovered:
		return "services_discovered"
	case EventValueChanged:
		return "value_changed"
	case EventReadRequest:
		return "read_request"
	case EventWriteRequest:
		return "write_request"
	case EventScanStopped:
		return "scan_stopped"
	case EventScanRestart:
		return "scan_restart"
	default:
		return "unknown"
	}
}

// Event is a tagged union of everything that can happen to the bridge.
// Only the fields relevant to Kind are populated; the rest are zero.
//
// Events are values — payload slices are owned by the event once
// submitted and must not be mutated by the producer afterwards.
type Event struct {
	Kind EventKind

	// Addr is the peripheral address for device-scoped events.
	Addr device.MAC

	// Name is the advertised local name (EventDeviceDiscovered).
	Name string

	// RSSI is the advertisement signal strength in dBm
	// (EventDeviceDiscovered).
	RSSI int16

	// Characteristics is the discovered batch (EventServicesDiscovered).
	Characteristics []device.Characteristic

	// Service and Characteristic identify the data point
	// (EventValueChanged).
	Service        device.UUID
	Characteristic device.UUID

	// Value is the raw payload (EventValueChanged, EventWriteRequest).
	Value []byte

	// Topic is the bare three-segment topic of an inbound request
	// (EventReadRequest, EventWriteRequest).
	Topic string

	// Err is the failure reason for down/disconnect events, if known.
	Err error
}
