package ble

import "errors"

// Domain errors for the BLE bridge package.
var (
	// ErrTopicTooLong is returned when an encoded topic would exceed
	// MaxTopicLen. Callers must guarantee bounded address and UUID
	// representations; hitting this aborts only the one operation.
	ErrTopicTooLong = errors.New("ble: topic exceeds maximum length")

	// ErrMalformedTopic is returned when a topic does not split into
	// exactly three slash-separated segments.
	ErrMalformedTopic = errors.New("ble: malformed topic")

	// ErrInvalidAddress is returned when the MAC segment of a topic
	// cannot be parsed.
	ErrInvalidAddress = errors.New("ble: invalid address segment")

	// ErrInvalidUUID is returned when a service or characteristic
	// segment of a topic cannot be parsed.
	ErrInvalidUUID = errors.New("ble: invalid UUID segment")

	// ErrUnknownDevice is returned when an operation references a
	// device the bridge is not tracking. A read or write completing
	// after its device disconnected lands here and is discarded.
	ErrUnknownDevice = errors.New("ble: unknown device")

	// ErrNotConnected is returned by the central when an operation
	// requires an established GATT connection.
	ErrNotConnected = errors.New("ble: device not connected")

	// ErrAlreadyScanning is returned when scanning is started twice.
	ErrAlreadyScanning = errors.New("ble: scan already running")
)
