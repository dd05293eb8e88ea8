package ble

import (
	"fmt"
	"strings"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

// MaxTopicLen is the maximum length of a generated topic string.
// Encoding an address tuple that would exceed it is a precondition
// violation and fails with ErrTopicTooLong.
const MaxTopicLen = 256

// topicSegments is the number of slash-separated segments in a valid
// characteristic topic: MAC, service UUID, characteristic UUID.
const topicSegments = 3

// connectedSuffix is the fixed suffix of per-device status topics.
const connectedSuffix = "/Connected"

// Direction selects which of a characteristic's topics to build.
type Direction int

// Topic directions. DirectionNone is the plain value/notify topic;
// DirectionGet and DirectionSet append the configured suffixes.
const (
	DirectionNone Direction = iota
	DirectionGet
	DirectionSet
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "none"
	case DirectionGet:
		return "get"
	case DirectionSet:
		return "set"
	default:
		return "unknown"
	}
}

// Codec maps characteristic addresses onto MQTT topic strings and back.
//
// The mapping is a pure, injective function of (MAC, service UUID,
// characteristic UUID, direction): no two distinct tuples produce the
// same topic, and every well-formed topic decodes back to the tuple
// that produced it. Codec values are immutable and safe to copy.
type Codec struct {
	getSuffix string
	setSuffix string
}

// NewCodec creates a codec using the configured direction suffixes.
// Suffixes must be non-empty, distinct and free of '/', '+' and '#';
// Config.Validate enforces this before the codec is built.
func NewCodec(getSuffix, setSuffix string) Codec {
	return Codec{getSuffix: getSuffix, setSuffix: setSuffix}
}

// Encode builds the topic string for a characteristic.
//
// The base form is "<MAC>/<ServiceUUID>/<CharacteristicUUID>" with the
// MAC as 12 uppercase hex digits and UUIDs as dash-free lowercase hex
// in their canonical width. DirectionGet and DirectionSet append the
// respective suffix; DirectionNone appends nothing.
//
// Returns ErrTopicTooLong if the result would exceed MaxTopicLen.
func (c Codec) Encode(addr device.MAC, service, characteristic device.UUID, dir Direction) (string, error) {
	var b strings.Builder
	b.WriteString(addr.String())
	b.WriteByte('/')
	b.WriteString(service.String())
	b.WriteByte('/')
	b.WriteString(characteristic.String())

	switch dir {
	case DirectionGet:
		b.WriteString(c.getSuffix)
	case DirectionSet:
		b.WriteString(c.setSuffix)
	case DirectionNone:
	}

	topic := b.String()
	if len(topic) > MaxTopicLen {
		return "", fmt.Errorf("%w: %d bytes", ErrTopicTooLong, len(topic))
	}
	return topic, nil
}

// Decode parses a value topic back into its address tuple.
//
// The topic must consist of exactly three slash-separated segments:
// a MAC address and two UUIDs (16-bit or 128-bit forms both accepted).
// Decode is deliberately suffix-unaware — the subscription handler that
// received the message knows its own direction and strips its suffix
// before calling Decode.
//
// Any failure (wrong segment count, unparsable MAC or UUID) returns a
// wrapped ErrMalformedTopic, ErrInvalidAddress or ErrInvalidUUID; no
// partial result is ever produced.
func (c Codec) Decode(topic string) (device.MAC, device.UUID, device.UUID, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != topicSegments {
		return device.MAC{}, device.UUID{}, device.UUID{},
			fmt.Errorf("%w: expected %d segments, got %d in %q", ErrMalformedTopic, topicSegments, len(parts), topic)
	}

	addr, err := device.ParseMAC(parts[0])
	if err != nil {
		return device.MAC{}, device.UUID{}, device.UUID{},
			fmt.Errorf("%w: %q", ErrInvalidAddress, parts[0])
	}

	service, err := device.ParseUUID(parts[1])
	if err != nil {
		return device.MAC{}, device.UUID{}, device.UUID{},
			fmt.Errorf("%w: service %q", ErrInvalidUUID, parts[1])
	}

	characteristic, err := device.ParseUUID(parts[2])
	if err != nil {
		return device.MAC{}, device.UUID{}, device.UUID{},
			fmt.Errorf("%w: characteristic %q", ErrInvalidUUID, parts[2])
	}

	return addr, service, characteristic, nil
}

// TrimDirection removes the suffix for the given direction from a
// received topic, returning the bare three-segment form. Used by
// subscription handlers before Decode. DirectionNone is a no-op.
func (c Codec) TrimDirection(topic string, dir Direction) string {
	switch dir {
	case DirectionGet:
		return strings.TrimSuffix(topic, c.getSuffix)
	case DirectionSet:
		return strings.TrimSuffix(topic, c.setSuffix)
	default:
		return topic
	}
}

// ConnectedTopic returns the per-device connection status topic,
// "<MAC>/Connected". Payload is the ASCII literal "true" or "false".
func ConnectedTopic(addr device.MAC) string {
	return addr.String() + connectedSuffix
}

// connectedPayload returns the exact status payload: "true" (4 bytes)
// or "false" (5 bytes).
func connectedPayload(connected bool) []byte {
	if connected {
		return []byte("true")
	}
	return []byte("false")
}
