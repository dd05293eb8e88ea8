package device

import (
	"strings"
	"time"
)

// Properties is the GATT characteristic property bitmask.
// The bit layout matches the Characteristic Properties field of the
// GATT characteristic declaration.
type Properties uint8

// GATT characteristic property flags. Flags are independent and combine
// freely: a characteristic may be readable, writable and notifiable at
// the same time.
const (
	PropertyBroadcast Properties = 1 << iota
	PropertyRead
	PropertyWriteWithoutResponse
	PropertyWrite
	PropertyNotify
	PropertyIndicate
)

// Readable reports whether the characteristic supports reads.
func (p Properties) Readable() bool {
	return p&PropertyRead != 0
}

// Writable reports whether the characteristic supports writes,
// with or without response.
func (p Properties) Writable() bool {
	return p&(PropertyWrite|PropertyWriteWithoutResponse) != 0
}

// Notifiable reports whether the characteristic supports server-initiated
// value updates (notifications or indications).
func (p Properties) Notifiable() bool {
	return p&(PropertyNotify|PropertyIndicate) != 0
}

// String returns a pipe-separated list of set flags, or "none".
func (p Properties) String() string {
	var flags []string
	if p&PropertyBroadcast != 0 {
		flags = append(flags, "broadcast")
	}
	if p&PropertyRead != 0 {
		flags = append(flags, "read")
	}
	if p&PropertyWriteWithoutResponse != 0 {
		flags = append(flags, "write-no-rsp")
	}
	if p&PropertyWrite != 0 {
		flags = append(flags, "write")
	}
	if p&PropertyNotify != 0 {
		flags = append(flags, "notify")
	}
	if p&PropertyIndicate != 0 {
		flags = append(flags, "indicate")
	}
	if len(flags) == 0 {
		return "none"
	}
	return strings.Join(flags, "|")
}

// ConnState is the connection lifecycle state of a peripheral.
type ConnState int

// Connection states.
const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns a human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Characteristic is a single GATT data point, scoped to one device.
// Characteristics with identical UUIDs on different devices are
// distinct entities.
type Characteristic struct {
	// Service is the UUID of the containing GATT service.
	Service UUID

	// UUID identifies the characteristic within its service.
	UUID UUID

	// Properties are the capability flags from the GATT declaration.
	Properties Properties
}

// Key returns the identity of the characteristic within its device.
func (c Characteristic) Key() CharacteristicKey {
	return CharacteristicKey{Service: c.Service, Characteristic: c.UUID}
}

// CharacteristicKey identifies a characteristic within a device by its
// (service UUID, characteristic UUID) pair. Comparable; used as a map key.
type CharacteristicKey struct {
	Service        UUID
	Characteristic UUID
}

// Device is a BLE peripheral tracked by the bridge.
//
// The characteristic set is populated as a batch after GATT discovery
// completes and discarded as a batch on disconnect; it is never mutated
// incrementally in between.
type Device struct {
	// Addr is the hardware address, the device's identity.
	Addr MAC

	// Name is the advertised local name, if any.
	Name string

	// State is the connection lifecycle state.
	State ConnState

	// RSSI is the signal strength of the most recent advertisement, in dBm.
	RSSI int16

	// LastSeen is when the device last advertised or produced an event.
	LastSeen time.Time

	// Characteristics is the batch discovered for this device.
	Characteristics []Characteristic
}

// Clone returns an independent copy of the device, including the
// characteristic slice.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Characteristics != nil {
		cpy.Characteristics = make([]Characteristic, len(d.Characteristics))
		copy(cpy.Characteristics, d.Characteristics)
	}
	return &cpy
}
