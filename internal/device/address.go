package device

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MAC address text lengths.
const (
	macBareLen  = 12 // "AABBCCDDEEFF"
	macColonLen = 17 // "AA:BB:CC:DD:EE:FF"

	macOctets = 6
)

// MAC is a 6-byte Bluetooth hardware address, stored in transmission
// order (the order the octets appear in the textual form).
type MAC [6]byte

// ParseMAC parses a MAC address string.
//
// Accepts formats:
//   - "AABBCCDDEEFF" — 12 hex digits, no separators
//   - "AA:BB:CC:DD:EE:FF" — colon-separated octets
//
// Both are case-insensitive.
//
// Returns:
//   - MAC: Parsed address
//   - error: ErrInvalidMAC if parsing fails
func ParseMAC(s string) (MAC, error) {
	var m MAC

	switch len(s) {
	case macBareLen:
		if _, err := hex.Decode(m[:], []byte(s)); err != nil {
			return MAC{}, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
		}
	case macColonLen:
		parts := strings.Split(s, ":")
		if len(parts) != macOctets {
			return MAC{}, fmt.Errorf("%w: expected 6 colon-separated octets, got %q", ErrInvalidMAC, s)
		}
		for i, part := range parts {
			if len(part) != 2 {
				return MAC{}, fmt.Errorf("%w: octet %d malformed in %q", ErrInvalidMAC, i, s)
			}
			if _, err := hex.Decode(m[i:i+1], []byte(part)); err != nil {
				return MAC{}, fmt.Errorf("%w: octet %d malformed in %q", ErrInvalidMAC, i, s)
			}
		}
	default:
		return MAC{}, fmt.Errorf("%w: expected 12 hex digits or colon-separated form, got %q", ErrInvalidMAC, s)
	}

	return m, nil
}

// String returns the canonical textual form used throughout the bridge:
// 12 uppercase hex digits with no separators.
//
// Example: "AABBCCDDEEFF"
func (m MAC) String() string {
	return strings.ToUpper(hex.EncodeToString(m[:]))
}

// ColonString returns the colon-separated uppercase form used by the
// host Bluetooth stack.
//
// Example: "AA:BB:CC:DD:EE:FF"
func (m MAC) ColonString() string {
	parts := make([]string, macOctets)
	for i, b := range m {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// bluetoothBaseUUID is the Bluetooth SIG base UUID. A 16-bit UUID XXXX
// expands to 0000XXXX-0000-1000-8000-00805F9B34FB.
var bluetoothBaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// UUID text lengths accepted by ParseUUID.
const (
	uuidShortLen     = 4  // "2a37"
	uuidBareLen      = 32 // dash-free 128-bit form
	uuidCanonicalLen = 36 // dashed 128-bit form
)

// UUID identifies a GATT service or characteristic.
//
// Both Bluetooth UUID widths are supported: 16-bit UUIDs are stored
// expanded over the Bluetooth base UUID and render back to their short
// form, so a UUID parsed from "2a37" and one parsed from its full
// 128-bit expansion compare equal.
type UUID struct {
	id uuid.UUID
}

// ParseUUID parses a service or characteristic UUID string.
//
// Accepts formats:
//   - "2a37" — 16-bit form, 4 hex digits
//   - "6e400001b5a3f393e0a9e50e24dcca9e" — 128-bit form, 32 hex digits
//   - "6e400001-b5a3-f393-e0a9-e50e24dcca9e" — dashed 128-bit form
//
// All are case-insensitive.
//
// Returns:
//   - UUID: Parsed UUID
//   - error: ErrInvalidUUID if parsing fails
func ParseUUID(s string) (UUID, error) {
	switch len(s) {
	case uuidShortLen:
		var b [2]byte
		if _, err := hex.Decode(b[:], []byte(s)); err != nil {
			return UUID{}, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
		}
		return New16BitUUID(uint16(b[0])<<8 | uint16(b[1])), nil
	case uuidBareLen, uuidCanonicalLen:
		id, err := uuid.Parse(s)
		if err != nil {
			return UUID{}, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
		}
		return UUID{id: id}, nil
	default:
		return UUID{}, fmt.Errorf("%w: expected 4, 32 or 36 characters, got %q", ErrInvalidUUID, s)
	}
}

// New16BitUUID expands a 16-bit UUID over the Bluetooth base UUID.
func New16BitUUID(v uint16) UUID {
	id := bluetoothBaseUUID
	id[2] = byte(v >> 8)
	id[3] = byte(v)
	return UUID{id: id}
}

// UUIDFromBytes creates a UUID from raw 128-bit big-endian bytes.
func UUIDFromBytes(b [16]byte) UUID {
	return UUID{id: uuid.UUID(b)}
}

// Is16Bit reports whether the UUID lies in the 16-bit range of the
// Bluetooth base UUID.
func (u UUID) Is16Bit() bool {
	masked := u.id
	masked[2], masked[3] = 0, 0
	return masked == bluetoothBaseUUID
}

// Short returns the 16-bit value of a base-UUID-range UUID.
// The second return is false for full 128-bit UUIDs.
func (u UUID) Short() (uint16, bool) {
	if !u.Is16Bit() {
		return 0, false
	}
	return uint16(u.id[2])<<8 | uint16(u.id[3]), true
}

// String returns the canonical textual form used in topics: 4 lowercase
// hex digits for 16-bit UUIDs, 32 lowercase hex digits otherwise.
// No dashes in either form.
func (u UUID) String() string {
	if v, ok := u.Short(); ok {
		return fmt.Sprintf("%04x", v)
	}
	return hex.EncodeToString(u.id[:])
}

// Canonical returns the dashed lowercase 128-bit form, always fully
// expanded. Used when talking to the host Bluetooth stack.
//
// Example: "00002a37-0000-1000-8000-00805f9b34fb"
func (u UUID) Canonical() string {
	return u.id.String()
}

// Bytes returns the raw 128-bit big-endian representation.
func (u UUID) Bytes() [16]byte {
	return [16]byte(u.id)
}
