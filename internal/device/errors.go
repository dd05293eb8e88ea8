package device

import "errors"

// Domain errors for the device package.
var (
	// ErrInvalidMAC is returned when a MAC address string cannot be parsed.
	ErrInvalidMAC = errors.New("device: invalid MAC address")

	// ErrInvalidUUID is returned when a UUID string cannot be parsed as
	// either a 16-bit or 128-bit Bluetooth UUID.
	ErrInvalidUUID = errors.New("device: invalid UUID")

	// ErrNotFound is returned when a device is not present in the registry.
	ErrNotFound = errors.New("device: not found")

	// ErrAlreadyTracked is returned when adding a device whose address is
	// already present in the registry.
	ErrAlreadyTracked = errors.New("device: already tracked")
)
