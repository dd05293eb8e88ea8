package device

import (
	"fmt"
	"sync"
)

// Registry is the in-memory set of peripherals the bridge currently
// knows about, keyed by hardware address.
//
// Lifecycle mutations arrive from the bridge's single dispatch context,
// but health reporting and metrics read concurrently, so all access is
// guarded by a read-write mutex.
type Registry struct {
	mu      sync.RWMutex
	devices map[MAC]*Device
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[MAC]*Device),
	}
}

// Add inserts a device into the registry.
// Returns ErrAlreadyTracked if the address is already present.
func (r *Registry) Add(d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[d.Addr]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, d.Addr)
	}
	r.devices[d.Addr] = d
	return nil
}

// Get retrieves the live device record for an address.
// The returned pointer is the registry's own record; only the owning
// dispatch context may mutate it.
func (r *Registry) Get(addr MAC) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[addr]
	return d, ok
}

// Remove deletes a device from the registry.
// Returns ErrNotFound if the address is not tracked.
func (r *Registry) Remove(addr MAC) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	delete(r.devices, addr)
	return nil
}

// SetState updates a device's connection state.
// Returns ErrNotFound if the address is not tracked.
func (r *Registry) SetState(addr MAC, state ConnState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	d.State = state
	return nil
}

// SetCharacteristics replaces a device's discovered characteristics.
// Returns ErrNotFound if the address is not tracked.
func (r *Registry) SetCharacteristics(addr MAC, chars []Characteristic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	d.Characteristics = append([]Characteristic(nil), chars...)
	return nil
}

// List returns a snapshot of all tracked devices.
// Entries are clones; callers can inspect them without holding locks.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d.Clone())
	}
	return out
}

// Addresses returns the addresses of all tracked devices.
func (r *Registry) Addresses() []MAC {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]MAC, 0, len(r.devices))
	for addr := range r.devices {
		out = append(out, addr)
	}
	return out
}

// Count returns the number of tracked devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// ConnectedCount returns the number of devices in the connected state.
func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, d := range r.devices {
		if d.State == StateConnected {
			n++
		}
	}
	return n
}
