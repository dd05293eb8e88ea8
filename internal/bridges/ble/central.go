package ble

import (
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

// readBufferSize is the scratch buffer size for characteristic reads.
// ATT values are at most 512 bytes.
const readBufferSize = 512

// BlueZCentral implements Central over the host Bluetooth stack.
//
// Asynchronous operations (connect, discovery, read) run on their own
// goroutines and deliver results as events through the submit
// callback, matching the fire-and-forget contract of the Central
// interface. Characteristic property flags come from the FlagsResolver
// when one is configured; without it every characteristic is treated
// as read-only.
type BlueZCentral struct {
	adapter *bluetooth.Adapter
	submit  func(Event)
	flags   *FlagsResolver // Optional; nil falls back to read-only

	mu       sync.Mutex
	scanning bool
	conns    map[device.MAC]*peripheral

	logger   Logger
	loggerMu sync.RWMutex
}

// peripheral tracks one connected device and its discovered
// characteristic handles.
type peripheral struct {
	dev   bluetooth.Device
	chars map[device.CharacteristicKey]bluetooth.DeviceCharacteristic
}

// CentralOptions holds configuration for creating a central.
type CentralOptions struct {
	// Submit enqueues an event on the bridge queue. Required.
	Submit func(Event)

	// Flags is the optional characteristic flags resolver.
	Flags *FlagsResolver

	// Logger is optional structured logger.
	Logger Logger
}

// NewCentral creates a central over the default host adapter.
// Call Enable before any other method.
func NewCentral(opts CentralOptions) (*BlueZCentral, error) {
	if opts.Submit == nil {
		return nil, fmt.Errorf("submit callback is required")
	}
	return &BlueZCentral{
		adapter: bluetooth.DefaultAdapter,
		submit:  opts.Submit,
		flags:   opts.Flags,
		conns:   make(map[device.MAC]*peripheral),
		logger:  opts.Logger,
	}, nil
}

// Enable powers on the adapter and registers the disconnect handler.
func (c *BlueZCentral) Enable() error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enabling adapter: %w", err)
	}

	// The stack fires this for both directions; connects are reported
	// from the Connect goroutine instead, so only disconnects matter
	// here. Unsolicited drops (out of range, power loss) arrive this
	// way.
	c.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr, err := device.ParseMAC(d.Address.String())
		if err != nil {
			return
		}
		c.mu.Lock()
		_, tracked := c.conns[addr]
		delete(c.conns, addr)
		c.mu.Unlock()
		if tracked {
			c.submit(Event{Kind: EventDeviceDisconnected, Addr: addr})
		}
	})

	return nil
}

// StartScan begins advertisement scanning on a background goroutine.
// Each sighting is submitted as EventDeviceDiscovered; duplicate
// filtering is the coordinator's job.
func (c *BlueZCentral) StartScan() error {
	c.mu.Lock()
	if c.scanning {
		c.mu.Unlock()
		return ErrAlreadyScanning
	}
	c.scanning = true
	c.mu.Unlock()

	go func() {
		// Scan blocks until StopScan; runs the callback per advertisement.
		err := c.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			addr, perr := device.ParseMAC(result.Address.String())
			if perr != nil {
				return
			}
			c.submit(Event{
				Kind: EventDeviceDiscovered,
				Addr: addr,
				Name: result.LocalName(),
				RSSI: result.RSSI,
			})
		})
		c.mu.Lock()
		c.scanning = false
		c.mu.Unlock()
		if err != nil {
			c.logError("scan terminated", err)
			c.submit(Event{Kind: EventScanStopped, Err: err})
		}
	}()

	return nil
}

// StopScan stops advertisement scanning.
func (c *BlueZCentral) StopScan() error {
	c.mu.Lock()
	scanning := c.scanning
	c.mu.Unlock()
	if !scanning {
		return nil
	}
	if err := c.adapter.StopScan(); err != nil {
		return fmt.Errorf("ble: stopping scan: %w", err)
	}
	return nil
}

// Connect starts a connection attempt. The stack's Connect blocks with
// its own timeout, so it runs on a goroutine; success arrives as
// EventDeviceConnected, failure as EventDeviceDisconnected.
func (c *BlueZCentral) Connect(addr device.MAC) error {
	var target bluetooth.Address
	target.Set(addr.ColonString())

	go func() {
		dev, err := c.adapter.Connect(target, bluetooth.ConnectionParams{})
		if err != nil {
			c.submit(Event{Kind: EventDeviceDisconnected, Addr: addr, Err: err})
			return
		}

		c.mu.Lock()
		c.conns[addr] = &peripheral{
			dev:   dev,
			chars: make(map[device.CharacteristicKey]bluetooth.DeviceCharacteristic),
		}
		c.mu.Unlock()

		c.submit(Event{Kind: EventDeviceConnected, Addr: addr})
	}()

	return nil
}

// Disconnect drops the connection to one peripheral. The resulting
// disconnect callback clears the tracking entry and notifies the
// bridge.
func (c *BlueZCentral) Disconnect(addr device.MAC) error {
	c.mu.Lock()
	p, ok := c.conns[addr]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, addr)
	}
	if err := p.dev.Disconnect(); err != nil {
		return fmt.Errorf("ble: disconnecting %s: %w", addr, err)
	}
	return nil
}

// DisconnectAll drops every peripheral connection.
func (c *BlueZCentral) DisconnectAll() {
	c.mu.Lock()
	peripherals := make([]*peripheral, 0, len(c.conns))
	for _, p := range c.conns {
		peripherals = append(peripherals, p)
	}
	c.mu.Unlock()

	for _, p := range peripherals {
		if err := p.dev.Disconnect(); err != nil {
			c.logError("disconnect failed", err)
		}
	}
}

// DiscoverServices starts GATT discovery on a goroutine. The full
// characteristic batch arrives as one EventServicesDiscovered; a
// discovery failure drops the connection instead, since a device whose
// services cannot be enumerated is useless to the bridge.
func (c *BlueZCentral) DiscoverServices(addr device.MAC) error {
	c.mu.Lock()
	p, ok := c.conns[addr]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, addr)
	}

	go func() {
		chars, handles, err := c.discover(addr, p)
		if err != nil {
			c.logError("service discovery failed", err)
			//nolint:errcheck // Connection is being abandoned either way
			p.dev.Disconnect()
			return
		}

		c.mu.Lock()
		p.chars = handles
		c.mu.Unlock()

		c.submit(Event{Kind: EventServicesDiscovered, Addr: addr, Characteristics: chars})
	}()

	return nil
}

// discover enumerates all services and characteristics and resolves
// their property flags.
func (c *BlueZCentral) discover(addr device.MAC, p *peripheral) ([]device.Characteristic, map[device.CharacteristicKey]bluetooth.DeviceCharacteristic, error) {
	services, err := p.dev.DiscoverServices(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ble: discovering services of %s: %w", addr, err)
	}

	var flags map[device.CharacteristicKey]device.Properties
	if c.flags != nil {
		flags, err = c.flags.Lookup(addr)
		if err != nil {
			c.logError("flags lookup failed, assuming read-only", err)
			flags = nil
		}
	}

	var chars []device.Characteristic
	handles := make(map[device.CharacteristicKey]bluetooth.DeviceCharacteristic)

	for _, svc := range services {
		svcUUID, perr := device.ParseUUID(svc.UUID().String())
		if perr != nil {
			continue
		}

		discovered, derr := svc.DiscoverCharacteristics(nil)
		if derr != nil {
			return nil, nil, fmt.Errorf("ble: discovering characteristics of %s/%s: %w", addr, svcUUID, derr)
		}

		for _, dc := range discovered {
			charUUID, perr := device.ParseUUID(dc.UUID().String())
			if perr != nil {
				continue
			}

			key := device.CharacteristicKey{Service: svcUUID, Characteristic: charUUID}
			props, ok := flags[key]
			if !ok {
				// No flags available; reading is the only safe assumption.
				props = device.PropertyRead
			}

			handles[key] = dc
			chars = append(chars, device.Characteristic{
				Service:    svcUUID,
				UUID:       charUUID,
				Properties: props,
			})
		}
	}

	return chars, handles, nil
}

// Read starts a characteristic read on a goroutine. The value arrives
// as EventValueChanged.
func (c *BlueZCentral) Read(addr device.MAC, service, characteristic device.UUID) error {
	dc, err := c.handle(addr, service, characteristic)
	if err != nil {
		return err
	}

	go func() {
		buf := make([]byte, readBufferSize)
		n, rerr := dc.Read(buf)
		if rerr != nil {
			c.logError("characteristic read failed", rerr)
			return
		}
		c.submit(Event{
			Kind:           EventValueChanged,
			Addr:           addr,
			Service:        service,
			Characteristic: characteristic,
			Value:          buf[:n],
		})
	}()

	return nil
}

// Write writes a characteristic value.
func (c *BlueZCentral) Write(addr device.MAC, service, characteristic device.UUID, value []byte) error {
	dc, err := c.handle(addr, service, characteristic)
	if err != nil {
		return err
	}
	if _, err := dc.WriteWithoutResponse(value); err != nil {
		return fmt.Errorf("ble: writing %s/%s: %w", addr, characteristic, err)
	}
	return nil
}

// EnableNotifications registers a value-change callback. The stack
// invokes it on its own goroutine; callers must only enqueue from it.
func (c *BlueZCentral) EnableNotifications(addr device.MAC, service, characteristic device.UUID, callback func(value []byte)) error {
	dc, err := c.handle(addr, service, characteristic)
	if err != nil {
		return err
	}
	if err := dc.EnableNotifications(callback); err != nil {
		return fmt.Errorf("ble: enabling notifications on %s/%s: %w", addr, characteristic, err)
	}
	return nil
}

// DisableNotifications removes a value-change callback.
func (c *BlueZCentral) DisableNotifications(addr device.MAC, service, characteristic device.UUID) error {
	dc, err := c.handle(addr, service, characteristic)
	if err != nil {
		return err
	}
	if err := dc.EnableNotifications(nil); err != nil {
		return fmt.Errorf("ble: disabling notifications on %s/%s: %w", addr, characteristic, err)
	}
	return nil
}

// handle looks up the discovered characteristic handle.
func (c *BlueZCentral) handle(addr device.MAC, service, characteristic device.UUID) (bluetooth.DeviceCharacteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.conns[addr]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %s", ErrNotConnected, addr)
	}
	dc, ok := p.chars[device.CharacteristicKey{Service: service, Characteristic: characteristic}]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %s/%s on %s", ErrUnknownDevice, service, characteristic, addr)
	}
	return dc, nil
}

// SetLogger sets the logger for the central.
func (c *BlueZCentral) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// logError logs an error if logger is set.
func (c *BlueZCentral) logError(msg string, err error) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// Compile-time check that BlueZCentral implements Central.
var _ Central = (*BlueZCentral)(nil)
