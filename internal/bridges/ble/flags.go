package ble

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

// BlueZ D-Bus names used by the flags resolver.
const (
	bluezService     = "org.bluez"
	bluezServiceIntf = "org.bluez.GattService1"
	bluezCharIntf    = "org.bluez.GattCharacteristic1"
)

// FlagsResolver reads characteristic property flags from BlueZ over
// D-Bus. The GATT client library exposes discovered characteristics
// but not their flags; BlueZ publishes them on the system bus, so
// after discovery the resolver walks the object tree of the connected
// device and maps each characteristic to its declared properties.
//
// A resolver holds one shared system bus connection. Safe for
// concurrent use; the bus connection serialises calls internally.
type FlagsResolver struct {
	conn *dbus.Conn
}

// NewFlagsResolver connects to the system bus.
func NewFlagsResolver() (*FlagsResolver, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("ble: connecting to system bus: %w", err)
	}
	return &FlagsResolver{conn: conn}, nil
}

// Close releases the bus connection.
func (f *FlagsResolver) Close() error {
	return f.conn.Close()
}

// Lookup returns the property flags of every characteristic BlueZ has
// resolved for the device, keyed by (service UUID, characteristic
// UUID). Must be called after GATT discovery has completed, or the
// object tree will be empty.
func (f *FlagsResolver) Lookup(addr device.MAC) (map[device.CharacteristicKey]device.Properties, error) {
	objects := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)
	obj := f.conn.Object(bluezService, "/")
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("ble: listing bluez objects: %w", err)
	}

	// Object paths under the device look like
	// /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF/serviceXXXX/charYYYY.
	fragment := "/dev_" + strings.ReplaceAll(addr.ColonString(), ":", "_") + "/"

	// First pass: service path → service UUID.
	serviceUUIDs := make(map[dbus.ObjectPath]device.UUID)
	for path, interfaces := range objects {
		if !strings.Contains(string(path), fragment) {
			continue
		}
		props, ok := interfaces[bluezServiceIntf]
		if !ok {
			continue
		}
		raw, ok := props["UUID"].Value().(string)
		if !ok {
			continue
		}
		u, err := device.ParseUUID(raw)
		if err != nil {
			continue
		}
		serviceUUIDs[path] = u
	}

	// Second pass: characteristics, joined to their service by path.
	out := make(map[device.CharacteristicKey]device.Properties)
	for path, interfaces := range objects {
		if !strings.Contains(string(path), fragment) {
			continue
		}
		props, ok := interfaces[bluezCharIntf]
		if !ok {
			continue
		}

		rawUUID, ok := props["UUID"].Value().(string)
		if !ok {
			continue
		}
		charUUID, err := device.ParseUUID(rawUUID)
		if err != nil {
			continue
		}

		svcPath, ok := props["Service"].Value().(dbus.ObjectPath)
		if !ok {
			continue
		}
		svcUUID, ok := serviceUUIDs[svcPath]
		if !ok {
			continue
		}

		flags, ok := props["Flags"].Value().([]string)
		if !ok {
			continue
		}

		out[device.CharacteristicKey{Service: svcUUID, Characteristic: charUUID}] = parseFlags(flags)
	}

	return out, nil
}

// parseFlags converts BlueZ flag strings to a property bitmask.
// Unknown flags (extended properties, secure variants) are ignored.
func parseFlags(flags []string) device.Properties {
	var p device.Properties
	for _, flag := range flags {
		switch flag {
		case "broadcast":
			p |= device.PropertyBroadcast
		case "read":
			p |= device.PropertyRead
		case "write-without-response":
			p |= device.PropertyWriteWithoutResponse
		case "write":
			p |= device.PropertyWrite
		case "notify":
			p |= device.PropertyNotify
		case "indicate":
			p |= device.PropertyIndicate
		}
	}
	return p
}
