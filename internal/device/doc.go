// Package device models BLE peripherals as the bridge sees them.
//
// It provides the addressing value types shared across the codebase
// (MAC addresses and service/characteristic UUIDs in both 16-bit and
// 128-bit forms), the GATT property flags, and an in-memory registry
// of peripherals keyed by hardware address.
//
// The registry holds only live state: a device is created when its
// advertisement is accepted, gains its characteristic set after GATT
// discovery, and is removed entirely on disconnect. Nothing here is
// persisted — the bridge rebuilds from live discovery on every
// connection cycle.
//
// # Usage
//
//	addr, err := device.ParseMAC("AA:BB:CC:DD:EE:FF")
//	if err != nil {
//	    return err
//	}
//
//	reg := device.NewRegistry()
//	reg.Add(&device.Device{Addr: addr, State: device.StateConnecting})
//
// All Registry methods are safe for concurrent use.
package device
