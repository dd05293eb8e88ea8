// Package wifi supervises the wireless uplink the bridge depends on.
//
// The bridge cascades connectivity: no network means no broker, and no
// broker means no BLE activity. This package provides the bottom layer
// of that cascade by watching a network interface and reporting up/down
// transitions exactly once per change.
//
// # State detection
//
// Interface state is read from the kernel's operstate file
// (/sys/class/net/<iface>/operstate) on a fixed poll interval. A
// missing interface reads as down.
//
// # Supplicant management
//
// Optionally the supervisor owns the wpa_supplicant daemon through the
// process manager, restarting it on failure with backoff. Network
// credentials stay in the supplicant's own configuration file; the
// supervisor only ever logs the file path.
//
// # Usage
//
//	sup, err := wifi.NewSupervisor(wifi.Config{Interface: "wlan0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sup.SetOnUp(func() { /* network up */ })
//	sup.SetOnDown(func() { /* network down */ })
//	if err := sup.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Stop()
package wifi
