package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRSSI records an advertisement signal strength sample.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - address: Device MAC address (12 uppercase hex digits)
//   - rssi: Signal strength in dBm (negative, closer to 0 is stronger)
//
// Example:
//
//	client.WriteRSSI("AABBCCDDEEFF", -67)
func (c *Client) WriteRSSI(address string, rssi int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"rssi",
		map[string]string{
			"device": address,
		},
		map[string]interface{}{
			"dbm": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceConnected records a connection state change.
//
// Parameters:
//   - address: Device MAC address
//   - connected: true on connect, false on disconnect
func (c *Client) WriteDeviceConnected(address string, connected bool) {
	if !c.IsConnected() {
		return
	}

	state := 0
	if connected {
		state = 1
	}

	point := write.NewPoint(
		"connection",
		map[string]string{
			"device": address,
		},
		map[string]interface{}{
			"connected": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeCounters records a snapshot of bridge-level counters.
//
// Called periodically by the health reporter so counter history is
// queryable alongside per-device series.
//
// Parameters:
//   - fields: Counter names and values (e.g., "values_published": 1234)
func (c *Client) WriteBridgeCounters(fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint("bridge", nil, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

