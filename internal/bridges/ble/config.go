package ble

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

// Config holds the runtime settings of the BLE bridge. It is built
// from the application configuration by the caller; Validate must
// pass before the config is handed to NewBridge.
type Config struct {
	// GetSuffix is appended to a characteristic's base topic to form
	// its read-request topic. Default: "/Get".
	GetSuffix string

	// SetSuffix is appended to a characteristic's base topic to form
	// its write-request topic. Default: "/Set".
	SetSuffix string

	// QoS is the quality of service for all value publications (0-2).
	QoS byte

	// Retained controls whether value publications are retained by
	// the broker.
	Retained bool

	// QueueSize is the capacity of the bridge event queue. Events
	// arriving while the queue is full are dropped with a warning.
	// Default: 64.
	QueueSize int

	// ReconnectInitialDelay is the first broker reconnect delay.
	// Doubles on each failed attempt up to ReconnectMaxDelay.
	// Default: 1s.
	ReconnectInitialDelay time.Duration

	// ReconnectMaxDelay caps the broker reconnect delay. Default: 60s.
	ReconnectMaxDelay time.Duration

	// OfflineHoldoff suppresses broker reconnect attempts while the
	// network is down; the cycle resumes when the network returns.
	// Default: true.
	OfflineHoldoff bool

	// Whitelist restricts connections to the listed addresses. When
	// non-empty, Blacklist must be empty.
	Whitelist []string

	// Blacklist blocks connections to the listed addresses. When
	// non-empty, Whitelist must be empty.
	Blacklist []string

	// StatusTopic is where the bridge publishes its own availability
	// ("online"/"offline") and registers its LWT. Default:
	// "ble2mqtt/status".
	StatusTopic string

	// HealthTopic is where periodic health documents are published.
	// Default: "ble2mqtt/health".
	HealthTopic string

	// HealthInterval is the health publication period. Default: 30s.
	HealthInterval time.Duration
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		GetSuffix:             "/Get",
		SetSuffix:             "/Set",
		QoS:                   0,
		Retained:              true,
		QueueSize:             64,
		ReconnectInitialDelay: time.Second,
		ReconnectMaxDelay:     60 * time.Second,
		OfflineHoldoff:        true,
		StatusTopic:           "ble2mqtt/status",
		HealthTopic:           "ble2mqtt/health",
		HealthInterval:        30 * time.Second,
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.validateSuffixes()...)
	errs = append(errs, c.validateTransport()...)
	errs = append(errs, c.validateReconnect()...)
	errs = append(errs, c.validateFilters()...)
	errs = append(errs, c.validateHealth()...)

	if len(errs) > 0 {
		return fmt.Errorf("ble configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateSuffixes checks the topic direction suffixes. They become
// part of subscribed topic filters, so MQTT wildcard characters are
// rejected. Slashes are fine: the request handlers strip the suffix
// before the remaining topic is decoded, so "/Get" adds a segment
// without confusing the codec.
func (c *Config) validateSuffixes() []string {
	var errs []string

	for name, s := range map[string]string{"get_suffix": c.GetSuffix, "set_suffix": c.SetSuffix} {
		switch {
		case s == "":
			errs = append(errs, name+" is required")
		case strings.ContainsAny(s, "+#"):
			errs = append(errs, fmt.Sprintf("%s %q must not contain '+' or '#'", name, s))
		}
	}

	if c.GetSuffix != "" && c.GetSuffix == c.SetSuffix {
		errs = append(errs, "get_suffix and set_suffix must differ")
	}

	return errs
}

// validateTransport checks QoS and queue settings.
func (c *Config) validateTransport() []string {
	var errs []string
	if c.QoS > 2 {
		errs = append(errs, "qos must be 0, 1, or 2")
	}
	if c.QueueSize < 1 {
		errs = append(errs, "queue_size must be at least 1")
	}
	return errs
}

// validateReconnect checks the broker reconnect backoff bounds.
func (c *Config) validateReconnect() []string {
	var errs []string
	if c.ReconnectInitialDelay < 0 {
		errs = append(errs, "reconnect_initial_delay must not be negative")
	}
	if c.ReconnectMaxDelay < c.ReconnectInitialDelay {
		errs = append(errs, "reconnect_max_delay must be at least reconnect_initial_delay")
	}
	return errs
}

// validateFilters checks the device filter lists.
func (c *Config) validateFilters() []string {
	var errs []string

	if len(c.Whitelist) > 0 && len(c.Blacklist) > 0 {
		errs = append(errs, "whitelist and blacklist are mutually exclusive")
	}
	for i, s := range c.Whitelist {
		if _, err := device.ParseMAC(s); err != nil {
			errs = append(errs, fmt.Sprintf("whitelist[%d] %q is not a valid address", i, s))
		}
	}
	for i, s := range c.Blacklist {
		if _, err := device.ParseMAC(s); err != nil {
			errs = append(errs, fmt.Sprintf("blacklist[%d] %q is not a valid address", i, s))
		}
	}

	return errs
}

// validateHealth checks status and health reporting settings.
func (c *Config) validateHealth() []string {
	var errs []string
	if c.StatusTopic == "" {
		errs = append(errs, "status_topic is required")
	}
	if c.HealthTopic == "" {
		errs = append(errs, "health_topic is required")
	}
	if c.HealthInterval < time.Second {
		errs = append(errs, "health_interval must be at least 1 second")
	}
	return errs
}

// ConnectPolicy decides whether the bridge should connect to a
// discovered peripheral.
type ConnectPolicy interface {
	// ShouldConnect reports whether a connection to addr is allowed.
	ShouldConnect(addr device.MAC) bool
}

// ListPolicy implements ConnectPolicy from whitelist/blacklist config.
// An empty policy allows everything.
type ListPolicy struct {
	allow map[device.MAC]bool
	deny  map[device.MAC]bool
}

// NewListPolicy builds a ListPolicy from the config lists. Addresses
// must already have passed Config.Validate; unparsable entries are
// ignored here.
func NewListPolicy(whitelist, blacklist []string) *ListPolicy {
	p := &ListPolicy{}
	if len(whitelist) > 0 {
		p.allow = make(map[device.MAC]bool, len(whitelist))
		for _, s := range whitelist {
			if addr, err := device.ParseMAC(s); err == nil {
				p.allow[addr] = true
			}
		}
	}
	if len(blacklist) > 0 {
		p.deny = make(map[device.MAC]bool, len(blacklist))
		for _, s := range blacklist {
			if addr, err := device.ParseMAC(s); err == nil {
				p.deny[addr] = true
			}
		}
	}
	return p
}

// ShouldConnect reports whether a connection to addr is allowed.
// With a whitelist, only listed addresses pass; with a blacklist,
// everything but the listed addresses passes.
func (p *ListPolicy) ShouldConnect(addr device.MAC) bool {
	if p.allow != nil {
		return p.allow[addr]
	}
	if p.deny != nil {
		return !p.deny[addr]
	}
	return true
}
