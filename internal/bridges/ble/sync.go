package ble

import (
	"sync"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

// Synchronizer keeps the MQTT side of the bridge in lock-step with the
// characteristics of connected peripherals.
//
// When a device's services are discovered it derives, per
// characteristic: a get-topic subscription plus an immediate seed read
// for readable ones, a set-topic subscription for writable ones, and a
// notification registration for notifiable ones. When a device goes
// away it tears all of that down again. Payloads cross the bridge
// verbatim in both directions; the synchronizer never inspects them.
//
// Inbound MQTT messages are not acted on inline: handlers convert them
// to events and submit them to the bridge queue, so all BLE operations
// are issued from the dispatch goroutine.
//
// Thread Safety: All methods are safe for concurrent use.
type Synchronizer struct {
	codec    Codec
	mqtt     MQTTClient
	central  Central
	qos      byte
	retained bool
	submit   func(Event)

	// Per-device subscription bookkeeping, keyed by the properties
	// actually acted on at subscribe time.
	subs   map[device.MAC]map[device.CharacteristicKey]device.Properties
	subsMu sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex
}

// SynchronizerConfig holds construction parameters for a Synchronizer.
type SynchronizerConfig struct {
	// Codec maps characteristics to topics.
	Codec Codec

	// MQTT is the broker connection used for subscriptions and value
	// publications.
	MQTT MQTTClient

	// Central issues notification registrations.
	Central Central

	// QoS and Retained apply to all value publications.
	QoS      byte
	Retained bool

	// Submit enqueues an event on the bridge queue. Required.
	Submit func(Event)
}

// NewSynchronizer creates a synchronizer. Call OnServicesDiscovered
// and Teardown as devices come and go.
func NewSynchronizer(cfg SynchronizerConfig) *Synchronizer {
	return &Synchronizer{
		codec:    cfg.Codec,
		mqtt:     cfg.MQTT,
		central:  cfg.Central,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		submit:   cfg.Submit,
		subs:     make(map[device.MAC]map[device.CharacteristicKey]device.Properties),
	}
}

// OnServicesDiscovered wires up MQTT and notification plumbing for a
// device's characteristic batch.
//
// Per characteristic: readable ones get a get-topic subscription and a
// seed read request so the broker sees an initial value; writable ones
// get a set-topic subscription; notifiable ones get a notification
// registration. A characteristic with none of those properties is
// skipped entirely.
//
// Calling this again for a device that is already wired replaces its
// bookkeeping; the previous wiring is torn down first.
//
// Individual failures are logged and skip only the one characteristic;
// the rest of the batch still goes through.
func (s *Synchronizer) OnServicesDiscovered(addr device.MAC, chars []device.Characteristic) {
	s.subsMu.Lock()
	if _, ok := s.subs[addr]; ok {
		s.subsMu.Unlock()
		s.Teardown(addr)
		s.subsMu.Lock()
	}
	wired := make(map[device.CharacteristicKey]device.Properties, len(chars))
	s.subs[addr] = wired
	s.subsMu.Unlock()

	for _, ch := range chars {
		var acted device.Properties

		if ch.Properties.Readable() {
			if err := s.wireRead(addr, ch); err != nil {
				s.logWarn("get-topic wiring failed", "device", addr.String(), "characteristic", ch.UUID.String(), "error", err)
			} else {
				acted |= device.PropertyRead
			}
		}

		if ch.Properties.Writable() {
			if err := s.wireWrite(addr, ch); err != nil {
				s.logWarn("set-topic wiring failed", "device", addr.String(), "characteristic", ch.UUID.String(), "error", err)
			} else {
				acted |= device.PropertyWrite
			}
		}

		if ch.Properties.Notifiable() {
			if err := s.wireNotify(addr, ch); err != nil {
				s.logWarn("notification wiring failed", "device", addr.String(), "characteristic", ch.UUID.String(), "error", err)
			} else {
				acted |= device.PropertyNotify
			}
		}

		if acted != 0 {
			s.subsMu.Lock()
			wired[ch.Key()] = acted
			s.subsMu.Unlock()
		}
	}
}

// wireRead subscribes the characteristic's get-topic and seeds an
// initial read so the current value is published without waiting for
// an external request.
func (s *Synchronizer) wireRead(addr device.MAC, ch device.Characteristic) error {
	topic, err := s.codec.Encode(addr, ch.Service, ch.UUID, DirectionGet)
	if err != nil {
		return err
	}
	if err := s.mqtt.Subscribe(topic, s.qos, s.requestHandler(DirectionGet, EventReadRequest)); err != nil {
		return err
	}

	s.submit(Event{
		Kind:           EventReadRequest,
		Addr:           addr,
		Service:        ch.Service,
		Characteristic: ch.UUID,
	})
	return nil
}

// wireWrite subscribes the characteristic's set-topic.
func (s *Synchronizer) wireWrite(addr device.MAC, ch device.Characteristic) error {
	topic, err := s.codec.Encode(addr, ch.Service, ch.UUID, DirectionSet)
	if err != nil {
		return err
	}
	return s.mqtt.Subscribe(topic, s.qos, s.requestHandler(DirectionSet, EventWriteRequest))
}

// wireNotify registers for value notifications. The callback fires on
// the central's own goroutine, so it only enqueues an event.
func (s *Synchronizer) wireNotify(addr device.MAC, ch device.Characteristic) error {
	service, characteristic := ch.Service, ch.UUID
	return s.central.EnableNotifications(addr, service, characteristic, func(value []byte) {
		s.submit(Event{
			Kind:           EventValueChanged,
			Addr:           addr,
			Service:        service,
			Characteristic: characteristic,
			Value:          value,
		})
	})
}

// requestHandler builds the MQTT message handler for one direction.
// It strips the direction suffix, decodes the remaining three-segment
// topic, and enqueues the request; undecodable topics are dropped with
// a warning.
func (s *Synchronizer) requestHandler(dir Direction, kind EventKind) func(topic string, payload []byte) {
	return func(topic string, payload []byte) {
		bare := s.codec.TrimDirection(topic, dir)
		addr, service, characteristic, err := s.codec.Decode(bare)
		if err != nil {
			s.logWarn("dropping undecodable request", "topic", topic, "error", err)
			return
		}
		s.submit(Event{
			Kind:           kind,
			Addr:           addr,
			Service:        service,
			Characteristic: characteristic,
			Value:          payload,
			Topic:          bare,
		})
	}
}

// PublishValue publishes a characteristic value to its base topic,
// byte-for-byte as received from the device.
func (s *Synchronizer) PublishValue(addr device.MAC, service, characteristic device.UUID, value []byte) error {
	topic, err := s.codec.Encode(addr, service, characteristic, DirectionNone)
	if err != nil {
		return err
	}
	return s.mqtt.Publish(topic, value, s.qos, s.retained)
}

// PublishConnected publishes the device's connection status topic.
func (s *Synchronizer) PublishConnected(addr device.MAC, connected bool) error {
	return s.mqtt.Publish(ConnectedTopic(addr), connectedPayload(connected), s.qos, s.retained)
}

// Teardown reverses OnServicesDiscovered for one device: unsubscribes
// its get/set topics and disables its notifications. Safe to call for
// a device that was never wired, and safe to call twice; the second
// call is a no-op.
//
// Unsubscribe and notification failures are logged and skipped — on a
// dead broker or peripheral connection there is nothing left to undo.
func (s *Synchronizer) Teardown(addr device.MAC) {
	s.subsMu.Lock()
	wired, ok := s.subs[addr]
	delete(s.subs, addr)
	s.subsMu.Unlock()

	if !ok {
		return
	}

	for key, props := range wired {
		if props.Readable() {
			if topic, err := s.codec.Encode(addr, key.Service, key.Characteristic, DirectionGet); err == nil {
				if err := s.mqtt.Unsubscribe(topic); err != nil {
					s.logWarn("get-topic unsubscribe failed", "topic", topic, "error", err)
				}
			}
		}
		if props.Writable() {
			if topic, err := s.codec.Encode(addr, key.Service, key.Characteristic, DirectionSet); err == nil {
				if err := s.mqtt.Unsubscribe(topic); err != nil {
					s.logWarn("set-topic unsubscribe failed", "topic", topic, "error", err)
				}
			}
		}
		if props.Notifiable() {
			if err := s.central.DisableNotifications(addr, key.Service, key.Characteristic); err != nil {
				s.logWarn("notification disable failed", "device", addr.String(), "characteristic", key.Characteristic.String(), "error", err)
			}
		}
	}
}

// TeardownAll tears down every wired device. Used when the broker
// connection is lost.
func (s *Synchronizer) TeardownAll() {
	s.subsMu.Lock()
	addrs := make([]device.MAC, 0, len(s.subs))
	for addr := range s.subs {
		addrs = append(addrs, addr)
	}
	s.subsMu.Unlock()

	for _, addr := range addrs {
		s.Teardown(addr)
	}
}

// WiredCount returns the number of devices with active wiring.
func (s *Synchronizer) WiredCount() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// SetLogger sets the logger for the synchronizer.
func (s *Synchronizer) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// logWarn logs a warning if logger is set.
func (s *Synchronizer) logWarn(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
