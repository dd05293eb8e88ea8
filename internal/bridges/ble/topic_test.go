package ble

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

func mustMAC(t *testing.T, s string) device.MAC {
	t.Helper()
	m, err := device.ParseMAC(s)
	if err != nil {
		t.Fatalf("ParseMAC(%q): %v", s, err)
	}
	return m
}

func mustUUID(t *testing.T, s string) device.UUID {
	t.Helper()
	u, err := device.ParseUUID(s)
	if err != nil {
		t.Fatalf("ParseUUID(%q): %v", s, err)
	}
	return u
}

func TestCodecEncode(t *testing.T) {
	codec := NewCodec("/Get", "/Set")
	addr := mustMAC(t, "aa:bb:cc:dd:ee:ff")
	svc := mustUUID(t, "180d")
	chr := mustUUID(t, "2a37")

	tests := []struct {
		name string
		dir  Direction
		want string
	}{
		{"value topic", DirectionNone, "AABBCCDDEEFF/180d/2a37"},
		{"get topic", DirectionGet, "AABBCCDDEEFF/180d/2a37/Get"},
		{"set topic", DirectionSet, "AABBCCDDEEFF/180d/2a37/Set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Encode(addr, svc, chr, tt.dir)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodecEncode128Bit(t *testing.T) {
	codec := NewCodec("/Get", "/Set")
	addr := mustMAC(t, "112233445566")
	svc := mustUUID(t, "6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	chr := mustUUID(t, "6E400003B5A3F393E0A9E50E24DCCA9E")

	got, err := codec.Encode(addr, svc, chr, DirectionNone)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	want := "112233445566/6e400001b5a3f393e0a9e50e24dcca9e/6e400003b5a3f393e0a9e50e24dcca9e"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("/Get", "/Set")

	tests := []struct {
		name string
		addr string
		svc  string
		chr  string
	}{
		{"16-bit UUIDs", "AA:BB:CC:DD:EE:FF", "180d", "2a37"},
		{"128-bit UUIDs", "001122334455", "6e400001b5a3f393e0a9e50e24dcca9e", "6e400003b5a3f393e0a9e50e24dcca9e"},
		{"mixed widths", "FFEEDDCCBBAA", "180f", "6e400002b5a3f393e0a9e50e24dcca9e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := mustMAC(t, tt.addr)
			svc := mustUUID(t, tt.svc)
			chr := mustUUID(t, tt.chr)

			topic, err := codec.Encode(addr, svc, chr, DirectionNone)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			gotAddr, gotSvc, gotChr, err := codec.Decode(topic)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", topic, err)
			}
			if gotAddr != addr {
				t.Errorf("Decode() addr = %s, want %s", gotAddr, addr)
			}
			if gotSvc != svc {
				t.Errorf("Decode() service = %s, want %s", gotSvc, svc)
			}
			if gotChr != chr {
				t.Errorf("Decode() characteristic = %s, want %s", gotChr, chr)
			}
		})
	}
}

func TestCodecRoundTripWithSuffixes(t *testing.T) {
	codec := NewCodec("/Get", "/Set")
	addr := mustMAC(t, "AABBCCDDEEFF")
	svc := mustUUID(t, "180d")
	chr := mustUUID(t, "2a37")

	for _, dir := range []Direction{DirectionGet, DirectionSet} {
		topic, err := codec.Encode(addr, svc, chr, dir)
		if err != nil {
			t.Fatalf("Encode(%s) error: %v", dir, err)
		}

		bare := codec.TrimDirection(topic, dir)
		gotAddr, gotSvc, gotChr, err := codec.Decode(bare)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", bare, err)
		}
		if gotAddr != addr || gotSvc != svc || gotChr != chr {
			t.Errorf("%s round-trip lost the tuple: got (%s, %s, %s)", dir, gotAddr, gotSvc, gotChr)
		}
	}
}

func TestCodecInjective(t *testing.T) {
	codec := NewCodec("/Get", "/Set")

	// Distinct tuples that could collide under a sloppier rendering.
	tuples := []struct {
		addr, svc, chr string
		dir            Direction
	}{
		{"AABBCCDDEEFF", "180d", "2a37", DirectionNone},
		{"AABBCCDDEEFF", "180d", "2a37", DirectionGet},
		{"AABBCCDDEEFF", "180d", "2a37", DirectionSet},
		{"AABBCCDDEEFF", "2a37", "180d", DirectionNone},
		{"FFEEDDCCBBAA", "180d", "2a37", DirectionNone},
		{"AABBCCDDEEFF", "180f", "2a37", DirectionNone},
		// 16-bit UUID vs its own 128-bit expansion must render identically,
		// so it is the same tuple, not a collision. A different 128-bit UUID
		// must not collide with any short form.
		{"AABBCCDDEEFF", "6e400001b5a3f393e0a9e50e24dcca9e", "2a37", DirectionNone},
	}

	seen := make(map[string]int)
	for i, tt := range tuples {
		topic, err := codec.Encode(mustMAC(t, tt.addr), mustUUID(t, tt.svc), mustUUID(t, tt.chr), tt.dir)
		if err != nil {
			t.Fatalf("Encode(#%d) error: %v", i, err)
		}
		if prev, dup := seen[topic]; dup {
			t.Errorf("tuples #%d and #%d both encode to %q", prev, i, topic)
		}
		seen[topic] = i
	}
}

func TestCodecShortFormEqualsExpansion(t *testing.T) {
	codec := NewCodec("/Get", "/Set")
	addr := mustMAC(t, "AABBCCDDEEFF")
	chr := mustUUID(t, "2a37")

	short := mustUUID(t, "180d")
	expanded := mustUUID(t, "0000180d-0000-1000-8000-00805f9b34fb")

	a, err := codec.Encode(addr, short, chr, DirectionNone)
	if err != nil {
		t.Fatalf("Encode(short) error: %v", err)
	}
	b, err := codec.Encode(addr, expanded, chr, DirectionNone)
	if err != nil {
		t.Fatalf("Encode(expanded) error: %v", err)
	}
	if a != b {
		t.Errorf("short form %q != expanded form %q", a, b)
	}
}

func TestCodecDecodeErrors(t *testing.T) {
	codec := NewCodec("/Get", "/Set")

	tests := []struct {
		name    string
		topic   string
		wantErr error
	}{
		{"empty", "", ErrMalformedTopic},
		{"two segments", "AABBCCDDEEFF/180d", ErrMalformedTopic},
		{"four segments", "AABBCCDDEEFF/180d/2a37/extra", ErrMalformedTopic},
		{"bad mac", "ZZBBCCDDEEFF/180d/2a37", ErrInvalidAddress},
		{"short mac", "AABB/180d/2a37", ErrInvalidAddress},
		{"bad service", "AABBCCDDEEFF/18/2a37", ErrInvalidUUID},
		{"bad characteristic", "AABBCCDDEEFF/180d/2a3g", ErrInvalidUUID},
		{"empty segment", "AABBCCDDEEFF//2a37", ErrInvalidUUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := codec.Decode(tt.topic)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode(%q) error = %v, want %v", tt.topic, err, tt.wantErr)
			}
		})
	}
}

func TestCodecEncodeLengthBound(t *testing.T) {
	// Suffix length is not validated by the codec itself; an absurd one
	// must trip the bound rather than produce an oversized topic.
	codec := NewCodec("/"+strings.Repeat("G", MaxTopicLen), "/Set")
	addr := mustMAC(t, "AABBCCDDEEFF")
	svc := mustUUID(t, "180d")
	chr := mustUUID(t, "2a37")

	if _, err := codec.Encode(addr, svc, chr, DirectionGet); !errors.Is(err, ErrTopicTooLong) {
		t.Errorf("Encode() error = %v, want ErrTopicTooLong", err)
	}

	// The plain topic is unaffected by the broken suffix.
	if _, err := codec.Encode(addr, svc, chr, DirectionNone); err != nil {
		t.Errorf("Encode(DirectionNone) error = %v", err)
	}
}

func TestConnectedTopic(t *testing.T) {
	addr := mustMAC(t, "aa:bb:cc:dd:ee:ff")

	if got, want := ConnectedTopic(addr), "AABBCCDDEEFF/Connected"; got != want {
		t.Errorf("ConnectedTopic() = %q, want %q", got, want)
	}
	if got := string(connectedPayload(true)); got != "true" {
		t.Errorf("connectedPayload(true) = %q, want %q", got, "true")
	}
	if got := string(connectedPayload(false)); got != "false" {
		t.Errorf("connectedPayload(false) = %q, want %q", got, "false")
	}
}

func TestTrimDirectionNoSuffix(t *testing.T) {
	codec := NewCodec("/Get", "/Set")

	// A topic without the suffix passes through untouched.
	topic := "AABBCCDDEEFF/180d/2a37"
	if got := codec.TrimDirection(topic, DirectionGet); got != topic {
		t.Errorf("TrimDirection() = %q, want %q", got, topic)
	}
	if got := codec.TrimDirection(topic, DirectionNone); got != topic {
		t.Errorf("TrimDirection(DirectionNone) = %q, want %q", got, topic)
	}
}
