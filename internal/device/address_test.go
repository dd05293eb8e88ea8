package device

import (
	"errors"
	"testing"
)

func TestParseMAC(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // canonical String() form
	}{
		{"bare uppercase", "AABBCCDDEEFF", "AABBCCDDEEFF"},
		{"bare lowercase", "aabbccddeeff", "AABBCCDDEEFF"},
		{"colon uppercase", "AA:BB:CC:DD:EE:FF", "AABBCCDDEEFF"},
		{"colon lowercase", "aa:bb:cc:dd:ee:ff", "AABBCCDDEEFF"},
		{"mixed case", "aAbBcCdDeEfF", "AABBCCDDEEFF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMAC(tt.input)
			if err != nil {
				t.Fatalf("ParseMAC(%q) error: %v", tt.input, err)
			}
			if got := m.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseMACErrors(t *testing.T) {
	inputs := []string{
		"",
		"AABBCCDDEE",          // too short
		"AABBCCDDEEFF00",      // too long
		"GGBBCCDDEEFF",        // non-hex
		"AA:BB:CC:DD:EE",      // five octets
		"AA-BB-CC-DD-EE-FF",   // wrong separator
		"AAB:BCC:DDE:EFF",     // malformed grouping
		"AA:BB:CC:DD:EE:FFF",  // oversized octet (18 chars, not 17)
		"A:BB:CC:DD:EE:FF:00", // wrong shape at colon length
	}

	for _, input := range inputs {
		if _, err := ParseMAC(input); !errors.Is(err, ErrInvalidMAC) {
			t.Errorf("ParseMAC(%q) error = %v, want ErrInvalidMAC", input, err)
		}
	}
}

func TestMACFormsEqual(t *testing.T) {
	a, err := ParseMAC("AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseMAC("aabbccddeeff")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same address parsed from different forms compares unequal: %v vs %v", a, b)
	}
}

func TestMACColonString(t *testing.T) {
	m, err := ParseMAC("aabbccddeeff")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.ColonString(), "AA:BB:CC:DD:EE:FF"; got != want {
		t.Errorf("ColonString() = %q, want %q", got, want)
	}
}

func TestParseUUID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // canonical String() form
	}{
		{"16-bit", "2a37", "2a37"},
		{"16-bit uppercase", "2A37", "2a37"},
		{"128-bit bare", "6E400001B5A3F393E0A9E50E24DCCA9E", "6e400001b5a3f393e0a9e50e24dcca9e"},
		{"128-bit dashed", "6e400001-b5a3-f393-e0a9-e50e24dcca9e", "6e400001b5a3f393e0a9e50e24dcca9e"},
		{"base-range expansion renders short", "0000180d-0000-1000-8000-00805f9b34fb", "180d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseUUID(tt.input)
			if err != nil {
				t.Fatalf("ParseUUID(%q) error: %v", tt.input, err)
			}
			if got := u.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseUUIDErrors(t *testing.T) {
	inputs := []string{
		"",
		"2a3",                               // 3 chars
		"2a378",                             // 5 chars
		"2a3g",                              // non-hex short form
		"6e400001b5a3f393e0a9e50e24dcca9",   // 31 chars
		"6e400001b5a3f393e0a9e50e24dcca9ez", // 33 chars
	}

	for _, input := range inputs {
		if _, err := ParseUUID(input); !errors.Is(err, ErrInvalidUUID) {
			t.Errorf("ParseUUID(%q) error = %v, want ErrInvalidUUID", input, err)
		}
	}
}

func TestUUIDShortFormEquality(t *testing.T) {
	short, err := ParseUUID("180d")
	if err != nil {
		t.Fatal(err)
	}
	expanded, err := ParseUUID("0000180d00001000800000805f9b34fb")
	if err != nil {
		t.Fatal(err)
	}
	if short != expanded {
		t.Error("16-bit UUID and its base expansion compare unequal")
	}
	if !short.Is16Bit() {
		t.Error("Is16Bit() = false for a short UUID")
	}
	if v, ok := short.Short(); !ok || v != 0x180d {
		t.Errorf("Short() = %04x, %v; want 180d, true", v, ok)
	}
}

func TestUUIDFullFormNotShort(t *testing.T) {
	u, err := ParseUUID("6e400001b5a3f393e0a9e50e24dcca9e")
	if err != nil {
		t.Fatal(err)
	}
	if u.Is16Bit() {
		t.Error("Is16Bit() = true for a vendor UUID")
	}
	if _, ok := u.Short(); ok {
		t.Error("Short() ok for a vendor UUID")
	}
	if got, want := u.Canonical(), "6e400001-b5a3-f393-e0a9-e50e24dcca9e"; got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}

func TestNew16BitUUID(t *testing.T) {
	u := New16BitUUID(0x2a37)
	if got := u.String(); got != "2a37" {
		t.Errorf("String() = %q, want %q", got, "2a37")
	}
	if got, want := u.Canonical(), "00002a37-0000-1000-8000-00805f9b34fb"; got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}
