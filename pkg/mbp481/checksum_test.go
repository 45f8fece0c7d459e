// SPDX-License-Identifier: MIT

package mbp481

import "testing"

func TestCrc16Modbus_KnownVector(t *testing.T) {
	// Standard CRC-16/MODBUS check value
	got := Crc16Modbus([]byte("123456789"))
	if got != 0x4B37 {
		t.Errorf("Crc16Modbus(\"123456789\") = 0x%04X, want 0x4B37", got)
	}
}

func TestCrc16Modbus_Empty(t *testing.T) {
	if got := Crc16Modbus(nil); got != 0xFFFF {
		t.Errorf("Crc16Modbus(nil) = 0x%04X, want init value 0xFFFF", got)
	}
}

func TestXorChecksum(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		expect byte
	}{
		{"empty", nil, 0x00},
		{"single byte", []byte{0xA5}, 0xA5},
		{"self-cancelling pair", []byte{0x5A, 0x5A}, 0x00},
		{"mixed", []byte{0x1B, 'R', 0x00, 0x00, 0x00, 0x80, 0x00, 0x01}, 0x1B ^ 'R' ^ 0x80 ^ 0x01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := XorChecksum(tt.input); got != tt.expect {
				t.Errorf("XorChecksum(%v) = 0x%02X, want 0x%02X", tt.input, got, tt.expect)
			}
		})
	}
}

func TestXorChecksum_AppendCancels(t *testing.T) {
	// XOR of a buffer with its own checksum appended is always zero
	data := []byte{0x01, 0x02, 0x03, 0xFE}
	sum := XorChecksum(data)
	if got := XorChecksum(append(data, sum)); got != 0 {
		t.Errorf("checksum over data+checksum = 0x%02X, want 0x00", got)
	}
}
