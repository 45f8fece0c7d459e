// SPDX-License-Identifier: MIT

package mbp481

import (
	"bytes"
	"testing"
)

func TestAteFrame_Encode_Standard(t *testing.T) {
	tests := []struct {
		name    string
		opcode  byte
		payload []byte
		expect  []byte
	}{
		{
			name:   "zero-length probe",
			opcode: 0x72,
			expect: []byte{0x55, 0xAA, 0x72, 0x00, 0x00},
		},
		{
			name:    "short payload little-endian length",
			opcode:  0x01,
			payload: []byte{0xDE, 0xAD},
			expect:  []byte{0x55, 0xAA, 0x01, 0x02, 0x00, 0xDE, 0xAD},
		},
		{
			name:    "length crosses the low byte",
			opcode:  0x30,
			payload: bytes.Repeat([]byte{0x41}, 300),
			// 300 = 0x012C, low byte first
			expect: append([]byte{0x55, 0xAA, 0x30, 0x2C, 0x01}, bytes.Repeat([]byte{0x41}, 300)...),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewAteFrame(tt.opcode, tt.payload, 0)
			if err != nil {
				t.Fatalf("NewAteFrame: %v", err)
			}
			got := f.Encode()
			if !bytes.Equal(got, tt.expect) {
				t.Errorf("Encode() = % X, want % X", got, tt.expect)
			}
		})
	}
}

func TestAteFrame_Encode_WriteParamVariant(t *testing.T) {
	// Opcode 0x0D uses single preamble, big-endian length, CR terminator
	f := &AteFrame{Opcode: AteOpcodeWriteParam, Payload: []byte{0xAA, 0xBB, 0xCC}}
	got := f.Encode()

	expect := []byte{0x55, 0x0D, 0x00, 0x03, 0xAA, 0xBB, 0xCC, 0x0D}
	if !bytes.Equal(got, expect) {
		t.Fatalf("Encode() = % X, want % X", got, expect)
	}
}

func TestAteFrame_Encode_WriteParamWithCrc(t *testing.T) {
	payload := []byte{0x11, 0x22}
	f := &AteFrame{Opcode: AteOpcodeWriteParam, Payload: payload, WithCrc: true}
	got := f.Encode()

	// body = opcode, length big-endian, payload
	body := []byte{0x0D, 0x00, 0x02, 0x11, 0x22}
	crc := Crc16Modbus(body)
	expect := append([]byte{0x55}, body...)
	expect = append(expect, byte(crc), byte(crc>>8))
	expect = append(expect, CrByte)

	if !bytes.Equal(got, expect) {
		t.Fatalf("Encode() = % X, want % X", got, expect)
	}
}

func TestAteFrame_Encode_WriteParamLengthBigEndian(t *testing.T) {
	f := &AteFrame{Opcode: AteOpcodeWriteParam, Payload: bytes.Repeat([]byte{0x00}, 300)}
	got := f.Encode()
	// 300 = 0x012C, high byte first on this vector
	if got[2] != 0x01 || got[3] != 0x2C {
		t.Errorf("length bytes = %02X %02X, want 01 2C", got[2], got[3])
	}
	if got[len(got)-1] != CrByte {
		t.Errorf("frame must be CR-terminated, last byte = 0x%02X", got[len(got)-1])
	}
}

func TestAteFrame_Hazardous(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		length int
		want   bool
	}{
		{"write-param below threshold", AteOpcodeWriteParam, AteHazardLength - 1, false},
		{"write-param at threshold", AteOpcodeWriteParam, AteHazardLength, true},
		{"write-param past threshold", AteOpcodeWriteParam, AteHazardLength + 100, true},
		{"other opcode at threshold", 0x72, AteHazardLength, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &AteFrame{Opcode: tt.opcode, Payload: make([]byte, tt.length)}
			if got := f.Hazardous(); got != tt.want {
				t.Errorf("Hazardous() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewAteFrame_PayloadCap(t *testing.T) {
	if _, err := NewAteFrame(0x01, make([]byte, 65), 64); err == nil {
		t.Error("expected error for payload past the cap, got nil")
	}
	if _, err := NewAteFrame(0x01, make([]byte, 64), 64); err != nil {
		t.Errorf("payload at the cap should be accepted: %v", err)
	}
	// Zero cap falls back to the default
	if _, err := NewAteFrame(0x01, make([]byte, AteDefaultMaxPayload), 0); err != nil {
		t.Errorf("default cap should accept %d bytes: %v", AteDefaultMaxPayload, err)
	}
	if _, err := NewAteFrame(0x01, make([]byte, AteDefaultMaxPayload+1), 0); err == nil {
		t.Error("expected error past the default cap, got nil")
	}
}

func TestAteFrame_Describe(t *testing.T) {
	f := &AteFrame{Opcode: AteOpcodeWriteParam, Payload: make([]byte, AteHazardLength)}
	desc := f.Describe()
	if !bytes.Contains([]byte(desc), []byte("HAZARD")) {
		t.Errorf("hazardous frame description should be marked: %q", desc)
	}
}
