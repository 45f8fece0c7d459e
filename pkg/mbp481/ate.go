// SPDX-License-Identifier: MIT

package mbp481

import (
	"encoding/binary"
	"fmt"
)

// AteFrame is a binary test-mode request: preamble, opcode, two-byte length,
// payload, optional trailer.
//
// Opcode 0x0D is the empirically confirmed deviant: single-byte 0x55
// preamble, big-endian length, CR terminator, and an optional CRC-16/MODBUS
// trailer over opcode+length+payload. Every other opcode uses the full
// 0x55 0xAA preamble with little-endian length and no trailer.
type AteFrame struct {
	Opcode  byte
	Payload []byte
	WithCrc bool
}

// NewAteFrame builds an ATE frame after validating the payload length
// against maxPayload. The cap is deliberately configurable well past the
// known fault threshold so length-overflow probing stays possible.
func NewAteFrame(opcode byte, payload []byte, maxPayload int) (*AteFrame, error) {
	if maxPayload <= 0 {
		maxPayload = AteDefaultMaxPayload
	}
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("ate payload too large: %d bytes (max %d)", len(payload), maxPayload)
	}
	return &AteFrame{Opcode: opcode, Payload: payload}, nil
}

// NewAteOpcodeProbe builds a zero-length frame for sweeping the opcode space.
func NewAteOpcodeProbe(opcode byte) *AteFrame {
	return &AteFrame{Opcode: opcode}
}

// Family returns FamilyAte
func (f *AteFrame) Family() Family { return FamilyAte }

// Hazardous reports whether this frame matches the known memory-corruption
// vector: opcode 0x0D with a payload at or past the fault threshold.
func (f *AteFrame) Hazardous() bool {
	return f.Opcode == AteOpcodeWriteParam && len(f.Payload) >= AteHazardLength
}

// Encode serializes the frame to wire format.
func (f *AteFrame) Encode() []byte {
	if f.Opcode == AteOpcodeWriteParam {
		return f.encodeWriteParam()
	}
	buf := make([]byte, 0, 5+len(f.Payload))
	buf = append(buf, AtePreamble0, AtePreamble1, f.Opcode)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf
}

func (f *AteFrame) encodeWriteParam() []byte {
	body := make([]byte, 0, 3+len(f.Payload))
	body = append(body, f.Opcode)
	body = binary.BigEndian.AppendUint16(body, uint16(len(f.Payload)))
	body = append(body, f.Payload...)

	buf := make([]byte, 0, len(body)+4)
	buf = append(buf, AtePreamble0)
	buf = append(buf, body...)
	if f.WithCrc {
		buf = binary.LittleEndian.AppendUint16(buf, Crc16Modbus(body))
	}
	buf = append(buf, CrByte)
	return buf
}

// Describe returns a short human-readable tag for the log
func (f *AteFrame) Describe() string {
	tag := fmt.Sprintf("ATE op=0x%02X len=%d", f.Opcode, len(f.Payload))
	if f.WithCrc {
		tag += " +CRC"
	}
	if f.Hazardous() {
		tag += " HAZARD"
	}
	return tag
}
