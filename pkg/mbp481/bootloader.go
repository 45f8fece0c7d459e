// SPDX-License-Identifier: MIT

package mbp481

import (
	"encoding/binary"
	"fmt"
)

// BootLoaderFrame is a memory-access request for the suspected bootloader
// parser: ESC, opcode, address (4 bytes little-endian), length (2 bytes
// little-endian), and optionally a one-byte XOR checksum over everything
// before it.
//
// No accepted framing has been confirmed on hardware, so both the checksum
// and no-checksum variants must be emittable; the dispatcher tries them
// deterministically and records which one the device tolerates.
type BootLoaderFrame struct {
	Op           byte
	Addr         uint32
	Length       uint16
	WithChecksum bool
}

// NewBootLoaderFrame builds a bootloader frame request.
func NewBootLoaderFrame(op byte, addr uint32, length uint16, withChecksum bool) *BootLoaderFrame {
	return &BootLoaderFrame{Op: op, Addr: addr, Length: length, WithChecksum: withChecksum}
}

// Family returns FamilyBootLoader
func (f *BootLoaderFrame) Family() Family { return FamilyBootLoader }

// Encode serializes the frame to wire format.
func (f *BootLoaderFrame) Encode() []byte {
	buf := make([]byte, 0, BootLoaderFrameLen+1)
	buf = append(buf, EscByte, f.Op)
	buf = binary.LittleEndian.AppendUint32(buf, f.Addr)
	buf = binary.LittleEndian.AppendUint16(buf, f.Length)
	if f.WithChecksum {
		buf = append(buf, XorChecksum(buf))
	}
	return buf
}

// Describe returns a short human-readable tag for the log
func (f *BootLoaderFrame) Describe() string {
	variant := "noCRC"
	if f.WithChecksum {
		variant = "+CRC"
	}
	return fmt.Sprintf("ESC %c addr=0x%08X len=0x%04X %s", f.Op, f.Addr, f.Length, variant)
}

// VerifyChecksum recomputes the trailing checksum byte of an encoded
// checksum-variant frame. Idempotent: re-deriving the checksum from the
// unchecksummed prefix always yields the same byte.
func VerifyChecksum(encoded []byte) (bool, error) {
	if len(encoded) != BootLoaderFrameLen+1 {
		return false, fmt.Errorf("frame length %d, want %d", len(encoded), BootLoaderFrameLen+1)
	}
	return XorChecksum(encoded[:BootLoaderFrameLen]) == encoded[BootLoaderFrameLen], nil
}
