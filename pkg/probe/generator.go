// SPDX-License-Identifier: MIT

package probe

import (
	"bytes"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// FrameGenerator lazily produces the candidate frames for a sweep. A
// generator is finite and one-shot; restarting a sweep means building a new
// generator for a new session.
type FrameGenerator interface {
	Next() (mbp481.Frame, bool)
}

// GeneratorFunc adapts a closure to the FrameGenerator interface.
type GeneratorFunc func() (mbp481.Frame, bool)

// Next calls the closure
func (f GeneratorFunc) Next() (mbp481.Frame, bool) { return f() }

// AteOpcodeSweep yields a zero-length ATE frame for every opcode in
// [first, last], sweeping the opcode space the way the original hardware
// survey did.
func AteOpcodeSweep(first, last byte) FrameGenerator {
	op := int(first)
	return GeneratorFunc(func() (mbp481.Frame, bool) {
		if op > int(last) {
			return nil, false
		}
		f := mbp481.NewAteOpcodeProbe(byte(op))
		op++
		return f, true
	})
}

// AtePayloadLengthSweep yields frames for one opcode across a series of
// payload lengths, filled with a constant byte. Lengths past the codec cap
// are skipped.
func AtePayloadLengthSweep(opcode byte, lengths []int, fill byte, maxPayload int) FrameGenerator {
	i := 0
	return GeneratorFunc(func() (mbp481.Frame, bool) {
		for i < len(lengths) {
			n := lengths[i]
			i++
			f, err := mbp481.NewAteFrame(opcode, bytes.Repeat([]byte{fill}, n), maxPayload)
			if err != nil {
				continue
			}
			return f, true
		}
		return nil, false
	})
}

// BadCharSweep yields one frame per byte value 0x00-0xFF: a fixed filler
// payload with the candidate byte substituted in the middle, on the 0x0D
// vector at a length that reliably produces the baseline error reply. A
// response that deviates from the baseline marks the byte.
func BadCharSweep(payloadLen int, maxPayload int) FrameGenerator {
	const mark = 16
	if payloadLen < mark+2 {
		payloadLen = mark + 2
	}
	val := 0
	return GeneratorFunc(func() (mbp481.Frame, bool) {
		for val <= 0xFF {
			payload := bytes.Repeat([]byte{'A'}, payloadLen)
			payload[mark] = byte(val)
			val++
			f, err := mbp481.NewAteFrame(mbp481.AteOpcodeWriteParam, payload, maxPayload)
			if err != nil {
				continue
			}
			return f, true
		}
		return nil, false
	})
}

// BootLoaderVariantSweep yields every addr/length pair in both framing
// variants, checksum first, so the log records which one the device
// tolerates.
func BootLoaderVariantSweep(op byte, addrs []uint32, lengths []uint16) FrameGenerator {
	type item struct {
		addr uint32
		ln   uint16
		crc  bool
	}
	var queue []item
	for _, a := range addrs {
		for _, l := range lengths {
			queue = append(queue, item{a, l, true}, item{a, l, false})
		}
	}
	i := 0
	return GeneratorFunc(func() (mbp481.Frame, bool) {
		if i >= len(queue) {
			return nil, false
		}
		it := queue[i]
		i++
		return mbp481.NewBootLoaderFrame(op, it.addr, it.ln, it.crc), true
	})
}

// CmosRegisterScan yields a read command for every register address in
// [first, last].
func CmosRegisterScan(first, last int) FrameGenerator {
	addr := first
	return GeneratorFunc(func() (mbp481.Frame, bool) {
		for addr <= last {
			f, err := mbp481.NewCmosRead(addr)
			addr++
			if err != nil {
				continue
			}
			return f, true
		}
		return nil, false
	})
}

// Frames yields a fixed list.
func Frames(frames ...mbp481.Frame) FrameGenerator {
	i := 0
	return GeneratorFunc(func() (mbp481.Frame, bool) {
		if i >= len(frames) {
			return nil, false
		}
		f := frames[i]
		i++
		return f, true
	})
}
