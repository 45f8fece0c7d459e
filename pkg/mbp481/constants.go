// SPDX-License-Identifier: MIT

// Package mbp481 implements the MBP481-AXL boot firmware's serial sub-protocols.
//
// The firmware exposes several mutually exclusive command parsers behind a
// short post-boot menu window: an ASCII telemetry/debug shell, two CMOS
// register shells (day and night), a binary ATE test-frame parser, and a
// suspected bootloader frame parser. This package provides frame construction
// and validation for each family plus response classification against the
// literals observed on real hardware.
package mbp481

// Root menu selectors, sent while the boot window is open.
const (
	SelectorAte       = 'y'
	SelectorTelemetry = 'd'
	SelectorCmosDay   = 'c'
	SelectorCmosNight = 'n'
	SelectorSnapshot  = 'g' // analog snapshot; device stops accepting input
)

// Control bytes.
const (
	EscByte = 0x1B
	CrByte  = 0x0D
	LfByte  = 0x0A
	NulByte = 0x00
)

// ATE frame layout: PRE(1-2) OP LEN_lo LEN_hi PAYLOAD [CRC] [CR]
const (
	AtePreamble0 = 0x55
	AtePreamble1 = 0xAA

	// Opcode 0x0D deviates from the rest of the opcode space: single-byte
	// preamble, big-endian length, CR terminator, optional CRC-16/MODBUS.
	AteOpcodeWriteParam = 0x0D
	AteOpcodeTrigger    = 0x72

	// Payloads at or past this length on opcode 0x0D overwrite the return
	// address on the device's call stack.
	AteHazardLength = 208

	AteDefaultMaxPayload = 1024
)

// Bootloader frame layout: ESC OP ADDR(4,LE) LEN(2,LE) [XOR checksum]
const (
	BootLoaderOpRead = 'R'

	BootLoaderFrameLen = 8 // without checksum
)

// Prompt markers printed by the boot firmware when the menu window opens.
var PromptMarkers = [][]byte{
	[]byte("Please key 'y'"),
	[]byte("Please key"),
}

// RebootSignature appears on the console when the device restarts itself.
var RebootSignature = []byte("htol.bin")

// Mode confirmation literals, observed after a selector is accepted.
var (
	AteReadyMarkers = [][]byte{
		[]byte("Start ATE Test"),
		[]byte("Start ATE"),
		[]byte("eATE_INIT"),
	}
	TelemetryReadyMarkers = [][]byte{
		[]byte("display Debug Info"),
		[]byte("Therm"),
	}
	CmosReadyMarkers = [][]byte{
		[]byte("Example:"),
		[]byte("Addr:0x"),
	}
)

// Error literals emitted by the ATE and CMOS parsers.
var (
	ErrPreamble  = []byte("Preamble Error")
	ErrCommand   = []byte("CMD Error")
	ErrRxBufFull = []byte("Uart Rx Buf Full")
)

// ForbiddenASCIIBytes desynchronize the ASCII-mode parsers when they appear
// outside their delimiter role. They must never be emitted as incidental
// payload bytes while an ASCII mode is active.
var ForbiddenASCIIBytes = []byte{NulByte, LfByte, CrByte}
