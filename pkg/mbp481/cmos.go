// SPDX-License-Identifier: MIT

package mbp481

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CmosOp selects the CMOS shell operation.
type CmosOp byte

const (
	CmosRead  CmosOp = 0x00
	CmosWrite CmosOp = 0x01
)

// CmosShellCommand is an ASCII register access for the image-sensor shell:
// three space-separated uppercase hex bytes, CR-terminated.
//
//	write: "01 <ADDR> <DATA>\r"
//	read:  "00 <ADDR> 00\r"
type CmosShellCommand struct {
	Op   CmosOp
	Addr byte
	Data byte
}

// NewCmosRead builds a register read command. addr must be a single byte.
func NewCmosRead(addr int) (*CmosShellCommand, error) {
	if addr < 0 || addr > 0xFF {
		return nil, fmt.Errorf("cmos address out of range: 0x%X", addr)
	}
	return &CmosShellCommand{Op: CmosRead, Addr: byte(addr)}, nil
}

// NewCmosWrite builds a register write command. addr and data must each be a
// single byte; out-of-range values are rejected, never truncated.
func NewCmosWrite(addr, data int) (*CmosShellCommand, error) {
	if addr < 0 || addr > 0xFF {
		return nil, fmt.Errorf("cmos address out of range: 0x%X", addr)
	}
	if data < 0 || data > 0xFF {
		return nil, fmt.Errorf("cmos data out of range: 0x%X", data)
	}
	return &CmosShellCommand{Op: CmosWrite, Addr: byte(addr), Data: byte(data)}, nil
}

// Family returns FamilyCmosShell
func (c *CmosShellCommand) Family() Family { return FamilyCmosShell }

// Encode serializes the command as an ASCII triplet.
func (c *CmosShellCommand) Encode() []byte {
	return []byte(fmt.Sprintf("%02X %02X %02X\r", byte(c.Op), c.Addr, c.Data))
}

// Describe returns a short human-readable tag for the log
func (c *CmosShellCommand) Describe() string {
	if c.Op == CmosWrite {
		return fmt.Sprintf("CMOS write 0x%02X=0x%02X", c.Addr, c.Data)
	}
	return fmt.Sprintf("CMOS read 0x%02X", c.Addr)
}

// DecodeCmosShellCommand parses an emitted triplet back into a command.
// Inverse of Encode; used to verify round-trip integrity.
func DecodeCmosShellCommand(line []byte) (*CmosShellCommand, error) {
	fields := strings.Fields(strings.TrimRight(string(line), "\r\n"))
	if len(fields) != 3 {
		return nil, fmt.Errorf("cmos triplet has %d fields, want 3", len(fields))
	}
	vals := make([]byte, 3)
	for i, f := range fields {
		if len(f) != 2 {
			return nil, fmt.Errorf("cmos field %q is not two hex digits", f)
		}
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("cmos field %q: %w", f, err)
		}
		vals[i] = byte(v)
	}
	op := CmosOp(vals[0])
	if op != CmosRead && op != CmosWrite {
		return nil, fmt.Errorf("unknown cmos op 0x%02X", vals[0])
	}
	return &CmosShellCommand{Op: op, Addr: vals[1], Data: vals[2]}, nil
}

var cmosReplyRe = regexp.MustCompile(`(?i)Addr:0x([0-9a-f]+),\s*Data:0x([0-9a-f]+)`)

// ParseRegisterReply extracts the register address and value from the
// shell's "Addr:0x.., Data:0x.." reply. The shell echoes the command before
// answering, so the pattern may sit anywhere in the buffer.
func ParseRegisterReply(raw []byte) (addr, data byte, ok bool) {
	m := cmosReplyRe.FindSubmatch(raw)
	if m == nil {
		return 0, 0, false
	}
	a, err := strconv.ParseUint(string(m[1]), 16, 8)
	if err != nil {
		return 0, 0, false
	}
	d, err := strconv.ParseUint(string(m[2]), 16, 8)
	if err != nil {
		return 0, 0, false
	}
	return byte(a), byte(d), true
}
