// SPDX-License-Identifier: MIT

package mbp481

import (
	"bytes"
	"testing"
)

func TestCmosShellCommand_Encode(t *testing.T) {
	tests := []struct {
		name   string
		build  func() (*CmosShellCommand, error)
		expect string
	}{
		{
			name:   "read",
			build:  func() (*CmosShellCommand, error) { return NewCmosRead(0x0A) },
			expect: "00 0A 00\r",
		},
		{
			name:   "write",
			build:  func() (*CmosShellCommand, error) { return NewCmosWrite(0x12, 0xFF) },
			expect: "01 12 FF\r",
		},
		{
			name:   "zero address",
			build:  func() (*CmosShellCommand, error) { return NewCmosRead(0x00) },
			expect: "00 00 00\r",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if got := cmd.Encode(); !bytes.Equal(got, []byte(tt.expect)) {
				t.Errorf("Encode() = %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestCmosShellCommand_RangeValidation(t *testing.T) {
	if _, err := NewCmosRead(0x100); err == nil {
		t.Error("address 0x100 should be rejected, not truncated")
	}
	if _, err := NewCmosRead(-1); err == nil {
		t.Error("negative address should be rejected")
	}
	if _, err := NewCmosWrite(0x10, 0x100); err == nil {
		t.Error("data 0x100 should be rejected, not truncated")
	}
	if _, err := NewCmosWrite(0x10, -1); err == nil {
		t.Error("negative data should be rejected")
	}
}

func TestDecodeCmosShellCommand_RoundTrip(t *testing.T) {
	for addr := 0; addr <= 0xFF; addr += 17 {
		cmd, err := NewCmosWrite(addr, addr^0x5A)
		if err != nil {
			t.Fatalf("NewCmosWrite(0x%02X): %v", addr, err)
		}
		decoded, err := DecodeCmosShellCommand(cmd.Encode())
		if err != nil {
			t.Fatalf("decode of %q: %v", cmd.Encode(), err)
		}
		if decoded.Op != cmd.Op || decoded.Addr != cmd.Addr || decoded.Data != cmd.Data {
			t.Errorf("round trip mismatch: got %+v, want %+v", decoded, cmd)
		}
	}
}

func TestDecodeCmosShellCommand_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"00 0A\r",
		"00 0A 00 00\r",
		"0 A 0\r",
		"ZZ 0A 00\r",
		"02 0A 00\r", // unknown op
	}
	for _, in := range inputs {
		if _, err := DecodeCmosShellCommand([]byte(in)); err == nil {
			t.Errorf("DecodeCmosShellCommand(%q): expected error, got nil", in)
		}
	}
}

func TestParseRegisterReply(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantAddr byte
		wantData byte
		wantOK   bool
	}{
		{
			name:     "bare reply",
			raw:      "Addr:0x0A, Data:0x80",
			wantAddr: 0x0A, wantData: 0x80, wantOK: true,
		},
		{
			name:     "reply after command echo",
			raw:      "00 0A 00\r\nAddr:0x0a, Data:0xff\r\n",
			wantAddr: 0x0A, wantData: 0xFF, wantOK: true,
		},
		{
			name:   "no reply pattern",
			raw:    "Example: 01 12 FF",
			wantOK: false,
		},
		{
			name:   "empty",
			raw:    "",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, data, ok := ParseRegisterReply([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (addr != tt.wantAddr || data != tt.wantData) {
				t.Errorf("got addr=0x%02X data=0x%02X, want addr=0x%02X data=0x%02X",
					addr, data, tt.wantAddr, tt.wantData)
			}
		})
	}
}
