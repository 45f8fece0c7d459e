// SPDX-License-Identifier: MIT

package mbp481

import (
	"bytes"
	"testing"
)

func TestBootLoaderFrame_Encode(t *testing.T) {
	tests := []struct {
		name   string
		frame  *BootLoaderFrame
		expect []byte
	}{
		{
			name:   "read without checksum",
			frame:  NewBootLoaderFrame(BootLoaderOpRead, 0x00000000, 0x0100, false),
			expect: []byte{0x1B, 'R', 0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
		},
		{
			name:  "read with checksum",
			frame: NewBootLoaderFrame(BootLoaderOpRead, 0x80001000, 0x0010, true),
			expect: []byte{
				0x1B, 'R', 0x00, 0x10, 0x00, 0x80, 0x10, 0x00,
				0x1B ^ 'R' ^ 0x10 ^ 0x80 ^ 0x10,
			},
		},
		{
			name:   "address little-endian",
			frame:  NewBootLoaderFrame('W', 0x12345678, 0xABCD, false),
			expect: []byte{0x1B, 'W', 0x78, 0x56, 0x34, 0x12, 0xCD, 0xAB},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.frame.Encode()
			if !bytes.Equal(got, tt.expect) {
				t.Errorf("Encode() = % X, want % X", got, tt.expect)
			}
		})
	}
}

func TestBootLoaderFrame_ChecksumIdempotent(t *testing.T) {
	f := NewBootLoaderFrame(BootLoaderOpRead, 0xDEADBEEF, 0x0200, true)

	first := f.Encode()
	second := f.Encode()
	if !bytes.Equal(first, second) {
		t.Fatalf("re-encoding changed the frame: % X vs % X", first, second)
	}

	ok, err := VerifyChecksum(first)
	if err != nil {
		t.Fatalf("VerifyChecksum: %v", err)
	}
	if !ok {
		t.Error("checksum does not verify against its own prefix")
	}
}

func TestVerifyChecksum_LengthErrors(t *testing.T) {
	if _, err := VerifyChecksum([]byte{0x1B, 'R'}); err == nil {
		t.Error("expected error for truncated frame, got nil")
	}
	// A no-checksum frame is one byte short of the checksum variant
	f := NewBootLoaderFrame(BootLoaderOpRead, 0, 0, false)
	if _, err := VerifyChecksum(f.Encode()); err == nil {
		t.Error("expected error for frame without checksum byte, got nil")
	}
}

func TestBootLoaderFrame_Family(t *testing.T) {
	f := NewBootLoaderFrame(BootLoaderOpRead, 0, 0, false)
	if f.Family() != FamilyBootLoader {
		t.Errorf("Family() = %v, want %v", f.Family(), FamilyBootLoader)
	}
}
