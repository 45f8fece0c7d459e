// SPDX-License-Identifier: MIT

package mbp481

import (
	"bytes"
	"testing"
)

func TestClassify_PriorityOrder(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		mode Mode
		raw  []byte
		want VerdictKind
	}{
		{"empty is unresponsive", ModeAte, nil, VerdictUnresponsive},
		{"zero-length is unresponsive", ModeAte, []byte{}, VerdictUnresponsive},
		{"error literal", ModeAte, []byte("Preamble Error\r\n"), VerdictErrorPattern},
		{"cmd error literal", ModeAte, []byte("CMD Error"), VerdictErrorPattern},
		{"buffer full literal", ModeTelemetry, []byte("Uart Rx Buf Full"), VerdictErrorPattern},
		{"ack literal", ModeAte, []byte("Start ATE Test\r\n"), VerdictAck},
		{"telemetry banner", ModeTelemetry, []byte("...Therm...\r\n"), VerdictAck},
		{"cmos example banner", ModeCmosDay, []byte("Example: 01 12 FF"), VerdictAck},
		{"unknown bytes", ModeAte, []byte{0x55, 0x01, 0x02}, VerdictUnexpectedData},
		{"prompt at root", ModeRootMenu, []byte("Please key 'y' to..."), VerdictAck},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(tt.mode, tt.raw)
			if v.Kind != tt.want {
				t.Errorf("Classify(%s, %q) = %v, want %v", tt.mode, tt.raw, v.Kind, tt.want)
			}
		})
	}
}

func TestClassify_ErrorBeatsAck(t *testing.T) {
	c := NewClassifier()
	// Both an ack and an error literal in one buffer: error wins
	raw := []byte("Start ATE Test\r\nCMD Error\r\n")
	v := c.Classify(ModeAte, raw)
	if v.Kind != VerdictErrorPattern {
		t.Errorf("error literal must take priority, got %v", v.Kind)
	}
	if v.Pattern != "CMD Error" {
		t.Errorf("Pattern = %q, want %q", v.Pattern, "CMD Error")
	}
}

func TestClassify_RawPreserved(t *testing.T) {
	c := NewClassifier()
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	v := c.Classify(ModeAte, raw)
	if v.Kind != VerdictUnexpectedData {
		t.Fatalf("Kind = %v, want VerdictUnexpectedData", v.Kind)
	}
	// Unrecognized responses are candidate new literals and must survive intact
	if !bytes.Equal(v.Raw, raw) {
		t.Errorf("Raw = % X, want % X", v.Raw, raw)
	}
}

func TestClassify_NeverCrashSuspected(t *testing.T) {
	c := NewClassifier()
	modes := []Mode{ModeRootMenu, ModeTelemetry, ModeCmosDay, ModeCmosNight, ModeAte, ModeBootLoader}
	for _, m := range modes {
		for _, raw := range [][]byte{nil, []byte("CMD Error"), []byte{0xFF}} {
			if v := c.Classify(m, raw); v.Kind == VerdictCrashSuspected {
				t.Errorf("Classify(%s, % X) produced CrashSuspected", m, raw)
			}
		}
	}
}

func TestExtendAck(t *testing.T) {
	c := NewClassifier()
	raw := []byte("PARAM OK")

	if v := c.Classify(ModeAte, raw); v.Kind != VerdictUnexpectedData {
		t.Fatalf("before extension: %v, want VerdictUnexpectedData", v.Kind)
	}

	c.ExtendAck(ModeAte, []byte("PARAM OK"))
	if v := c.Classify(ModeAte, raw); v.Kind != VerdictAck {
		t.Errorf("after extension: %v, want VerdictAck", v.Kind)
	}
}
