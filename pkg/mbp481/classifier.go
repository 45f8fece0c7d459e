// SPDX-License-Identifier: MIT

package mbp481

import "bytes"

// VerdictKind is the coarse outcome of a probe.
type VerdictKind int

const (
	VerdictUnresponsive VerdictKind = iota
	VerdictAck
	VerdictErrorPattern
	VerdictUnexpectedData
	VerdictCrashSuspected
)

// String returns the verdict kind name
func (k VerdictKind) String() string {
	switch k {
	case VerdictAck:
		return "ack"
	case VerdictErrorPattern:
		return "error-pattern"
	case VerdictUnexpectedData:
		return "unexpected-data"
	case VerdictCrashSuspected:
		return "crash-suspected"
	default:
		return "unresponsive"
	}
}

// Verdict classifies a raw response. Pattern carries the matched literal for
// VerdictErrorPattern; Raw carries the untouched response bytes so newly
// discovered literals are never lost.
type Verdict struct {
	Kind    VerdictKind
	Pattern string
	Raw     []byte
}

// Classifier matches raw responses against per-mode literal tables.
//
// The error tables are considered confirmed; the ack tables are provisional
// (the ATE header/opcode ack signature in particular is unconfirmed) and can
// be extended from configuration as new literals are discovered.
type Classifier struct {
	ack map[Mode][][]byte
	err map[Mode][][]byte
}

// NewClassifier creates a classifier preloaded with the literals observed on
// real hardware.
func NewClassifier() *Classifier {
	errorLiterals := [][]byte{ErrPreamble, ErrCommand, ErrRxBufFull}
	c := &Classifier{
		ack: map[Mode][][]byte{
			ModeRootMenu:  clone(PromptMarkers),
			ModeTelemetry: clone(TelemetryReadyMarkers),
			ModeCmosDay:   clone(CmosReadyMarkers),
			ModeCmosNight: clone(CmosReadyMarkers),
			ModeAte:       clone(AteReadyMarkers),
		},
		err: map[Mode][][]byte{
			ModeAte:       clone(errorLiterals),
			ModeCmosDay:   clone(errorLiterals),
			ModeCmosNight: clone(errorLiterals),
			ModeTelemetry: {ErrRxBufFull},
		},
	}
	return c
}

func clone(literals [][]byte) [][]byte {
	out := make([][]byte, len(literals))
	copy(out, literals)
	return out
}

// ExtendAck adds provisional success literals for a mode.
func (c *Classifier) ExtendAck(m Mode, literals ...[]byte) {
	c.ack[m] = append(c.ack[m], literals...)
}

// Classify inspects a raw response for the given mode. Rules in priority
// order: empty response, known error literal, known success literal,
// everything else. Unrecognized bytes are returned, not discarded.
// VerdictCrashSuspected is never produced here; only the dispatcher can
// cross-reference the frame that preceded the silence.
func (c *Classifier) Classify(m Mode, raw []byte) Verdict {
	if len(raw) == 0 {
		return Verdict{Kind: VerdictUnresponsive}
	}
	for _, lit := range c.err[m] {
		if bytes.Contains(raw, lit) {
			return Verdict{Kind: VerdictErrorPattern, Pattern: string(lit), Raw: raw}
		}
	}
	for _, lit := range c.ack[m] {
		if bytes.Contains(raw, lit) {
			return Verdict{Kind: VerdictAck, Pattern: string(lit), Raw: raw}
		}
	}
	return Verdict{Kind: VerdictUnexpectedData, Raw: raw}
}
