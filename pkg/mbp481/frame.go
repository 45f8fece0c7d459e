// SPDX-License-Identifier: MIT

package mbp481

// Family identifies the protocol family a frame is built for.
type Family int

const (
	FamilyBootLoader Family = iota
	FamilyAte
	FamilyCmosShell
	FamilyRaw
)

// String returns the family name
func (f Family) String() string {
	switch f {
	case FamilyBootLoader:
		return "bootloader"
	case FamilyAte:
		return "ate"
	case FamilyCmosShell:
		return "cmos"
	case FamilyRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Frame is a logical request for one sub-protocol. Frames are validated at
// construction, serialized once for transmission, and then discarded.
type Frame interface {
	Family() Family
	Encode() []byte
	Describe() string
}

// RawFrame wraps literal bytes with no framing at all. Used for selector
// bytes and single-byte sweeps of the root menu.
type RawFrame struct {
	Data []byte
	Note string
}

// Family returns FamilyRaw
func (f *RawFrame) Family() Family { return FamilyRaw }

// Encode returns the literal bytes
func (f *RawFrame) Encode() []byte { return f.Data }

// Describe returns a short human-readable tag for the log
func (f *RawFrame) Describe() string {
	if f.Note != "" {
		return f.Note
	}
	return "raw"
}
