// SPDX-License-Identifier: MIT

package mbp481

// Mode identifies which sub-protocol parser is active on the device.
// Exactly one mode is active at a time.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeRootMenu
	ModeTelemetry
	ModeCmosDay
	ModeCmosNight
	ModeAte
	ModeBootLoader
	ModeFrozen
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeRootMenu:
		return "root-menu"
	case ModeTelemetry:
		return "telemetry"
	case ModeCmosDay:
		return "cmos-day"
	case ModeCmosNight:
		return "cmos-night"
	case ModeAte:
		return "ate"
	case ModeBootLoader:
		return "bootloader"
	case ModeFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// ASCII reports whether the mode's parser consumes line-oriented ASCII, which
// makes the forbidden-byte rule apply to any frame sent while it is active.
func (m Mode) ASCII() bool {
	switch m {
	case ModeRootMenu, ModeTelemetry, ModeCmosDay, ModeCmosNight:
		return true
	default:
		return false
	}
}

// Selectors maps each enterable mode to the byte sequence that selects it
// from the root menu.
var Selectors = map[Mode][]byte{
	ModeAte:        {SelectorAte, CrByte},
	ModeTelemetry:  {SelectorTelemetry, CrByte},
	ModeCmosDay:    {SelectorCmosDay, CrByte},
	ModeCmosNight:  {SelectorCmosNight, CrByte},
	ModeBootLoader: {EscByte, EscByte},
}

// ReadyMarkers maps each mode to the literals that confirm the selector was
// accepted. The bootloader parser has no confirmed banner.
var ReadyMarkers = map[Mode][][]byte{
	ModeAte:       AteReadyMarkers,
	ModeTelemetry: TelemetryReadyMarkers,
	ModeCmosDay:   CmosReadyMarkers,
	ModeCmosNight: CmosReadyMarkers,
}

// SoftExitModes have a documented escape-prefixed exit sequence back to the
// root menu.
var SoftExitModes = map[Mode]bool{
	ModeTelemetry: true,
	ModeCmosDay:   true,
	ModeCmosNight: true,
}

// SnapshotModes accept the analog snapshot request that freezes the device.
var SnapshotModes = map[Mode]bool{
	ModeRootMenu:  true,
	ModeTelemetry: true,
	ModeCmosDay:   true,
	ModeCmosNight: true,
	ModeAte:       true,
}

// ForbiddenBytes returns the byte values that must not appear in a frame
// transmitted while mode is active. Empty for binary modes.
func ForbiddenBytes(m Mode) []byte {
	if m.ASCII() {
		return ForbiddenASCIIBytes
	}
	return nil
}
