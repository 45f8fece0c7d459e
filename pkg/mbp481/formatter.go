// SPDX-License-Identifier: MIT

package mbp481

import (
	"fmt"
	"strings"
	"unicode"
)

// HexDump renders bytes as space-separated uppercase hex pairs.
func HexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// Printable renders bytes with non-printable characters escaped, for showing
// ASCII-mode responses in logs without corrupting the terminal. Newlines and
// tabs pass through so multi-line banners stay readable.
func Printable(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		r := rune(b)
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
			continue
		}
		if r < 128 && (unicode.IsPrint(r) || r == ' ') {
			sb.WriteRune(r)
		} else {
			fmt.Fprintf(&sb, "\\x%02x", b)
		}
	}
	return sb.String()
}

// FormatVerdict renders a verdict for human consumption.
func FormatVerdict(v Verdict) string {
	switch v.Kind {
	case VerdictAck:
		return fmt.Sprintf("ACK (%q)", v.Pattern)
	case VerdictErrorPattern:
		return fmt.Sprintf("ERROR (%q)", v.Pattern)
	case VerdictUnexpectedData:
		preview := v.Raw
		if len(preview) > 32 {
			preview = preview[:32]
		}
		return fmt.Sprintf("UNEXPECTED [%s]", HexDump(preview))
	case VerdictCrashSuspected:
		return "CRASH SUSPECTED"
	default:
		return "UNRESPONSIVE"
	}
}
