// SPDX-License-Identifier: MIT

package probe

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// SessionLogger is the append-only structured record of everything the
// session does: every transmitted frame, every received byte sequence or
// timeout, every state transition. It is owned exclusively by one session;
// the caller owns the underlying writer.
type SessionLogger struct {
	log zerolog.Logger
}

// NewSessionLogger creates a logger writing JSON records to w.
func NewSessionLogger(w io.Writer) *SessionLogger {
	return &SessionLogger{
		log: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// NopSessionLogger discards all records.
func NopSessionLogger() *SessionLogger {
	return &SessionLogger{log: zerolog.Nop()}
}

// Tx records a transmitted frame.
func (l *SessionLogger) Tx(mode mbp481.Mode, desc string, data []byte) {
	l.log.Info().
		Str("dir", "tx").
		Str("mode", mode.String()).
		Str("frame", desc).
		Str("data", mbp481.HexDump(data)).
		Msg("frame sent")
}

// Rx records a received byte sequence, or a timeout when data is empty.
func (l *SessionLogger) Rx(mode mbp481.Mode, data []byte) {
	ev := l.log.Info().
		Str("dir", "rx").
		Str("mode", mode.String())
	if len(data) == 0 {
		ev.Bool("timeout", true).Msg("no response")
		return
	}
	ev.Str("data", mbp481.HexDump(data)).
		Str("text", mbp481.Printable(data)).
		Msg("response")
}

// Verdict records a classification outcome.
func (l *SessionLogger) Verdict(mode mbp481.Mode, v mbp481.Verdict) {
	ev := l.log.Info().
		Str("mode", mode.String()).
		Str("verdict", v.Kind.String())
	if v.Pattern != "" {
		ev = ev.Str("pattern", v.Pattern)
	}
	ev.Msg("classified")
}

// Transition records a state machine edge.
func (l *SessionLogger) Transition(from, to mbp481.Mode, reason string) {
	l.log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("reason", reason).
		Msg("state transition")
}

// CrashSuspected records the fatal condition prominently.
func (l *SessionLogger) CrashSuspected(family mbp481.Family, desc string) {
	l.log.Error().
		Str("family", family.String()).
		Str("frame", desc).
		Msg("CRASH SUSPECTED - family suspended for the remainder of the session")
}

// Event records a free-form engine event.
func (l *SessionLogger) Event(msg string) {
	l.log.Info().Msg(msg)
}

// transcriptRecord is the CBOR shape of one probe in an exported transcript.
type transcriptRecord struct {
	Seq      int           `cbor:"1,keyasint"`
	Mode     string        `cbor:"2,keyasint"`
	Frame    string        `cbor:"3,keyasint"`
	Tx       []byte        `cbor:"4,keyasint"`
	Rx       []byte        `cbor:"5,keyasint,omitempty"`
	Verdict  string        `cbor:"6,keyasint"`
	Pattern  string        `cbor:"7,keyasint,omitempty"`
	Elapsed  time.Duration `cbor:"8,keyasint"`
	Occurred time.Time     `cbor:"9,keyasint"`
}

// ExportTranscript writes the session history as a CBOR array for offline
// analysis. The binary form keeps raw response bytes intact, which matters
// because unrecognized literals are the whole point of the exercise.
func ExportTranscript(w io.Writer, history []ProbeResult) error {
	records := make([]transcriptRecord, len(history))
	for i, r := range history {
		records[i] = transcriptRecord{
			Seq:      i,
			Mode:     r.Mode.String(),
			Frame:    r.FrameDesc,
			Tx:       r.FrameBytes,
			Rx:       r.RawResponse,
			Verdict:  r.Verdict.Kind.String(),
			Pattern:  r.Verdict.Pattern,
			Elapsed:  r.Elapsed,
			Occurred: r.Timestamp,
		}
	}
	enc := cbor.NewEncoder(w)
	return enc.Encode(records)
}
