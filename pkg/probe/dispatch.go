// SPDX-License-Identifier: MIT

package probe

import (
	"fmt"
	"time"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// phase tracks where the dispatcher is in the session lifecycle, outside the
// device-mode graph itself.
type phase int

const (
	phaseInit phase = iota
	phaseWaitingForPrompt
	phaseActive
	phaseAborted
)

// Action is what the dispatcher wants done after a probe result.
type Action int

const (
	ActionNone Action = iota
	ActionRecover
	ActionSuspendFamily
	ActionAbort
)

// SessionState is the single mutable state object for one session. It is
// owned by the dispatcher for the session's lifetime and never shared.
type SessionState struct {
	CurrentMode             mbp481.Mode
	WindowDeadline          time.Time
	ConsecutiveUnresponsive int
	History                 []ProbeResult
}

// transitions is the table of valid mode edges. New modes are only reachable
// from the root menu; Frozen is additionally reachable from every mode that
// accepts the snapshot request; returning to the root menu is only possible
// from the modes with a documented soft exit.
var transitions = map[mbp481.Mode][]mbp481.Mode{
	mbp481.ModeRootMenu: {
		mbp481.ModeTelemetry, mbp481.ModeCmosDay, mbp481.ModeCmosNight,
		mbp481.ModeAte, mbp481.ModeBootLoader, mbp481.ModeFrozen,
	},
	mbp481.ModeTelemetry: {mbp481.ModeRootMenu, mbp481.ModeFrozen},
	mbp481.ModeCmosDay:   {mbp481.ModeRootMenu, mbp481.ModeFrozen},
	mbp481.ModeCmosNight: {mbp481.ModeRootMenu, mbp481.ModeFrozen},
	mbp481.ModeAte:       {mbp481.ModeFrozen},
}

func validTransition(from, to mbp481.Mode) bool {
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// Dispatcher is the mode-dispatch state machine. It makes every decision
// about transitions, recovery, and aborting, but performs no transport I/O
// itself, so its behavior is fully deterministic.
type Dispatcher struct {
	state     SessionState
	phase     phase
	cfg       *Config
	suspended map[mbp481.Family]bool
	logger    *SessionLogger
}

// NewDispatcher creates a dispatcher in the Init phase.
func NewDispatcher(cfg *Config, logger *SessionLogger) *Dispatcher {
	return &Dispatcher{
		state:     SessionState{CurrentMode: mbp481.ModeUnknown},
		phase:     phaseInit,
		cfg:       cfg,
		suspended: make(map[mbp481.Family]bool),
		logger:    logger,
	}
}

// Start moves Init -> WaitingForPrompt at session start.
func (d *Dispatcher) Start() {
	d.phase = phaseWaitingForPrompt
}

// PromptSeen moves WaitingForPrompt -> RootMenu and records the window
// deadline.
func (d *Dispatcher) PromptSeen(deadline time.Time) {
	prev := d.state.CurrentMode
	d.phase = phaseActive
	d.state.CurrentMode = mbp481.ModeRootMenu
	d.state.WindowDeadline = deadline
	d.logger.Transition(prev, mbp481.ModeRootMenu, "prompt marker observed")
}

// Mode returns the current device mode.
func (d *Dispatcher) Mode() mbp481.Mode {
	return d.state.CurrentMode
}

// State returns a copy of the session state.
func (d *Dispatcher) State() SessionState {
	st := d.state
	st.History = append([]ProbeResult(nil), d.state.History...)
	return st
}

// Aborted reports whether the session reached a terminal failure state.
func (d *Dispatcher) Aborted() bool {
	return d.phase == phaseAborted
}

// Suspended reports whether a frame family has been shut down for the
// session after a suspected crash.
func (d *Dispatcher) Suspended(f mbp481.Family) bool {
	return d.suspended[f]
}

// CheckSend validates a frame against the current state before any transport
// write. A non-nil error means nothing may be transmitted.
func (d *Dispatcher) CheckSend(f mbp481.Frame, encoded []byte) error {
	switch d.phase {
	case phaseInit, phaseWaitingForPrompt:
		return ErrWindowNotOpen
	case phaseAborted:
		return ErrSessionAborted
	}
	if d.state.CurrentMode == mbp481.ModeFrozen {
		return ErrFrozen
	}
	if d.suspended[f.Family()] {
		return fmt.Errorf("%w: %s", ErrFamilySuspended, f.Family())
	}
	if ate, ok := f.(*mbp481.AteFrame); ok && ate.Hazardous() && !d.cfg.EnableHazardousOpcodeProbing {
		return fmt.Errorf("%w: op=0x%02X len=%d", ErrHazardNotEnabled, ate.Opcode, len(ate.Payload))
	}
	if err := checkForbiddenBytes(d.state.CurrentMode, encoded); err != nil {
		return err
	}
	return nil
}

// checkForbiddenBytes rejects byte values that desynchronize the active
// ASCII parser. A trailing CR/LF run is the line terminator, not payload.
func checkForbiddenBytes(mode mbp481.Mode, encoded []byte) error {
	forbidden := mbp481.ForbiddenBytes(mode)
	if len(forbidden) == 0 {
		return nil
	}
	end := len(encoded)
	for end > 0 && (encoded[end-1] == mbp481.CrByte || encoded[end-1] == mbp481.LfByte) {
		end--
	}
	for _, b := range encoded[:end] {
		for _, bad := range forbidden {
			if b == bad {
				return fmt.Errorf("%w: byte 0x%02X forbidden in %s mode", ErrInvalidArgument, b, mode)
			}
		}
	}
	return nil
}

// RequestTransition validates a mode-selection edge. Selector sends are only
// legal from the root menu while the boot window is open; a send after
// expiry is rejected, never transmitted.
func (d *Dispatcher) RequestTransition(to mbp481.Mode, windowOpen bool) error {
	if d.phase == phaseAborted {
		return ErrSessionAborted
	}
	if d.phase != phaseActive {
		return ErrWindowNotOpen
	}
	if d.state.CurrentMode == mbp481.ModeFrozen {
		return ErrFrozen
	}
	if !validTransition(d.state.CurrentMode, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.state.CurrentMode, to)
	}
	if d.state.CurrentMode == mbp481.ModeRootMenu && !windowOpen {
		return ErrWindowExpired
	}
	return nil
}

// CommitTransition applies a validated edge.
func (d *Dispatcher) CommitTransition(to mbp481.Mode, reason string) {
	from := d.state.CurrentMode
	d.state.CurrentMode = to
	d.logger.Transition(from, to, reason)
}

// RecordResult folds a probe result into the session state and decides the
// follow-up action. It may upgrade the verdict to CrashSuspected when
// silence follows a known-hazardous frame; that verdict suspends the frame
// family for the rest of the session and is always fatal for the sequence.
func (d *Dispatcher) RecordResult(res *ProbeResult) Action {
	if res.Hazardous && res.Verdict.Kind == mbp481.VerdictUnresponsive {
		res.Verdict = mbp481.Verdict{Kind: mbp481.VerdictCrashSuspected, Raw: res.RawResponse}
		d.suspended[res.Family] = true
		d.logger.CrashSuspected(res.Family, res.FrameDesc)
	}

	switch res.Verdict.Kind {
	case mbp481.VerdictUnresponsive:
		d.state.ConsecutiveUnresponsive++
	case mbp481.VerdictCrashSuspected:
		// Handled distinctly below; not an ordinary timeout
	default:
		// Invariant: any non-empty response resets the counter
		d.state.ConsecutiveUnresponsive = 0
	}

	d.state.History = append(d.state.History, *res)

	if res.Verdict.Kind == mbp481.VerdictCrashSuspected {
		return ActionSuspendFamily
	}
	if d.state.ConsecutiveUnresponsive >= d.cfg.UnresponsiveThreshold {
		return ActionAbort
	}
	if res.Verdict.Kind == mbp481.VerdictUnresponsive {
		return ActionRecover
	}
	return ActionNone
}

// Abort moves the session to its terminal failure state; no further
// transmissions are issued until a hard reset notification.
func (d *Dispatcher) Abort(reason string) {
	if d.phase == phaseAborted {
		return
	}
	d.phase = phaseAborted
	d.logger.Event("session aborted: " + reason)
}

// RecoverySucceeded notes a successful soft exit back to the root menu. The
// unresponsive counter is deliberately not reset: only a non-empty probe
// response counts, so the threshold holds across recoveries.
func (d *Dispatcher) RecoverySucceeded(deadline time.Time) {
	from := d.state.CurrentMode
	d.state.CurrentMode = mbp481.ModeRootMenu
	d.state.WindowDeadline = deadline
	d.logger.Transition(from, mbp481.ModeRootMenu, "soft exit, prompt re-observed")
}

// HardReset re-arms the dispatcher after an operator power-cycle. Suspended
// frame families stay suspended: a crash-suspected vector is never retried
// within the same process without operator inspection.
func (d *Dispatcher) HardReset() {
	from := d.state.CurrentMode
	d.phase = phaseWaitingForPrompt
	d.state.CurrentMode = mbp481.ModeUnknown
	d.state.WindowDeadline = time.Time{}
	d.state.ConsecutiveUnresponsive = 0
	d.logger.Transition(from, mbp481.ModeUnknown, "hard reset notified")
}
