// SPDX-License-Identifier: MIT

// Package probe implements the exploration engine for the MBP481-AXL boot
// firmware's serial command surface: boot-window tracking, the mode-dispatch
// state machine, response classification, recovery, and session logging.
//
// A session is strictly sequential. One request is outstanding at a time,
// frames are never pipelined, and nothing is retried automatically outside
// the explicit recovery path, because silent retries could mask a suspected
// crash.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// ProbeResult is the immutable record of a single probe: the frame that was
// sent, the raw response (nil on timeout), the verdict, and timing.
type ProbeResult struct {
	Mode        mbp481.Mode
	Family      mbp481.Family
	FrameDesc   string
	FrameBytes  []byte
	RawResponse []byte
	Verdict     mbp481.Verdict
	Hazardous   bool
	Elapsed     time.Duration
	Timestamp   time.Time
}

// Session owns one device conversation: the transport, the log sink, and the
// single mutable SessionState, none of which are shared with any other
// session. Independent devices get independent sessions.
type Session struct {
	transport  Transport
	cfg        Config
	logger     *SessionLogger
	classifier *mbp481.Classifier
	tracker    *BootWindowTracker
	dispatcher *Dispatcher
	recovery   *RecoveryController
	stats      *Statistics
	closed     atomic.Bool
}

// NewSession creates a session over an already-configured transport. The
// log writer is owned by the caller; the session only appends to it.
func NewSession(t Transport, cfg Config, logWriter io.Writer) *Session {
	def := DefaultConfig()
	if cfg.BootWindow == 0 {
		cfg.BootWindow = def.BootWindow
	}
	if cfg.PerModeTimeouts == nil {
		cfg.PerModeTimeouts = def.PerModeTimeouts
	}
	if cfg.UnresponsiveThreshold == 0 {
		cfg.UnresponsiveThreshold = def.UnresponsiveThreshold
	}
	if cfg.AteMaxPayloadLen == 0 {
		cfg.AteMaxPayloadLen = def.AteMaxPayloadLen
	}
	if cfg.RecoveryTimeout == 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}
	if cfg.PromptTimeout == 0 {
		cfg.PromptTimeout = def.PromptTimeout
	}
	if cfg.ReadChunk == 0 {
		cfg.ReadChunk = def.ReadChunk
	}
	if cfg.QuietGap == 0 {
		cfg.QuietGap = def.QuietGap
	}

	var logger *SessionLogger
	if logWriter == nil {
		logger = NopSessionLogger()
	} else {
		logger = NewSessionLogger(logWriter)
	}

	classifier := mbp481.NewClassifier()
	for _, lit := range cfg.AteAckLiterals {
		classifier.ExtendAck(mbp481.ModeAte, []byte(lit))
	}

	tracker := NewBootWindowTracker(cfg.BootWindow)
	s := &Session{
		transport:  t,
		cfg:        cfg,
		logger:     logger,
		classifier: classifier,
		tracker:    tracker,
		stats:      NewStatistics(),
	}
	s.dispatcher = NewDispatcher(&s.cfg, logger)
	s.recovery = NewRecoveryController(t, tracker, &s.cfg, logger)
	s.dispatcher.Start()
	return s
}

// Mode returns the current device mode.
func (s *Session) Mode() mbp481.Mode { return s.dispatcher.Mode() }

// State returns a copy of the session state.
func (s *Session) State() SessionState { return s.dispatcher.State() }

// History returns the ordered probe results so far.
func (s *Session) History() []ProbeResult { return s.dispatcher.State().History }

// Stats returns the session's sweep statistics tracker.
func (s *Session) Stats() *Statistics { return s.stats }

// Config returns the effective session configuration.
func (s *Session) Config() Config { return s.cfg }

// WaitForPrompt blocks until the boot prompt marker is observed, opening the
// interaction window. It must be called before any mode selection.
func (s *Session) WaitForPrompt(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.logger.Event("waiting for boot prompt")
	deadline := time.Now().Add(s.cfg.PromptTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return ErrSessionClosed
		}
		data, err := s.transport.Read(s.cfg.ReadChunk, s.cfg.Timeout(mbp481.ModeRootMenu))
		if err != nil {
			s.dispatcher.Abort("transport failure while waiting for prompt")
			return fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
		}
		if len(data) > 0 {
			s.logger.Rx(mbp481.ModeRootMenu, data)
		}
		if s.tracker.Observe(data) == WindowPromptSeen {
			s.dispatcher.PromptSeen(s.tracker.Deadline())
			return nil
		}
	}
	return fmt.Errorf("boot prompt not observed within %s", s.cfg.PromptTimeout)
}

// EnterMode sends the mode's selector from the root menu. Only legal while
// the boot window is open; after expiry the request is rejected without
// touching the transport.
func (s *Session) EnterMode(ctx context.Context, mode mbp481.Mode) (ProbeResult, error) {
	if s.closed.Load() || ctx.Err() != nil {
		return ProbeResult{}, ErrSessionClosed
	}
	selector, ok := mbp481.Selectors[mode]
	if !ok {
		return ProbeResult{}, fmt.Errorf("%w: no selector for mode %s", ErrInvalidArgument, mode)
	}
	if err := s.dispatcher.RequestTransition(mode, s.tracker.Open()); err != nil {
		return ProbeResult{}, err
	}

	frame := &mbp481.RawFrame{Data: selector, Note: "selector " + mode.String()}
	res, err := s.transmit(ctx, mode, frame)
	if err != nil {
		return res, err
	}

	// The transition is taken on send; the firmware drops into the selected
	// parser whether or not it prints a confirmation banner.
	s.dispatcher.CommitTransition(mode, "selector sent within boot window")
	err = s.applyAction(ctx, &res)
	return res, err
}

// Snapshot requests the device-side analog snapshot. The device stops
// accepting input afterwards; the session marks the mode Frozen and refuses
// all further protocol traffic until a hard reset notification.
func (s *Session) Snapshot(ctx context.Context) (ProbeResult, error) {
	if s.closed.Load() || ctx.Err() != nil {
		return ProbeResult{}, ErrSessionClosed
	}
	cur := s.dispatcher.Mode()
	if !mbp481.SnapshotModes[cur] {
		return ProbeResult{}, fmt.Errorf("%w: no snapshot request in %s", ErrInvalidArgument, cur)
	}
	if err := s.dispatcher.RequestTransition(mbp481.ModeFrozen, s.tracker.Open()); err != nil {
		return ProbeResult{}, err
	}

	frame := &mbp481.RawFrame{Data: []byte{mbp481.SelectorSnapshot}, Note: "snapshot request"}
	res, err := s.transmit(ctx, cur, frame)
	if err != nil {
		return res, err
	}
	s.dispatcher.CommitTransition(mbp481.ModeFrozen, "snapshot requested")
	s.recordOnly(&res)
	return res, nil
}

// Probe sends one frame in the given mode and classifies the response. When
// the session is still at the root menu it enters the mode first. All
// pre-transmission validation failures (forbidden bytes, hazard gating,
// frozen or aborted session) return before any transport write.
func (s *Session) Probe(ctx context.Context, mode mbp481.Mode, frame mbp481.Frame) (ProbeResult, error) {
	if s.closed.Load() || ctx.Err() != nil {
		return ProbeResult{}, ErrSessionClosed
	}
	if cur := s.dispatcher.Mode(); cur != mode {
		if cur != mbp481.ModeRootMenu {
			if cur == mbp481.ModeFrozen {
				return ProbeResult{}, ErrFrozen
			}
			return ProbeResult{}, fmt.Errorf("%w: session in %s, probe wants %s", ErrInvalidTransition, cur, mode)
		}
		if _, err := s.EnterMode(ctx, mode); err != nil {
			return ProbeResult{}, err
		}
	}

	res, err := s.transmit(ctx, mode, frame)
	if err != nil {
		return res, err
	}
	err = s.applyAction(ctx, &res)
	return res, err
}

// transmit performs the validated write/read/classify cycle. It never
// retries and never pipelines.
func (s *Session) transmit(ctx context.Context, mode mbp481.Mode, frame mbp481.Frame) (ProbeResult, error) {
	encoded := frame.Encode()
	if err := s.dispatcher.CheckSend(frame, encoded); err != nil {
		return ProbeResult{}, err
	}

	if s.cfg.InterFrameDelay > 0 {
		time.Sleep(s.cfg.InterFrameDelay)
	}

	hazardous := false
	if ate, ok := frame.(*mbp481.AteFrame); ok {
		hazardous = ate.Hazardous()
	}

	start := time.Now()
	s.logger.Tx(mode, frame.Describe(), encoded)
	if err := s.transport.Write(encoded); err != nil {
		if hazardous {
			return s.hazardLinkFailure(mode, frame, encoded, start, err)
		}
		s.dispatcher.Abort("transport write failure")
		return ProbeResult{}, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}

	raw, err := s.readResponse(mode)
	if err != nil {
		if hazardous {
			return s.hazardLinkFailure(mode, frame, encoded, start, err)
		}
		s.dispatcher.Abort("transport read failure")
		return ProbeResult{}, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	elapsed := time.Since(start)
	s.logger.Rx(mode, raw)

	verdict := s.classifier.Classify(mode, raw)
	res := ProbeResult{
		Mode:        mode,
		Family:      frame.Family(),
		FrameDesc:   frame.Describe(),
		FrameBytes:  encoded,
		RawResponse: raw,
		Verdict:     verdict,
		Hazardous:   hazardous,
		Elapsed:     elapsed,
		Timestamp:   start,
	}
	return res, nil
}

// readResponse drains the device's reply for one probe: it waits up to the
// mode timeout for the first bytes, then keeps reading until the line goes
// quiet for QuietGap, so a banner still streaming at UART pace is not
// truncated mid-literal. The overall deadline bounds the whole drain.
func (s *Session) readResponse(mode mbp481.Mode) ([]byte, error) {
	deadline := time.Now().Add(s.cfg.Timeout(mode))
	var buf []byte
	for {
		wait := time.Until(deadline)
		if wait <= 0 {
			return buf, nil
		}
		if len(buf) > 0 && s.cfg.QuietGap < wait {
			wait = s.cfg.QuietGap
		}
		chunk, err := s.transport.Read(s.cfg.ReadChunk, wait)
		if err != nil {
			return buf, err
		}
		if len(chunk) == 0 {
			return buf, nil
		}
		buf = append(buf, chunk...)
	}
}

// hazardLinkFailure handles a transport failure immediately after a
// hazardous frame. The link dying at exactly that moment counts as a
// suspected crash: the family is suspended and the result recorded before
// the session aborts, so the same vector is never retried after a
// power-cycle.
func (s *Session) hazardLinkFailure(mode mbp481.Mode, frame mbp481.Frame, encoded []byte, start time.Time, cause error) (ProbeResult, error) {
	res := ProbeResult{
		Mode:       mode,
		Family:     frame.Family(),
		FrameDesc:  frame.Describe(),
		FrameBytes: encoded,
		Verdict:    mbp481.Verdict{Kind: mbp481.VerdictUnresponsive},
		Hazardous:  true,
		Elapsed:    time.Since(start),
		Timestamp:  start,
	}
	s.dispatcher.RecordResult(&res)
	s.stats.Update(&res)
	s.logger.Verdict(mode, res.Verdict)
	s.dispatcher.Abort("link failure after hazardous frame")
	return res, fmt.Errorf("%w: %v", ErrCrashSuspected, cause)
}

// recordOnly folds a result into state and statistics without acting on it.
func (s *Session) recordOnly(res *ProbeResult) {
	s.dispatcher.RecordResult(res)
	s.stats.Update(res)
	s.logger.Verdict(res.Mode, res.Verdict)
}

// applyAction folds a result into the session state and runs the
// dispatcher's decision: nothing, a recovery attempt, a family suspension,
// or a session abort.
func (s *Session) applyAction(ctx context.Context, res *ProbeResult) error {
	action := s.dispatcher.RecordResult(res)
	s.stats.Update(res)
	s.logger.Verdict(res.Mode, res.Verdict)

	switch action {
	case ActionRecover:
		// Silence below the threshold in a mode without a soft exit is just
		// data; opcode sweeps hit unimplemented opcodes all the time.
		if !mbp481.SoftExitModes[res.Mode] {
			s.logger.Event("unresponsive in " + res.Mode.String() + ", no soft exit, continuing")
			return nil
		}
		outcome, err := s.recovery.Recover(ctx, res.Mode)
		if err != nil {
			s.dispatcher.Abort("recovery failed: " + err.Error())
			return err
		}
		if outcome == RequiresHardReset {
			s.dispatcher.Abort("recovery requires hard reset")
			return ErrSessionAborted
		}
		s.dispatcher.RecoverySucceeded(s.tracker.Deadline())
		return nil

	case ActionSuspendFamily:
		return fmt.Errorf("%w: %s after %s", ErrCrashSuspected, res.Family, res.FrameDesc)

	case ActionAbort:
		s.dispatcher.Abort("unresponsive threshold reached")
		return ErrSessionAborted
	}
	return nil
}

// ExitToRoot attempts the documented soft exit from the current mode back to
// the root menu.
func (s *Session) ExitToRoot(ctx context.Context) error {
	if s.closed.Load() || ctx.Err() != nil {
		return ErrSessionClosed
	}
	mode := s.dispatcher.Mode()
	if mode == mbp481.ModeRootMenu {
		return nil
	}
	outcome, err := s.recovery.Recover(ctx, mode)
	if err != nil {
		return err
	}
	if outcome == RequiresHardReset {
		if mode == mbp481.ModeFrozen {
			return ErrFrozen
		}
		// ATE and the boot loader are still alive, they just have no route
		// back to the menu.
		if !mbp481.SoftExitModes[mode] {
			return fmt.Errorf("%w: %s", ErrNoSoftExit, mode)
		}
		return fmt.Errorf("%w: no prompt after soft exit from %s", ErrFrozen, mode)
	}
	s.dispatcher.RecoverySucceeded(s.tracker.Deadline())
	return nil
}

// Sweep lazily drains a frame generator, probing each frame in order. It
// stops at the first fatal condition; frames rejected before transmission
// are logged and skipped. A sweep is restartable only by creating a new
// session with a fresh generator.
func (s *Session) Sweep(ctx context.Context, mode mbp481.Mode, gen FrameGenerator) ([]ProbeResult, error) {
	var results []ProbeResult
	for {
		// The stop signal takes effect between probes, never mid-frame
		if err := ctx.Err(); err != nil {
			return results, ErrSessionClosed
		}
		frame, ok := gen.Next()
		if !ok {
			return results, nil
		}
		res, err := s.Probe(ctx, mode, frame)
		switch {
		case err == nil:
			results = append(results, res)
		case isSkippable(err):
			s.logger.Event("frame skipped: " + err.Error())
		default:
			if res.Timestamp.IsZero() {
				return results, err
			}
			return append(results, res), err
		}
	}
}

// isSkippable reports whether a probe error only disqualifies the single
// frame rather than the session.
func isSkippable(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrHazardNotEnabled)
}

// NotifyHardReset tells the session the operator power-cycled the device.
// The window tracker re-arms and the dispatcher waits for a fresh prompt.
func (s *Session) NotifyHardReset() {
	s.tracker.Rearm()
	s.dispatcher.HardReset()
	s.logger.Event("hard reset notified, re-armed for new boot window")
}

// Close stops the session and closes the transport. Takes effect between
// probes; in-flight Probe calls finish their frame first.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Event("session closed")
	return s.transport.Close()
}
