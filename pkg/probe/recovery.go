// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// RecoveryOutcome is the result of a recovery attempt.
type RecoveryOutcome int

const (
	Recovered RecoveryOutcome = iota
	RequiresHardReset
)

// String returns the outcome name
func (o RecoveryOutcome) String() string {
	if o == Recovered {
		return "recovered"
	}
	return "requires-hard-reset"
}

// softExit is the documented escape sequence out of the ASCII modes: the
// escape byte followed by one pad byte.
var softExit = []byte{mbp481.EscByte, ' '}

// RecoveryController issues mode-appropriate exit sequences and reports when
// only a power-cycle can help.
type RecoveryController struct {
	transport Transport
	tracker   *BootWindowTracker
	cfg       *Config
	logger    *SessionLogger
}

// NewRecoveryController creates a controller sharing the session's transport
// and window tracker.
func NewRecoveryController(t Transport, tracker *BootWindowTracker, cfg *Config, logger *SessionLogger) *RecoveryController {
	return &RecoveryController{transport: t, tracker: tracker, cfg: cfg, logger: logger}
}

// Recover attempts to bring the device back to the root menu from the given
// mode. Modes with a known soft exit get the escape sequence and a bounded
// wait for the prompt marker to reappear; everything else, Frozen above all,
// needs a hard power-cycle.
func (r *RecoveryController) Recover(ctx context.Context, mode mbp481.Mode) (RecoveryOutcome, error) {
	if !mbp481.SoftExitModes[mode] {
		r.logger.Event(fmt.Sprintf("no soft exit from %s, hard reset required", mode))
		return RequiresHardReset, nil
	}

	r.logger.Tx(mode, "soft exit", softExit)
	if err := r.transport.Write(softExit); err != nil {
		return RequiresHardReset, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}

	// The prompt marker reappearing is the only success signal
	r.tracker.Rearm()
	deadline := time.Now().Add(r.cfg.RecoveryTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return RequiresHardReset, ErrSessionClosed
		}
		data, err := r.transport.Read(r.cfg.ReadChunk, r.cfg.Timeout(mbp481.ModeRootMenu))
		if err != nil {
			return RequiresHardReset, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
		}
		if len(data) > 0 {
			r.logger.Rx(mbp481.ModeRootMenu, data)
		}
		if r.tracker.Observe(data) == WindowPromptSeen {
			r.logger.Event("prompt re-observed after soft exit")
			return Recovered, nil
		}
	}

	r.logger.Event(fmt.Sprintf("soft exit from %s did not restore the prompt", mode))
	return RequiresHardReset, nil
}
