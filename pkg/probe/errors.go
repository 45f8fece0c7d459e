// SPDX-License-Identifier: MIT

package probe

import "errors"

// Error taxonomy for the probing engine. InvalidArgument conditions are
// raised synchronously at frame construction or pre-transmission checks and
// never reach the transport; everything else surfaces through ProbeResult or
// the session status.
var (
	// ErrInvalidArgument covers malformed frame requests and forbidden bytes
	// for the current mode. Nothing is transmitted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWindowExpired means the boot window closed before the selector was
	// sent; the dispatcher rejects the send rather than transmit.
	ErrWindowExpired = errors.New("boot window expired")

	// ErrWindowNotOpen means no prompt marker has been observed yet.
	ErrWindowNotOpen = errors.New("boot window not open")

	// ErrFrozen means the device entered its frozen state and ignores all
	// input; only a hard reset notification re-arms the session.
	ErrFrozen = errors.New("device frozen")

	// ErrFamilySuspended means a crash-suspected verdict stopped all further
	// frames of this protocol family for the session.
	ErrFamilySuspended = errors.New("frame family suspended after suspected crash")

	// ErrCrashSuspected marks silence immediately after a known-hazardous
	// frame. Never retried silently.
	ErrCrashSuspected = errors.New("crash suspected")

	// ErrNoSoftExit means the current mode has no documented exit sequence
	// back to the root menu; only a power-cycle leaves it. Unlike ErrFrozen
	// the device is still parsing frames.
	ErrNoSoftExit = errors.New("no soft exit from mode")

	// ErrSessionAborted means the unresponsive threshold was reached even
	// after recovery; the session issues no further transmissions.
	ErrSessionAborted = errors.New("session aborted")

	// ErrSessionClosed means the session was closed or cancelled.
	ErrSessionClosed = errors.New("session closed")

	// ErrDeviceUnreachable wraps transport-level failures.
	ErrDeviceUnreachable = errors.New("device unreachable")

	// ErrHazardNotEnabled gates the known memory-corruption vector behind
	// explicit operator opt-in.
	ErrHazardNotEnabled = errors.New("hazardous opcode probing not enabled")

	// ErrInvalidTransition means the requested mode is not reachable from
	// the current one.
	ErrInvalidTransition = errors.New("invalid mode transition")
)
