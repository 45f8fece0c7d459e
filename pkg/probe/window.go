// SPDX-License-Identifier: MIT

package probe

import (
	"bytes"
	"time"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// WindowEvent is the tracker's reaction to a chunk of incoming bytes.
type WindowEvent int

const (
	WindowNone WindowEvent = iota
	WindowPromptSeen
	WindowExpired
)

// String returns the event name
func (e WindowEvent) String() string {
	switch e {
	case WindowPromptSeen:
		return "prompt-seen"
	case WindowExpired:
		return "window-expired"
	default:
		return "none"
	}
}

// BootWindowTracker detects the transition into the post-boot interaction
// window and enforces its expiry. Marker bytes may arrive split across
// reads, so a tail of the previous chunk is retained, bounded to the longest
// marker so the buffer cannot grow without bound.
type BootWindowTracker struct {
	markers  [][]byte
	tail     []byte
	tailMax  int
	duration time.Duration
	deadline time.Time
	seen     bool
	now      func() time.Time
}

// NewBootWindowTracker creates a tracker for the default prompt markers.
func NewBootWindowTracker(window time.Duration) *BootWindowTracker {
	return NewBootWindowTrackerWithMarkers(window, mbp481.PromptMarkers)
}

// NewBootWindowTrackerWithMarkers creates a tracker for a custom marker set.
func NewBootWindowTrackerWithMarkers(window time.Duration, markers [][]byte) *BootWindowTracker {
	tailMax := 0
	for _, m := range markers {
		if len(m) > tailMax {
			tailMax = len(m)
		}
	}
	if tailMax > 0 {
		tailMax--
	}
	return &BootWindowTracker{
		markers:  markers,
		tailMax:  tailMax,
		duration: window,
		now:      time.Now,
	}
}

// Observe scans a chunk of received bytes. The first marker match returns
// WindowPromptSeen and starts the expiry timer; once the timer elapses every
// call reports WindowExpired regardless of content, until Rearm.
func (t *BootWindowTracker) Observe(data []byte) WindowEvent {
	if t.seen {
		if t.now().After(t.deadline) {
			return WindowExpired
		}
		return WindowNone
	}

	buf := append(t.tail, data...)
	for _, m := range t.markers {
		if bytes.Contains(buf, m) {
			t.seen = true
			t.deadline = t.now().Add(t.duration)
			t.tail = nil
			return WindowPromptSeen
		}
	}

	// Keep only the tail that could still complete a marker
	if len(buf) > t.tailMax {
		buf = buf[len(buf)-t.tailMax:]
	}
	t.tail = append(t.tail[:0], buf...)
	return WindowNone
}

// Open reports whether the window has been seen and has not yet expired.
func (t *BootWindowTracker) Open() bool {
	return t.seen && !t.now().After(t.deadline)
}

// Deadline returns the expiry time, zero until the prompt has been seen.
func (t *BootWindowTracker) Deadline() time.Time {
	if !t.seen {
		return time.Time{}
	}
	return t.deadline
}

// Rearm resets the tracker after an observed device reset, so a fresh prompt
// can open a new window.
func (t *BootWindowTracker) Rearm() {
	t.seen = false
	t.deadline = time.Time{}
	t.tail = nil
}
