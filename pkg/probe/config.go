// SPDX-License-Identifier: MIT

package probe

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

// Config carries the session tunables. Zero values are filled from
// DefaultConfig by NewSession.
type Config struct {
	// BootWindow is how long mode selectors are accepted after the prompt
	// marker appears.
	BootWindow time.Duration

	// PerModeTimeouts bounds the response read for each mode.
	PerModeTimeouts map[mbp481.Mode]time.Duration

	// UnresponsiveThreshold is the number of consecutive empty responses
	// that aborts the session, recovery included.
	UnresponsiveThreshold int

	// AteMaxPayloadLen caps ATE payload construction. Deliberately far above
	// the fault threshold so overflow probing stays possible.
	AteMaxPayloadLen int

	// EnableHazardousOpcodeProbing gates large payloads on opcode 0x0D.
	EnableHazardousOpcodeProbing bool

	// AteAckLiterals extends the provisional ATE success literal set.
	AteAckLiterals []string

	// InterFrameDelay is the minimal gap between transmissions.
	InterFrameDelay time.Duration

	// RecoveryTimeout bounds the wait for the prompt to reappear after a
	// soft exit.
	RecoveryTimeout time.Duration

	// PromptTimeout bounds the initial wait for the boot prompt.
	PromptTimeout time.Duration

	// ReadChunk is the per-read buffer size.
	ReadChunk int

	// QuietGap is how long the response reader waits for more bytes once
	// data has started arriving before treating the reply as complete. At
	// 115200 baud a long banner spans several reads.
	QuietGap time.Duration
}

// DefaultConfig returns the empirically sensible defaults.
func DefaultConfig() Config {
	return Config{
		BootWindow: 5 * time.Second,
		PerModeTimeouts: map[mbp481.Mode]time.Duration{
			mbp481.ModeRootMenu:   500 * time.Millisecond,
			mbp481.ModeTelemetry:  300 * time.Millisecond,
			mbp481.ModeCmosDay:    200 * time.Millisecond,
			mbp481.ModeCmosNight:  200 * time.Millisecond,
			mbp481.ModeAte:        1000 * time.Millisecond,
			mbp481.ModeBootLoader: 150 * time.Millisecond,
		},
		UnresponsiveThreshold:        3,
		AteMaxPayloadLen:             mbp481.AteDefaultMaxPayload,
		EnableHazardousOpcodeProbing: false,
		InterFrameDelay:              50 * time.Millisecond,
		RecoveryTimeout:              3 * time.Second,
		PromptTimeout:                20 * time.Second,
		ReadChunk:                    1024,
		QuietGap:                     120 * time.Millisecond,
	}
}

// Timeout returns the response timeout for a mode, falling back to the
// longest configured timeout for modes without an entry.
func (c *Config) Timeout(m mbp481.Mode) time.Duration {
	if d, ok := c.PerModeTimeouts[m]; ok {
		return d
	}
	var max time.Duration
	for _, d := range c.PerModeTimeouts {
		if d > max {
			max = d
		}
	}
	if max == 0 {
		max = time.Second
	}
	return max
}

// fileConfig is the on-disk TOML shape. Durations are strings ("150ms").
type fileConfig struct {
	BootWindow            string            `toml:"boot_window_duration"`
	ModeTimeouts          map[string]string `toml:"per_mode_timeouts"`
	UnresponsiveThreshold int               `toml:"unresponsive_threshold"`
	AteMaxPayloadLen      int               `toml:"ate_max_payload_len"`
	EnableHazardous       bool              `toml:"enable_hazardous_opcode_probing"`
	AteAckLiterals        []string          `toml:"ate_ack_literals"`
	InterFrameDelay       string            `toml:"inter_frame_delay"`
	RecoveryTimeout       string            `toml:"recovery_timeout"`
	PromptTimeout         string            `toml:"prompt_timeout"`
	QuietGap              string            `toml:"quiet_gap"`
}

var modeNames = map[string]mbp481.Mode{
	"root-menu":  mbp481.ModeRootMenu,
	"telemetry":  mbp481.ModeTelemetry,
	"cmos-day":   mbp481.ModeCmosDay,
	"cmos-night": mbp481.ModeCmosNight,
	"ate":        mbp481.ModeAte,
	"bootloader": mbp481.ModeBootLoader,
}

// LoadConfig overlays a TOML file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load probe config: %w", err)
	}

	if meta.IsDefined("boot_window_duration") {
		if cfg.BootWindow, err = time.ParseDuration(raw.BootWindow); err != nil {
			return Config{}, fmt.Errorf("boot_window_duration: %w", err)
		}
	}
	for name, val := range raw.ModeTimeouts {
		mode, ok := modeNames[name]
		if !ok {
			return Config{}, fmt.Errorf("per_mode_timeouts: unknown mode %q", name)
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("per_mode_timeouts[%s]: %w", name, err)
		}
		cfg.PerModeTimeouts[mode] = d
	}
	if meta.IsDefined("unresponsive_threshold") {
		cfg.UnresponsiveThreshold = raw.UnresponsiveThreshold
	}
	if meta.IsDefined("ate_max_payload_len") {
		cfg.AteMaxPayloadLen = raw.AteMaxPayloadLen
	}
	if meta.IsDefined("enable_hazardous_opcode_probing") {
		cfg.EnableHazardousOpcodeProbing = raw.EnableHazardous
	}
	if meta.IsDefined("ate_ack_literals") {
		cfg.AteAckLiterals = raw.AteAckLiterals
	}
	if meta.IsDefined("inter_frame_delay") {
		if cfg.InterFrameDelay, err = time.ParseDuration(raw.InterFrameDelay); err != nil {
			return Config{}, fmt.Errorf("inter_frame_delay: %w", err)
		}
	}
	if meta.IsDefined("recovery_timeout") {
		if cfg.RecoveryTimeout, err = time.ParseDuration(raw.RecoveryTimeout); err != nil {
			return Config{}, fmt.Errorf("recovery_timeout: %w", err)
		}
	}
	if meta.IsDefined("prompt_timeout") {
		if cfg.PromptTimeout, err = time.ParseDuration(raw.PromptTimeout); err != nil {
			return Config{}, fmt.Errorf("prompt_timeout: %w", err)
		}
	}
	if meta.IsDefined("quiet_gap") {
		if cfg.QuietGap, err = time.ParseDuration(raw.QuietGap); err != nil {
			return Config{}, fmt.Errorf("quiet_gap: %w", err)
		}
	}

	if cfg.UnresponsiveThreshold < 1 {
		return Config{}, fmt.Errorf("unresponsive_threshold must be >= 1")
	}
	return cfg, nil
}
