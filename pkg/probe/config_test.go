// SPDX-License-Identifier: MIT

package probe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probe.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
boot_window_duration = "2s"
unresponsive_threshold = 5
enable_hazardous_opcode_probing = true
ate_ack_literals = ["PARAM OK", "DONE"]
inter_frame_delay = "10ms"
quiet_gap = "80ms"

[per_mode_timeouts]
ate = "750ms"
telemetry = "100ms"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.BootWindow)
	assert.Equal(t, 5, cfg.UnresponsiveThreshold)
	assert.True(t, cfg.EnableHazardousOpcodeProbing)
	assert.Equal(t, []string{"PARAM OK", "DONE"}, cfg.AteAckLiterals)
	assert.Equal(t, 10*time.Millisecond, cfg.InterFrameDelay)
	assert.Equal(t, 80*time.Millisecond, cfg.QuietGap)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout(mbp481.ModeAte))
	assert.Equal(t, 100*time.Millisecond, cfg.Timeout(mbp481.ModeTelemetry))

	// Unmentioned keys keep their defaults
	def := DefaultConfig()
	assert.Equal(t, def.RecoveryTimeout, cfg.RecoveryTimeout)
	assert.Equal(t, def.PromptTimeout, cfg.PromptTimeout)
	assert.Equal(t, def.Timeout(mbp481.ModeCmosDay), cfg.Timeout(mbp481.ModeCmosDay))
	assert.Equal(t, def.AteMaxPayloadLen, cfg.AteMaxPayloadLen)
}

func TestLoadConfig_EmptyFileIsAllDefaults(t *testing.T) {
	path := writeConfigFile(t, "")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BootWindow, cfg.BootWindow)
	assert.False(t, cfg.EnableHazardousOpcodeProbing)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", `boot_window_duration = "fast"`},
		{"unknown mode", "[per_mode_timeouts]\nwarp-drive = \"1s\"\n"},
		{"zero threshold", `unresponsive_threshold = 0`},
		{"not toml", `{"json": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestConfig_TimeoutFallback(t *testing.T) {
	cfg := DefaultConfig()
	// Frozen has no entry; the longest configured timeout applies
	assert.Equal(t, time.Second, cfg.Timeout(mbp481.ModeFrozen))

	empty := Config{}
	assert.Equal(t, time.Second, empty.Timeout(mbp481.ModeAte))
}
