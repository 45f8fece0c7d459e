// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
	"github.com/hazardcore/uartprobe/pkg/probe"
)

func TestDriveSweep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var msgs []tea.Msg
	gen := probe.AteOpcodeSweep(0x00, 0xFF)
	driveSweep(ctx, nil, mbp481.ModeAte, gen, func(m tea.Msg) { msgs = append(msgs, m) })

	require.Len(t, msgs, 1)
	done, ok := msgs[0].(sweepDoneMsg)
	require.True(t, ok)
	assert.ErrorIs(t, done.err, probe.ErrSessionClosed)

	// Quitting leaves no frame half-probed
	_, ok = gen.Next()
	assert.True(t, ok)
}
