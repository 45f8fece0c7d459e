// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
	"github.com/hazardcore/uartprobe/pkg/probe"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	ackStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	crashStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Messages from the sweep goroutine
type sweepResultMsg struct {
	res probe.ProbeResult
}
type sweepSkippedMsg struct {
	reason string
}
type sweepDoneMsg struct {
	err error
}

// sweepLogEntry is one rendered line of the rolling result log
type sweepLogEntry struct {
	text  string
	style lipgloss.Style
}

type sweepModel struct {
	family   string
	total    int
	done     int
	skipped  int
	progress progress.Model

	acks           int
	errorPatterns  int
	unexpected     int
	unresponsive   int
	crashSuspected int

	log           []sweepLogEntry
	maxLogEntries int
	width         int
	finished      bool
	finalErr      error
	quitting      bool
}

func newSweepModel(family string, total int) sweepModel {
	return sweepModel{
		family:        family,
		total:         total,
		progress:      progress.New(progress.WithDefaultGradient()),
		maxLogEntries: 12,
		width:         80,
	}
}

func (m sweepModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m sweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 8

	case sweepResultMsg:
		m.done++
		res := msg.res
		line := fmt.Sprintf("%-32s %s", res.FrameDesc, mbp481.FormatVerdict(res.Verdict))
		switch res.Verdict.Kind {
		case mbp481.VerdictAck:
			m.acks++
			m.addLog(line, ackStyle)
		case mbp481.VerdictErrorPattern:
			m.errorPatterns++
			m.addLog(line, errStyle)
		case mbp481.VerdictUnexpectedData:
			m.unexpected++
			m.addLog(line, lipgloss.NewStyle())
		case mbp481.VerdictCrashSuspected:
			m.crashSuspected++
			m.addLog(line, crashStyle)
		default:
			m.unresponsive++
			m.addLog(line, dimStyle)
		}

	case sweepSkippedMsg:
		m.done++
		m.skipped++
		m.addLog("skipped: "+msg.reason, dimStyle)

	case sweepDoneMsg:
		m.finished = true
		m.finalErr = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m *sweepModel) addLog(text string, style lipgloss.Style) {
	m.log = append(m.log, sweepLogEntry{text: text, style: style})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

func (m sweepModel) View() string {
	if m.quitting {
		return "Stopping after the current frame...\n"
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	header := titleStyle.Render(fmt.Sprintf("Uartprobe - %s sweep", m.family))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf(
		"%d/%d frames   ack %d   error %d   unexpected %d   silent %d   skipped %d",
		m.done, m.total, m.acks, m.errorPatterns, m.unexpected, m.unresponsive, m.skipped)
	if m.crashSuspected > 0 {
		counts += crashStyle.Render(fmt.Sprintf("   CRASH SUSPECTED %d", m.crashSuspected))
	}

	logLines := ""
	for _, e := range m.log {
		logLines += e.style.Render(e.text) + "\n"
	}

	return header + "\n\n" +
		bar + "\n" +
		counts + "\n\n" +
		panelStyle.Width(m.width-2).Render(logLines) + "\n" +
		dimStyle.Render("q to stop") + "\n"
}

// runSweepTUI drives the sweep frame by frame so progress can stream into the
// UI. The session is opened before the alternate screen so the power-cycle
// instructions stay visible.
func runSweepTUI(ctx context.Context, mode mbp481.Mode, gen probe.FrameGenerator, total int) error {
	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p := tea.NewProgram(newSweepModel(sweepFamily, total))

	// The driver must stop before cleanup closes the session, including
	// when the user quits mid-sweep.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	done := make(chan struct{})
	go func() {
		defer close(done)
		driveSweep(sweepCtx, session, mode, gen, p.Send)
	}()

	finalModel, err := p.Run()
	stopSweep()
	<-done
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	fmt.Println()
	fmt.Print(session.Stats().String())

	if sweepTranscript != "" {
		if err := exportTranscript(session, sweepTranscript); err != nil {
			return err
		}
		fmt.Printf("Transcript written to %s\n", sweepTranscript)
	}

	if m, ok := finalModel.(sweepModel); ok && m.finalErr != nil && !errors.Is(m.finalErr, probe.ErrSessionClosed) {
		return m.finalErr
	}
	return nil
}

// driveSweep feeds the generator's frames to the session one at a time,
// streaming each outcome through send. Frames rejected before transmission
// keep the sweep going; anything else ends it. Cancelling the context stops
// the driver between probes, never mid-frame.
func driveSweep(ctx context.Context, session *probe.Session, mode mbp481.Mode, gen probe.FrameGenerator, send func(tea.Msg)) {
	for {
		if ctx.Err() != nil {
			send(sweepDoneMsg{err: probe.ErrSessionClosed})
			return
		}
		frame, ok := gen.Next()
		if !ok {
			send(sweepDoneMsg{})
			return
		}
		res, err := session.Probe(ctx, mode, frame)
		switch {
		case err == nil:
			send(sweepResultMsg{res: res})
		case errors.Is(err, probe.ErrInvalidArgument), errors.Is(err, probe.ErrHazardNotEnabled):
			send(sweepSkippedMsg{reason: err.Error()})
		case errors.Is(err, probe.ErrCrashSuspected):
			send(sweepResultMsg{res: res})
		default:
			send(sweepDoneMsg{err: err})
			return
		}
	}
}
