// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

// Play TUI model
type playModel struct {
	name     string
	device   string
	stats    *tc420.Statistics
	bars     [tc420.NumChannels]progress.Model
	values   [tc420.NumChannels]int
	index    int
	elapsed  time.Duration
	started  time.Time
	err      error
	done     bool
	quitting bool
	width    int
}

// Messages
type tickMsg time.Time
type playChangeMsg struct {
	index   int
	elapsed time.Duration
	values  [tc420.NumChannels]int
}
type playDoneMsg struct {
	err error
}

func newPlayModel(name, device string, stats *tc420.Statistics) playModel {
	m := playModel{
		name:    name,
		device:  device,
		stats:   stats,
		started: time.Now(),
		width:   80,
	}
	for i := range m.bars {
		m.bars[i] = progress.New(progress.WithDefaultGradient(), progress.WithWidth(50))
	}
	return m
}

func (m playModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.bars {
			m.bars[i].Width = max(10, min(60, msg.Width-16))
		}

	case playChangeMsg:
		m.index = msg.index
		m.elapsed = msg.elapsed
		m.values = msg.values

	case playDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()
	}

	return m, nil
}

func (m playModel) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("TC420 - PLAYING '%s'", m.name)))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Device: %s | Running %s | Press 'q' to stop",
		m.device, time.Since(m.started).Truncate(time.Second))))
	s.WriteString("\n\n")

	var channels strings.Builder
	for i, v := range m.values {
		channels.WriteString(fmt.Sprintf("%s %s %s\n",
			labelStyle.Render(fmt.Sprintf("CH%d", i+1)),
			m.bars[i].ViewAs(float64(v)/100),
			valueStyle.Render(fmt.Sprintf("%3d%%", v)),
		))
	}
	channels.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Step:"), valueStyle.Render(fmt.Sprintf("%d", m.index)),
		labelStyle.Render("Elapsed:"), valueStyle.Render(fmt.Sprintf("%.1fs", m.elapsed.Seconds())),
	))
	s.WriteString(boxStyle.Render(channels.String()))
	s.WriteString("\n\n")

	if m.stats != nil {
		st := m.stats.Snapshot()
		line := fmt.Sprintf("%s %s   %s %s",
			labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", st.FramesSent)),
			labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", st.FrameRate)),
		)
		if st.Nacks > 0 {
			line += fmt.Sprintf("   %s %s", labelStyle.Render("Not acked:"), errorStyle.Render(fmt.Sprintf("%d", st.Nacks)))
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Stopped: %v", m.err)))
		s.WriteString("\n")
	}

	return s.String()
}

// runPlayTUI plays with a live view of the channel levels
func runPlayTUI(ctx context.Context, s *session, name string, source tc420.StepSource) error {
	stats := s.dev.Channel().Statistics()
	stats.Reset()
	m := newPlayModel(name, s.info.Path, stats)
	p := tea.NewProgram(m, tea.WithAltScreen())

	onChange := func(index int, elapsed time.Duration, values [tc420.NumChannels]int) {
		p.Send(playChangeMsg{index: index, elapsed: elapsed, values: values})
	}
	if err := s.dev.Play(ctx, name, source, onChange, false); err != nil {
		return err
	}

	go func() {
		p.Send(playDoneMsg{err: s.dev.Player().Wait()})
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	final, runErr := p.Run()

	if err := s.dev.Stop(); err != nil && !errors.Is(err, tc420.ErrNotPlaying) {
		return err
	}
	playErr := s.dev.Player().Wait()

	if runErr != nil {
		return fmt.Errorf("TUI error: %v", runErr)
	}
	if fm, ok := final.(playModel); ok && fm.quitting {
		fmt.Println("Cancelled.")
	}
	return playErr
}
