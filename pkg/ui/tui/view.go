package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatusPanel(width),
		m.renderPreviewPanel(width),
	)
	right := m.renderLogsPanel(width)

	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("s: stop  ?: help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	logo := `
 ▄▀█ █   █▄▄ █ █ █▀▄▀█ █▀ █▀▀ ▄▀█ █▄ █
 █▀█ █▄▄ █▄█ █▄█ █ ▀ █ ▄█ █▄▄ █▀█ █ ▀█`

	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderStatusPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" SESSION ")
	s := m.status

	indicator := m.spinner.View()
	if m.finished {
		indicator = successStyle.Render("✓")
	} else if m.stopRequested {
		indicator = warningStyle.Render("■")
	}

	lines := []string{
		fmt.Sprintf("%s %s", indicator, s.Message),
		"",
		fmt.Sprintf("%s %s", statsLabelStyle.Render("State:"), StateStyle(s.State).Render(string(s.State))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Captured:"), statsValueStyle.Render(fmt.Sprintf("%d", s.CapturedCount))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Iteration:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", s.Iteration, m.maxIterations))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(time.Since(m.startTime)))),
	}

	bar := m.progress
	if width > 12 {
		bar.Width = width - 8
	}
	lines = append(lines, bar.ViewAs(m.iterationRatio()))

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m *Model) renderPreviewPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LAST CAPTURE ")
	pv := m.status.LastPreview
	if pv == nil {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Nothing captured yet")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	lines := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Item:"), statsValueStyle.Render(fmt.Sprintf("#%d", pv.Ordinal))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Size:"), statsValueStyle.Render(fmt.Sprintf("%dx%d", pv.Width, pv.Height))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Bytes:"), statsValueStyle.Render(FormatBytes(int64(pv.Bytes)))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Type:"), statsValueStyle.Render(pv.MIMEType)),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" EVENTS ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		msg := log.Message
		if maxLen := width - 25; maxLen > 3 && len(msg) > maxLen {
			msg = msg[:maxLen-3] + "..."
		}

		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(msg)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No events yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    s/ctrl+c - Stop after the current item and save what was captured
    ctrl+l   - Clear events
    ?        - Toggle this help

  States:
    ` + successStyle.Render("Green") + `    - Complete
    ` + warningStyle.Render("Orange") + `   - Waiting or cooling down
    ` + errorStyle.Render("Red") + `      - Aborted
`

	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
