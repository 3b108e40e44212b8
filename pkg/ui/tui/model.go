package tui

import (
	"fmt"
	"sync"
	"time"

	"albumscan/pkg/engine"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the status panel shown while a session runs
type Model struct {
	// UI components
	spinner  spinner.Model
	progress progress.Model

	// Session state
	status        engine.Status
	maxIterations int
	startTime     time.Time
	result        *engine.Result
	finished      bool

	// Stop handling
	onStop         func()
	onAbort        func()
	stopRequested  bool
	abortRequested bool

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a panel. onStop is called on the first stop request and
// onAbort on the second.
func NewModel(maxIterations int, onStop, onAbort func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:        s,
		progress:       p,
		maxIterations:  maxIterations,
		startTime:      time.Now(),
		onStop:         onStop,
		onAbort:        onAbort,
		status:         engine.Status{Message: "Starting...", State: engine.StateInit},
		logMessages:    []LogMessage{},
		maxLogMessages: 50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// ApplyStatus records a status update and logs state transitions
func (m *Model) ApplyStatus(s engine.Status) {
	m.mu.Lock()
	prev := m.status
	m.status = s
	m.mu.Unlock()

	if s.LastPreview != nil && (prev.LastPreview == nil || prev.LastPreview.Ordinal != s.LastPreview.Ordinal) {
		pv := s.LastPreview
		m.AddLogMessage("SUCCESS", fmt.Sprintf("Captured #%d (%dx%d, %s)", pv.Ordinal, pv.Width, pv.Height, FormatBytes(int64(pv.Bytes))))
	}
	switch s.State {
	case engine.StateCooldown:
		if prev.State != engine.StateCooldown {
			m.AddLogMessage("WARN", "Cooling down")
		}
	case engine.StateComplete, engine.StateAborted:
		m.AddLogMessage("INFO", s.Message)
	}
}

// Finish marks the session as done
func (m *Model) Finish(res *engine.Result) {
	m.mu.Lock()
	m.result = res
	m.finished = true
	m.mu.Unlock()

	if res != nil && res.HandoffErr != nil {
		m.AddLogMessage("ERROR", "Handoff failed: "+res.HandoffErr.Error())
	}
}

// RequestStop asks the engine to stop after the current item. A second
// request aborts the run. Further requests are ignored.
func (m *Model) RequestStop() bool {
	m.mu.Lock()
	if m.finished || m.abortRequested {
		m.mu.Unlock()
		return false
	}

	callback, msg := m.onStop, "Stop requested, finishing current item (press again to abort)"
	if m.stopRequested {
		m.abortRequested = true
		callback, msg = m.onAbort, "Aborting"
	}
	m.stopRequested = true
	m.mu.Unlock()

	if callback != nil {
		callback()
	}
	m.AddLogMessage("WARN", msg)
	return true
}

// Status returns the latest status
func (m *Model) Status() engine.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// iterationRatio is how far the session is toward the iteration ceiling
func (m *Model) iterationRatio() float64 {
	if m.maxIterations <= 0 {
		return 0
	}
	r := float64(m.status.Iteration) / float64(m.maxIterations)
	if r > 1 {
		r = 1
	}
	return r
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
