package tui

import (
	"fmt"
	"time"

	"albumscan/pkg/engine"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the status panel and accepts engine updates
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a panel. onStop is wired to the engine's Stop and onAbort
// to the cancellation of the run.
func NewTUI(maxIterations int, onStop, onAbort func()) *TUI {
	model := NewModel(maxIterations, onStop, onAbort)
	program := tea.NewProgram(&model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the panel until the session is done
func (t *TUI) Start() error {
	go func() {
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop closes the panel without a result
func (t *TUI) Stop() {
	t.program.Quit()
}

// Update implements engine.StatusSink
func (t *TUI) Update(s engine.Status) {
	t.program.Send(StatusMsg{Status: s})
}

// Done reports the final result and closes the panel
func (t *TUI) Done(res *engine.Result) {
	t.program.Send(DoneMsg{Result: res})
}

// Log sends a log line to the panel
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
