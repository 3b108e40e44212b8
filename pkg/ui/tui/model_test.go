package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"albumscan/pkg/engine"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelStatusUpdates(t *testing.T) {
	model := NewModel(100, nil, nil)

	model.ApplyStatus(engine.Status{Message: "Scanning...", State: engine.StateScanning, Iteration: 1})
	if model.Status().State != engine.StateScanning {
		t.Errorf("Expected state scanning, got %s", model.Status().State)
	}

	preview := &engine.Preview{Ordinal: 1, Width: 1024, Height: 768, Bytes: 2048, MIMEType: "image/jpeg"}
	model.ApplyStatus(engine.Status{Message: "Captured 1", State: engine.StateCapturing, CapturedCount: 1, Iteration: 1, LastPreview: preview})
	if len(model.logMessages) != 1 {
		t.Fatalf("Expected 1 log message, got %d", len(model.logMessages))
	}
	if !strings.Contains(model.logMessages[0].Message, "1024x768") {
		t.Errorf("Expected capture log to carry dimensions, got %q", model.logMessages[0].Message)
	}

	// Same preview again does not log twice
	model.ApplyStatus(engine.Status{Message: "Next", State: engine.StateAdvancing, CapturedCount: 1, Iteration: 1, LastPreview: preview})
	if len(model.logMessages) != 1 {
		t.Errorf("Expected 1 log message, got %d", len(model.logMessages))
	}

	if r := model.iterationRatio(); r != 0.01 {
		t.Errorf("Expected ratio 0.01, got %f", r)
	}
}

func TestModelStopRequest(t *testing.T) {
	stops, aborts := 0, 0
	model := NewModel(10, func() { stops++ }, func() { aborts++ })

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd != nil {
		t.Errorf("Expected no command on stop")
	}
	if stops != 1 || aborts != 0 {
		t.Errorf("Expected one stop and no abort, got %d and %d", stops, aborts)
	}
	if !model.stopRequested {
		t.Errorf("Expected stop to be recorded")
	}

	// Second request aborts the run
	model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if stops != 1 || aborts != 1 {
		t.Errorf("Expected one stop and one abort, got %d and %d", stops, aborts)
	}

	if model.RequestStop() {
		t.Errorf("Expected requests after abort to be ignored")
	}
	if aborts != 1 {
		t.Errorf("Expected onAbort once, got %d", aborts)
	}
}

func TestModelLogMsg(t *testing.T) {
	model := NewModel(10, nil, nil)
	model.Update(LogMsg{Level: "ERROR", Message: "Export failed"})

	if len(model.logMessages) != 1 {
		t.Fatalf("Expected 1 log message, got %d", len(model.logMessages))
	}
	if model.logMessages[0].Level != "ERROR" || model.logMessages[0].Message != "Export failed" {
		t.Errorf("Unexpected log message %+v", model.logMessages[0])
	}
}

func TestModelDoneQuits(t *testing.T) {
	model := NewModel(10, nil, nil)

	res := &engine.Result{Reason: engine.ReasonEndOfAlbum, HandoffErr: errors.New("disk full")}
	_, cmd := model.Update(DoneMsg{Result: res})
	if cmd == nil {
		t.Fatalf("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Expected QuitMsg")
	}
	if !model.finished {
		t.Errorf("Expected model to be finished")
	}
	if model.RequestStop() {
		t.Errorf("Expected stop after finish to be ignored")
	}
	if model.logMessages[len(model.logMessages)-1].Level != "ERROR" {
		t.Errorf("Expected handoff error to be logged")
	}
}

func TestLogMessageLimit(t *testing.T) {
	model := NewModel(10, nil, nil)
	for i := 0; i < 60; i++ {
		model.AddLogMessage("INFO", "Test message")
	}
	if len(model.logMessages) != 50 {
		t.Errorf("Expected log messages to be limited to 50, got %d", len(model.logMessages))
	}
}

func TestView(t *testing.T) {
	model := NewModel(10, nil, nil)
	if model.View() != "Initializing..." {
		t.Errorf("Expected placeholder before the first resize")
	}

	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model.ApplyStatus(engine.Status{
		Message:       "Captured 2",
		State:         engine.StateCapturing,
		CapturedCount: 2,
		Iteration:     3,
		LastPreview:   &engine.Preview{Ordinal: 2, Width: 640, Height: 480, Bytes: 1500, MIMEType: "image/png"},
	})

	view := model.View()
	for _, want := range []string{"Captured 2", "3/10", "640x480", "image/png"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}

	for _, test := range tests {
		if result := FormatBytes(test.bytes); result != test.expected {
			t.Errorf("FormatBytes(%d) = %s, expected %s", test.bytes, result, test.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{-time.Second, "00:00"},
		{65 * time.Second, "01:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
	}
	for _, test := range tests {
		if result := formatDuration(test.d); result != test.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", test.d, result, test.expected)
		}
	}
}
