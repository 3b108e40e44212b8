package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"albumscan/pkg/engine"
)

// StatusPrinter renders the engine's status stream as a single
// rewritten console line, starting a new line when the state changes
type StatusPrinter struct {
	out       io.Writer
	startTime time.Time

	mu        sync.Mutex
	lastState engine.State
	lastLen   int
}

// NewStatusPrinter creates a printer writing to out
func NewStatusPrinter(out io.Writer) *StatusPrinter {
	if out == nil {
		out = Output
	}
	return &StatusPrinter{out: out, startTime: time.Now()}
}

// Update implements engine.StatusSink
func (p *StatusPrinter) Update(s engine.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := FormatStatus(s, time.Since(p.startTime))
	switch s.State {
	case engine.StateComplete, engine.StateAborted, engine.StateHandoff:
		if p.lastLen > 0 {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.out, line)
		p.lastLen = 0
	default:
		pad := ""
		if n := p.lastLen - len(line); n > 0 {
			pad = strings.Repeat(" ", n)
		}
		fmt.Fprintf(p.out, "\r%s%s", line, pad)
		p.lastLen = len(line)
	}
	p.lastState = s.State
}

// FormatStatus renders one status update
func FormatStatus(s engine.Status, elapsed time.Duration) string {
	label := stateLabel(s.State)
	line := fmt.Sprintf("%s %s %s", label, s.Message, Dim(fmt.Sprintf("| captured %d | iteration %d | %s",
		s.CapturedCount, s.Iteration, elapsed.Round(time.Second))))
	if pv := s.LastPreview; pv != nil {
		line += Dim(fmt.Sprintf(" | last #%d %dx%d %s", pv.Ordinal, pv.Width, pv.Height, humanBytes(pv.Bytes)))
	}
	return line
}

func stateLabel(s engine.State) string {
	tag := "[" + strings.ToUpper(string(s)) + "]"
	switch s {
	case engine.StateCapturing:
		return Green(tag)
	case engine.StateCooldown, engine.StateAwaitingNav:
		return Yellow(tag)
	case engine.StateAborted:
		return Red(tag)
	case engine.StateComplete, engine.StateHandoff:
		return Magenta(tag)
	default:
		return Cyan(tag)
	}
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
