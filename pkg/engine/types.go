package engine

import (
	"context"
	"errors"
	"time"

	"albumscan/pkg/capture"
	"albumscan/pkg/models"
	"albumscan/pkg/navigator"
)

// ErrAlreadyRunning is returned by Run while a session is in progress
var ErrAlreadyRunning = errors.New("engine already running")

// Page is everything the engine needs from the live viewer
type Page interface {
	navigator.Page
	capture.Fetcher
}

// Orchestrator is signalled once per session after the collection is stored
type Orchestrator interface {
	OpenDownstream(ctx context.Context, key string) error
	Dispose(ctx context.Context) error
}

// StatusSink receives progress updates. Updates are observational only.
type StatusSink interface {
	Update(Status)
}

// StatusFunc adapts a function to StatusSink
type StatusFunc func(Status)

func (f StatusFunc) Update(s Status) { f(s) }

// State is the engine's current step
type State string

const (
	StateInit        State = "init"
	StateScanning    State = "scanning"
	StateCapturing   State = "capturing"
	StateAdvancing   State = "advancing"
	StateAwaitingNav State = "awaiting-nav"
	StateCooldown    State = "cooldown"
	StateComplete    State = "complete"
	StateAborted     State = "aborted"
	StateHandoff     State = "handoff"
)

// Reason explains why traversal ended
type Reason string

const (
	ReasonLoopDetected      Reason = "loop-detected"
	ReasonEndOfAlbum        Reason = "end-of-album"
	ReasonNavigationStalled Reason = "navigation-stalled"
	ReasonSafetyLimit       Reason = "safety-limit"
	ReasonAborted           Reason = "aborted"
)

// Preview describes the most recent capture
type Preview struct {
	Ordinal  int
	Width    int
	Height   int
	Bytes    int
	MIMEType string
}

// Status is one update on the status stream
type Status struct {
	Message       string
	CapturedCount int
	Iteration     int
	LastPreview   *Preview
	State         State
}

// Result is the outcome of one session
type Result struct {
	SessionID  string
	Reason     Reason
	Assets     []models.CapturedAsset
	Iterations int
	Elapsed    time.Duration
	HandoffKey string
	HandoffErr error
}

// Lifecycle of an engine instance
type Lifecycle int

const (
	NotStarted Lifecycle = iota
	Running
	Finished
)

func (l Lifecycle) String() string {
	switch l {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}
