package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"albumscan/pkg/capture"
	"albumscan/pkg/config"
	"albumscan/pkg/detector"
	errs "albumscan/pkg/errors"
	"albumscan/pkg/handoff"
	"albumscan/pkg/logger"
	"albumscan/pkg/metrics"
	"albumscan/pkg/models"
	"albumscan/pkg/navigator"
	"albumscan/pkg/ratelimit"
	"albumscan/pkg/retry"

	"github.com/google/uuid"
)

const handoffTimeout = 30 * time.Second

// Engine drives one traversal-and-capture session at a time
type Engine struct {
	observer  *navigator.Observer
	navigator *navigator.Navigator
	detector  *detector.Detector
	pacer     *ratelimit.Pacer
	pipeline  *capture.Pipeline

	store        handoff.Store
	orchestrator Orchestrator
	sink         StatusSink
	metrics      *metrics.Recorder
	logger       logger.Logger

	maxIterations  int
	handoffRetries int
	sourceURL      string
	newID          func() string

	mu        sync.Mutex
	lifecycle Lifecycle
	stop      atomic.Bool
}

// Option configures an Engine
type Option func(*Engine)

// WithStore sets the handoff store
func WithStore(s handoff.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithOrchestrator sets the collaborator signalled after handoff
func WithOrchestrator(o Orchestrator) Option {
	return func(e *Engine) { e.orchestrator = o }
}

// WithStatusSink sets the status stream consumer
func WithStatusSink(s StatusSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPacer replaces the pacer, typically with a seeded one
func WithPacer(p *ratelimit.Pacer) Option {
	return func(e *Engine) { e.pacer = p }
}

// WithSourceURL records the album URL in the handoff bundle
func WithSourceURL(u string) Option {
	return func(e *Engine) { e.sourceURL = u }
}

// New creates an engine from configuration
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		detector:       detector.New(cfg.Traversal.DuplicateThreshold),
		pacer:          ratelimit.NewPacer(cfg.RateLimit, nil),
		pipeline:       capture.New(),
		logger:         logger.GetLogger(),
		maxIterations:  cfg.Traversal.MaxIterations,
		handoffRetries: cfg.Handoff.Retries,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.NewNopLogger()
	}
	e.logger = e.logger.WithField("component", "engine")

	e.observer = navigator.NewObserver(cfg.Traversal)
	e.navigator = navigator.New(cfg.Traversal, e.observer, navigator.WithLogger(e.logger))
	return e
}

// Stop requests a cooperative stop; it is honored at the top of the next
// iteration. A stop requested before Run applies to the next session.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Lifecycle returns the engine's lifecycle state
func (e *Engine) Lifecycle() Lifecycle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle
}

func (e *Engine) running() bool {
	return !e.stop.Load()
}

func (e *Engine) emit(s Status) {
	if e.sink != nil {
		e.sink.Update(s)
	}
}

// Run traverses the album on page until a terminal condition and then
// hands the collection off. Only ErrAlreadyRunning is returned as an
// error; every other outcome is described by the Result.
func (e *Engine) Run(ctx context.Context, page Page) (*Result, error) {
	e.mu.Lock()
	if e.lifecycle == Running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.lifecycle = Running
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.lifecycle = Finished
		e.stop.Store(false)
		e.mu.Unlock()
	}()

	sess := &session{
		Engine: e,
		id:     e.newID(),
		state:  detector.NewState(),
		start:  time.Now(),
	}
	sess.log = e.logger.WithField("session", sess.id)

	logger.LogComponentStart(sess.log, "engine", map[string]interface{}{
		"max_iterations": e.maxIterations,
	})
	e.emit(Status{Message: "Scanning page...", State: StateInit})

	reason := sess.traverse(ctx, page)
	sess.state.Running = false

	result := &Result{
		SessionID:  sess.id,
		Reason:     reason,
		Assets:     sess.assets,
		Iterations: sess.state.Iterations,
		Elapsed:    time.Since(sess.start),
	}

	logger.LogTermination(sess.log, string(reason), len(sess.assets), sess.state.Iterations, result.Elapsed)
	e.metrics.Terminated(string(reason))
	final := StateComplete
	if reason == ReasonAborted {
		final = StateAborted
	}
	e.emit(Status{Message: terminalMessage(reason), CapturedCount: len(sess.assets), Iteration: sess.state.Iterations, State: final})

	sess.handoff(ctx, result)
	return result, nil
}

// session holds the state of one Run
type session struct {
	*Engine
	id     string
	state  *detector.State
	assets []models.CapturedAsset
	start  time.Time
	log    logger.Logger

	lastCooldown int
	lastPreview  *Preview
}

func (s *session) status(msg string, state State) {
	s.emit(Status{
		Message:       msg,
		CapturedCount: len(s.assets),
		Iteration:     s.state.Iterations,
		LastPreview:   s.lastPreview,
		State:         state,
	})
}

func (s *session) traverse(ctx context.Context, page Page) Reason {
	for {
		if !s.running() || ctx.Err() != nil {
			return ReasonAborted
		}
		if s.state.Iterations >= s.maxIterations {
			return ReasonSafetyLimit
		}
		s.state.Iterations++
		s.metrics.Iteration()
		s.status("Scanning...", StateScanning)

		obs, err := s.observer.Observe(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return ReasonAborted
			}
			s.log.WithError(err).Warn("Failed to observe page")
			obs = navigator.Observation{}
		}

		dec := s.detector.Classify(s.state, obs.Identity, len(s.assets))
		switch dec.Verdict {
		case detector.LoopDetected:
			s.log.WithField("signal", dec.Reason).Info("Loop detected")
			return ReasonLoopDetected
		case detector.Novel:
			if aborted := s.capture(ctx, page, obs); aborted {
				return ReasonAborted
			}
		case detector.DuplicateSkip:
			s.metrics.Skipped("duplicate")
			logger.LogSkip(s.log, "duplicate", obs.Identity.StrongKey, nil)
		case detector.Absent:
			s.metrics.Skipped("absent")
			s.log.Debug("No active item on display")
		}

		control, err := s.navigator.FindNext(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return ReasonAborted
			}
			s.log.WithError(err).Warn("Failed to look up next control")
			control = ""
		}
		if control == "" {
			return ReasonEndOfAlbum
		}

		captured := len(s.assets)
		if s.pacer.CooldownDue(captured) && captured != s.lastCooldown {
			s.lastCooldown = captured
			s.status("Cooling down...", StateCooldown)
			d, err := s.pacer.Cooldown(ctx)
			if err != nil {
				return ReasonAborted
			}
			s.metrics.Cooldown()
			logger.LogCooldown(s.log, captured, d)
		}

		s.status("Advancing...", StateAdvancing)
		if err := s.pacer.Pause(ctx); err != nil {
			return ReasonAborted
		}

		s.status("Waiting for next item...", StateAwaitingNav)
		out, err := s.navigator.Advance(ctx, page, control, obs.Identity, s.running)
		if err != nil {
			if ctx.Err() != nil {
				return ReasonAborted
			}
			s.log.WithError(err).Warn("Navigation failed")
			return ReasonNavigationStalled
		}
		s.metrics.Navigated(out.Attempts)
		if out.EndOfCollection {
			return ReasonEndOfAlbum
		}
		if !out.Changed {
			return ReasonNavigationStalled
		}
	}
}

// capture fetches a novel item. It reports true only when ctx ended.
func (s *session) capture(ctx context.Context, page Page, obs navigator.Observation) bool {
	s.status("Fetching full resolution...", StateCapturing)

	ordinal := len(s.assets) + 1
	asset, err := s.pipeline.Capture(ctx, page, *obs.Item, obs.Identity, ordinal)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		s.metrics.Skipped("fetch-failed")
		logger.LogSkip(s.log, "fetch-failed", obs.Identity.StrongKey, err)
		return false
	}

	s.assets = append(s.assets, *asset)
	s.detector.MarkCaptured(s.state, obs.Identity)
	s.metrics.Captured()
	logger.LogCapture(s.log, asset.Ordinal, asset.StrongKey, asset.Width, asset.Height)

	s.lastPreview = &Preview{
		Ordinal:  asset.Ordinal,
		Width:    asset.Width,
		Height:   asset.Height,
		Bytes:    len(asset.Payload) * 3 / 4,
		MIMEType: asset.MIMEType,
	}
	s.status("Processing...", StateCapturing)
	return false
}

// handoff stores the collection once and signals the orchestrator. It
// never fails the session; problems are recorded on the result.
func (s *session) handoff(ctx context.Context, result *Result) {
	hctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(context.Background(), handoffTimeout)
		defer cancel()
	}

	s.status("Saving data...", StateHandoff)

	var failures []error
	if s.store != nil {
		bundle := &handoff.Bundle{
			SessionID: s.id,
			Reason:    string(result.Reason),
			SourceURL: s.sourceURL,
			CreatedAt: time.Now(),
			Assets:    result.Assets,
		}
		err := retry.Do(func() error {
			return s.store.Put(hctx, s.id, bundle)
		}, &retry.Config{
			MaxAttempts: s.handoffRetries + 1,
			Backoff:     retry.DefaultExponentialBackoff(),
			RetryIf:     func(error) bool { return hctx.Err() == nil },
			Context:     hctx,
			Logger:      s.log,
		})
		if err != nil {
			failures = append(failures, errs.New(errs.ErrorTypeHandoff, "persist collection", err))
		} else {
			result.HandoffKey = s.id
		}
	}

	if s.orchestrator != nil {
		if result.HandoffKey != "" {
			s.status("Launching export...", StateHandoff)
			if err := s.orchestrator.OpenDownstream(hctx, result.HandoffKey); err != nil {
				failures = append(failures, errs.New(errs.ErrorTypeHandoff, "open downstream stage", err))
			}
		}
		if err := s.orchestrator.Dispose(hctx); err != nil {
			failures = append(failures, errs.New(errs.ErrorTypeHandoff, "dispose page", err))
		}
	}

	if len(failures) > 0 {
		result.HandoffErr = errors.Join(failures...)
		s.log.WithError(result.HandoffErr).Error("Handoff failed")
		s.status(fmt.Sprintf("Handoff failed: %v", result.HandoffErr), StateHandoff)
		return
	}
	logger.LogComponentStop(s.log, "engine", "handoff complete")
}

func terminalMessage(r Reason) string {
	switch r {
	case ReasonLoopDetected:
		return "Loop detected"
	case ReasonEndOfAlbum:
		return "End of album reached"
	case ReasonNavigationStalled:
		return "Navigation stalled - end of album"
	case ReasonSafetyLimit:
		return "Safety limit reached"
	case ReasonAborted:
		return "Stopped"
	default:
		return string(r)
	}
}
