package navigator

import (
	"context"
	"fmt"

	"albumscan/pkg/config"
	"albumscan/pkg/identity"
	"albumscan/pkg/locator"
	"albumscan/pkg/logger"
	"albumscan/pkg/models"
	"albumscan/pkg/retry"
)

// Page is the part of the live page the navigator reads and drives
type Page interface {
	QueryParam(ctx context.Context, name string) (string, error)
	Elements(ctx context.Context) ([]models.Element, error)
	Viewport(ctx context.Context) (models.Viewport, error)
	// FindControl returns the first selector that matches a control, or ""
	FindControl(ctx context.Context, selectors []string) (string, error)
	Activate(ctx context.Context, selector string) error
}

// Observation is what is on display right now
type Observation struct {
	Identity models.ItemIdentity
	Item     *models.Element
}

// Observer reads the active item and its identity from a page
type Observer struct {
	Locator   *locator.Locator
	Extractor *identity.Extractor
}

// NewObserver creates an observer from traversal settings
func NewObserver(cfg config.TraversalConfig) *Observer {
	return &Observer{
		Locator:   locator.New(cfg.MinItemWidth),
		Extractor: identity.New(cfg.WeakKeyParam),
	}
}

// Observe reads the weak key, locates the active item and derives its identity
func (o *Observer) Observe(ctx context.Context, page Page) (Observation, error) {
	weak, err := page.QueryParam(ctx, o.Extractor.Param)
	if err != nil {
		return Observation{}, fmt.Errorf("read weak key: %w", err)
	}

	elements, err := page.Elements(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("list elements: %w", err)
	}
	vp, err := page.Viewport(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("read viewport: %w", err)
	}

	var item *models.Element
	if el, ok := o.Locator.Select(elements, vp); ok {
		item = &el
	}

	return Observation{Identity: o.Extractor.Identity(weak, item), Item: item}, nil
}

// Outcome is the result of one advancement
type Outcome struct {
	Changed         bool
	EndOfCollection bool
	Attempts        int
	After           models.ItemIdentity
}

// Navigator activates the viewer's next control and confirms the change
type Navigator struct {
	observer        *Observer
	selectors       []string
	attempts        int
	interval        retry.BackoffStrategy
	reactivateAfter int
	log             logger.Logger
}

// Option configures a Navigator
type Option func(*Navigator)

// WithInterval overrides the polling interval strategy
func WithInterval(b retry.BackoffStrategy) Option {
	return func(n *Navigator) { n.interval = b }
}

// WithLogger sets the navigator's logger
func WithLogger(l logger.Logger) Option {
	return func(n *Navigator) { n.log = l }
}

// New creates a navigator from traversal settings
func New(cfg config.TraversalConfig, observer *Observer, opts ...Option) *Navigator {
	n := &Navigator{
		observer:        observer,
		selectors:       cfg.NextSelectors,
		attempts:        cfg.NavAttempts,
		interval:        retry.NewJitterBackoff(cfg.NavPollBase, cfg.NavPollJitter, nil),
		reactivateAfter: cfg.ReactivateAfter,
		log:             logger.NewNopLogger(),
	}
	if len(n.selectors) == 0 {
		n.selectors = config.DefaultNextSelectors
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// FindNext returns the selector of the next control, or "" at the end of the album
func (n *Navigator) FindNext(ctx context.Context, page Page) (string, error) {
	return page.FindControl(ctx, n.selectors)
}

// Advance activates control and polls until the identity differs from
// before. The control is activated once more after reactivateAfter failed
// checks while running reports true.
func (n *Navigator) Advance(ctx context.Context, page Page, control string, before models.ItemIdentity, running func() bool) (Outcome, error) {
	if control == "" {
		return Outcome{EndOfCollection: true, After: before}, nil
	}
	if err := page.Activate(ctx, control); err != nil {
		return Outcome{}, fmt.Errorf("activate %s: %w", control, err)
	}

	out := Outcome{After: before}
	changed, err := retry.PollUntil(ctx, func(attempt int) (bool, error) {
		out.Attempts = attempt

		obs, err := n.observer.Observe(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			// the page may be mid-render; count it as not changed yet
			n.log.WithError(err).DebugWithFields("observation failed while confirming navigation", map[string]interface{}{
				"attempt": attempt,
			})
		} else if before.Changed(obs.Identity) {
			out.After = obs.Identity
			return true, nil
		}

		if attempt == n.reactivateAfter && (running == nil || running()) {
			n.log.DebugWithFields("re-activating next control", map[string]interface{}{
				"attempt":  attempt,
				"selector": control,
			})
			if err := page.Activate(ctx, control); err != nil {
				n.log.WithError(err).Warn("re-activation failed")
			}
		}
		return false, nil
	}, n.interval, n.attempts)
	if err != nil {
		return out, err
	}

	out.Changed = changed
	return out, nil
}
