package browser

import (
	"context"
	"fmt"
	"sync"

	"albumscan/pkg/config"
	errs "albumscan/pkg/errors"
	"albumscan/pkg/logger"
	"albumscan/pkg/retry"

	"github.com/chromedp/chromedp"
)

// Host owns the Chrome instance and opens viewer tabs on it
type Host struct {
	cfg    config.BrowserConfig
	logger logger.Logger

	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewHost creates a host; Chrome is started lazily by Open
func NewHost(cfg config.BrowserConfig, log logger.Logger) *Host {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Host{cfg: cfg, logger: log.WithField("component", "browser")}
}

// AllocatorOptions builds the Chrome launch flags
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

func (h *Host) start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browserCtx != nil {
		return nil
	}

	if h.cfg.RemoteURL != "" {
		h.allocCtx, h.allocCancel = chromedp.NewRemoteAllocator(context.Background(), h.cfg.RemoteURL)
	} else {
		h.allocCtx, h.allocCancel = chromedp.NewExecAllocator(context.Background(), AllocatorOptions(h.cfg)...)
	}

	h.browserCtx, h.browserCancel = chromedp.NewContext(h.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			h.logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			h.logger.Warn(fmt.Sprintf(format, args...))
		}),
	)
	if err := chromedp.Run(h.browserCtx); err != nil {
		h.browserCancel()
		h.allocCancel()
		h.browserCtx = nil
		return errs.New(errs.ErrorTypeBrowser, "start chrome", err)
	}

	logger.LogComponentStart(h.logger, "browser", map[string]interface{}{
		"headless": h.cfg.Headless,
		"remote":   h.cfg.RemoteURL != "",
	})
	return nil
}

// Open loads url in a new tab, waits for the document to finish loading
// and for the settle delay, and returns the tab
func (h *Host) Open(ctx context.Context, url string) (*Session, error) {
	if err := h.start(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(h.browserCtx)
	s := &Session{ctx: tabCtx, cancel: cancel, url: url, logger: h.logger.WithField("url", url)}

	// The first Run on a tab starts its event loop with the context it is
	// given, so it must be the tab context itself and not a derived one.
	if err := attachTab(ctx, tabCtx, cancel); err != nil {
		return nil, errs.New(errs.ErrorTypeBrowser, "open tab", err)
	}

	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		cancel()
		return nil, errs.New(errs.ErrorTypeBrowser, "navigate to "+url, err)
	}

	ready, err := retry.PollUntil(ctx, func(int) (bool, error) {
		var state string
		if err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			if ctx.Err() != nil {
				return false, err
			}
			return false, nil
		}
		return state == "complete", nil
	}, &retry.ConstantBackoff{Delay: h.cfg.LoadPollInterval}, h.cfg.LoadAttempts)
	if err != nil {
		cancel()
		return nil, err
	}
	if !ready {
		cancel()
		return nil, errs.New(errs.ErrorTypeBrowser, "page did not finish loading", nil)
	}

	if err := retry.Wait(ctx, h.cfg.SettleDelay); err != nil {
		cancel()
		return nil, err
	}

	s.logger.Info("Viewer ready")
	return s, nil
}

// attachTab creates the target for tabCtx. The tab is closed if ctx ends
// before the target is ready.
func attachTab(ctx, tabCtx context.Context, cancel context.CancelFunc) error {
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx)
	if !stop() || err != nil {
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Close shuts the browser down. Attached remote browsers are left running.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browserCtx == nil {
		return
	}
	h.browserCancel()
	h.allocCancel()
	h.browserCtx = nil
	logger.LogComponentStop(h.logger, "browser", "closed")
}
