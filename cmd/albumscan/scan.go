package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"albumscan/pkg/browser"
	"albumscan/pkg/config"
	"albumscan/pkg/engine"
	"albumscan/pkg/handoff"
	"albumscan/pkg/logger"
	"albumscan/pkg/metrics"
	"albumscan/pkg/ui"
	"albumscan/pkg/ui/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Scan command flags
	headless      bool
	chromePath    string
	remoteURL     string
	userDataDir   string
	maxIterations int
	handoffKind   string
	redisAddr     string
	autoExport    bool
	exportFormat  string
	outputDir     string
	metricsAddr   string
	plainOutput   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Walk an album from the given photo and capture every image",
	Long: `Open the viewer at <url>, walk the album with its next control and capture
each full-size image once.

Press s (or Ctrl+C) to stop early. Whatever was captured up to that point is
still saved and exported.`,
	Example: `  # Walk an album starting at a photo, reusing a logged-in profile
  albumscan scan "https://www.facebook.com/photo/?fbid=123&set=a.456" --user-data-dir ~/.config/chromium

  # Attach to a running Chrome and write a ZIP archive
  albumscan scan "$URL" --remote-url ws://127.0.0.1:9222/devtools/browser/abc --format zip

  # Keep the collection for a later 'albumscan export'
  albumscan scan "$URL" --auto-export=false`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	f := scanCmd.Flags()
	f.BoolVar(&headless, "headless", false, "run Chrome without a window")
	f.StringVar(&chromePath, "chrome-path", "", "Chrome executable to launch")
	f.StringVar(&remoteURL, "remote-url", "", "attach to a running Chrome DevTools endpoint")
	f.StringVar(&userDataDir, "user-data-dir", "", "Chrome profile directory to reuse")
	f.IntVar(&maxIterations, "max-iterations", 0, "stop after this many steps")
	f.StringVar(&handoffKind, "handoff", "", "where to store the collection (file, redis)")
	f.StringVar(&redisAddr, "redis-addr", "", "redis address for the redis handoff")
	f.BoolVar(&autoExport, "auto-export", true, "export as soon as the walk ends")
	f.StringVarP(&exportFormat, "format", "f", "", "export format (pdf, zip)")
	f.StringVarP(&outputDir, "output", "o", "", "export directory")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&plainOutput, "plain", false, "print status lines instead of the terminal panel")

	// A bare URL runs a scan
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && looksLikeURL(args[0]) {
			return runScan(scanCmd, args)
		}
		return cmd.Help()
	}
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// scanFlags collects the flags the user actually set
func scanFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags().Changed

	if set("headless") {
		flags["headless"] = headless
	}
	if set("auto-export") {
		flags["auto-export"] = autoExport
	}
	flags["chrome-path"] = chromePath
	flags["remote-url"] = remoteURL
	flags["user-data-dir"] = userDataDir
	flags["max-iterations"] = maxIterations
	flags["handoff"] = handoffKind
	flags["redis-addr"] = redisAddr
	flags["format"] = exportFormat
	flags["output"] = outputDir
	flags["metrics-addr"] = metricsAddr
	return flags
}

func runScan(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])
	if !looksLikeURL(target) {
		return fmt.Errorf("not a viewer URL: %q", target)
	}

	cfg, err := loadConfig(scanFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	usePanel := !plainOutput && !quiet && term.IsTerminal(int(os.Stdout.Fd()))

	var console io.Writer = os.Stderr
	if usePanel {
		console = nil
	}
	log, err := setupLogger(cfg, console)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("url", target).Info("albumscan starting")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rec := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := rec.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				logger.WithError(err).Warn("Metrics server stopped")
			}
		}()
	}

	store, err := handoff.NewStore(cfg.Handoff, log)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	notifier := ui.NewNotifier(cfg.Notifications)

	if !usePanel {
		ui.PrintInfo("Album", target)
		ui.PrintHighlight("[OPENING VIEWER]")
	}

	host := browser.NewHost(cfg.Browser, log)
	defer host.Close()

	session, err := host.Open(ctx, target)
	if err != nil {
		notifier.SendError("albumscan", "Could not open the viewer")
		return err
	}

	// The panel owns the screen until it exits, so downstream output waits
	var downstreamOut io.Writer = ui.Output
	var held bytes.Buffer
	var panel *tui.TUI
	if usePanel {
		downstreamOut = &held
	}

	var downstream browser.DownstreamFunc
	if cfg.Export.Auto {
		downstream = func(ctx context.Context, key string) error {
			path, err := exportCollection(ctx, cfg, store, key, cfg.Export.Format, exportEdits{}, log)
			notifier.ExportFinished(path, err)
			if err != nil {
				if panel != nil {
					panel.Log("ERROR", "Export failed: %v", err)
				}
				fmt.Fprintf(downstreamOut, "Export failed: %v\nRetry with:\n  albumscan export --key %s\n", err, key)
				return err
			}
			if panel != nil {
				panel.Log("SUCCESS", "Exported %s", path)
			}
			fmt.Fprintf(downstreamOut, "Exported %s\n", path)
			return nil
		}
	}
	orchestrator := browser.NewOrchestrator(session, downstream, downstreamOut)

	var eng *engine.Engine
	opts := []engine.Option{
		engine.WithStore(store),
		engine.WithOrchestrator(orchestrator),
		engine.WithMetrics(rec),
		engine.WithLogger(log),
		engine.WithSourceURL(target),
	}

	var res *engine.Result
	if usePanel {
		panel = tui.NewTUI(cfg.Traversal.MaxIterations, func() { eng.Stop() }, cancel)
		eng = engine.New(cfg, append(opts, engine.WithStatusSink(panel))...)

		done := make(chan runOutcome, 1)
		go func() {
			r, err := eng.Run(ctx, session)
			if err != nil {
				panel.Stop()
			} else {
				panel.Done(r)
			}
			done <- runOutcome{res: r, err: err}
		}()

		if err := panel.Start(); err != nil {
			log.WithError(err).Error("Terminal panel failed")
			eng.Stop()
		}
		out := <-done
		if out.err != nil {
			return out.err
		}
		res = out.res
		io.Copy(ui.Output, &held)
	} else {
		eng = engine.New(cfg, append(opts, engine.WithStatusSink(ui.NewStatusPrinter(ui.Output)))...)

		stopOnSignal(ctx, eng, cancel)
		res, err = eng.Run(ctx, session)
		if err != nil {
			return err
		}
	}

	ui.PrintSummary(res)
	notifier.SessionFinished(res)
	logger.WithFields(map[string]interface{}{
		"reason":   string(res.Reason),
		"captured": len(res.Assets),
	}).Info("albumscan finished")

	if res.HandoffErr != nil {
		return res.HandoffErr
	}
	return nil
}

type runOutcome struct {
	res *engine.Result
	err error
}

// stopOnSignal asks the engine to stop on the first interrupt and cancels
// the run on the second
func stopOnSignal(ctx context.Context, eng *engine.Engine, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			ui.PrintWarning("Stopping after the current item, press Ctrl+C again to abort")
			eng.Stop()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()
}

func logExportStart(log logger.Logger, key, format string, cfg *config.Config) {
	logger.LogComponentStart(log, "export", map[string]interface{}{
		"key":    key,
		"format": format,
		"output": cfg.Export.OutputDir,
	})
}
