package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"albumscan/pkg/config"
	"albumscan/pkg/export"
	"albumscan/pkg/handoff"
	"albumscan/pkg/logger"
	"albumscan/pkg/retry"
	"albumscan/pkg/ui"

	"github.com/spf13/cobra"
)

// listRetryDelay is the pause between attempts to list stored collections
var listRetryDelay = 500 * time.Millisecond

var (
	// Export command flags
	exportKey    string
	exportOut    string
	exportFmt    string
	exportHandle string
	exportRedis  string
	edits        exportEdits
	moveArgs     []string
	rotateArgs   []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored collection as PDF or ZIP",
	Long: `Export a collection stored by 'albumscan scan'.

Items are numbered from 1 in capture order. Edits are applied in this order:
moves, rotations, excluded items, low-resolution filter, invert.`,
	Example: `  # Export the newest stored collection as a PDF
  albumscan export

  # Export a specific collection as ZIP without items 2 and 7
  albumscan export --key 3f1c... --format zip --exclude 2,7

  # Put item 5 first and turn it upright
  albumscan export --move 5:1 --rotate 1:90`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVarP(&exportKey, "key", "k", "", "collection key (default: most recent)")
	f.StringVarP(&exportFmt, "format", "f", "", "export format (pdf, zip)")
	f.StringVarP(&exportOut, "output", "o", "", "export directory")
	f.StringVar(&exportHandle, "handoff", "", "where the collection is stored (file, redis)")
	f.StringVar(&exportRedis, "redis-addr", "", "redis address for the redis handoff")
	f.IntSliceVar(&edits.exclude, "exclude", nil, "item numbers to leave out")
	f.StringSliceVar(&moveArgs, "move", nil, "move items, as from:to")
	f.StringSliceVar(&rotateArgs, "rotate", nil, "rotate items clockwise, as item:degrees")
	f.BoolVar(&edits.skipLowRes, "skip-low-res", false, "leave out low-resolution images")
	f.BoolVar(&edits.invert, "invert", false, "invert the selection")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"output":     exportOut,
		"format":     exportFmt,
		"handoff":    exportHandle,
		"redis-addr": exportRedis,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if edits.moves, err = parsePairs(moveArgs); err != nil {
		return fmt.Errorf("invalid --move: %w", err)
	}
	if edits.rotations, err = parsePairs(rotateArgs); err != nil {
		return fmt.Errorf("invalid --rotate: %w", err)
	}

	store, err := handoff.NewStore(cfg.Handoff, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	key := exportKey
	if key == "" {
		if key, err = latestKey(ctx, store, log); err != nil {
			return err
		}
		ui.PrintInfo("Collection", key)
	}

	notifier := ui.NewNotifier(cfg.Notifications)
	path, err := exportCollection(ctx, cfg, store, key, cfg.Export.Format, edits, log)
	notifier.ExportFinished(path, err)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Exported " + path)
	return nil
}

// latestKey picks the most recently stored collection
func latestKey(ctx context.Context, store handoff.Store, log logger.Logger) (string, error) {
	lister, ok := store.(handoff.Lister)
	if !ok {
		return "", errors.New("this handoff backend cannot list collections, pass --key")
	}
	keys, err := retry.DoWithResult(func() ([]string, error) {
		return lister.Keys(ctx)
	}, &retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: listRetryDelay},
		Context:     ctx,
		Logger:      log,
	})
	if err != nil {
		return "", fmt.Errorf("list collections: %w", err)
	}
	if len(keys) == 0 {
		return "", errors.New("no stored collections")
	}
	return keys[0], nil
}

// exportCollection loads the collection under key, applies edits and writes
// it. A failed export puts the collection back so it can be retried.
func exportCollection(ctx context.Context, cfg *config.Config, store handoff.Store, key, format string, ed exportEdits, log logger.Logger) (string, error) {
	logExportStart(log, key, format, cfg)

	c, err := export.Load(ctx, store, key, cfg.Export.LowResThreshold)
	if err != nil {
		return "", err
	}
	original := c.Items()

	path, err := func() (string, error) {
		if err := ed.apply(c); err != nil {
			return "", err
		}
		ui.PrintInfo("Selected", c.Stats().String())

		exp, err := export.NewExporter(cfg.Export, log)
		if err != nil {
			return "", err
		}
		return exp.Export(ctx, c, format)
	}()
	if err != nil {
		if perr := restore(ctx, store, key, c, original); perr != nil {
			log.WithError(perr).WithField("key", key).Error("Could not put the collection back")
		}
		return "", err
	}

	logger.LogComponentStop(log, "export", path)
	return path, nil
}

func restore(ctx context.Context, store handoff.Store, key string, c *export.Collection, items []export.Item) error {
	b := &handoff.Bundle{
		SessionID: c.SessionID,
		SourceURL: c.SourceURL,
		CreatedAt: time.Now(),
	}
	for _, it := range items {
		b.Assets = append(b.Assets, it.Asset)
	}
	return store.Put(ctx, key, b)
}
