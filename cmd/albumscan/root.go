package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"albumscan/pkg/config"
	"albumscan/pkg/logger"
	"albumscan/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "albumscan",
	Short: "Walk a photo viewer album and save every image in it",
	Long: `albumscan opens a paginated photo viewer in Chrome, steps through the album
with the viewer's own next control and captures each full-size image once.

The walk stops when the album wraps around to the first photo, when there is no
next control, when navigation stops responding, or at a safety limit. The
captured collection is then stored and exported as a PDF or ZIP archive.

Reuse a logged-in Chrome profile with --user-data-dir, or attach to a running
browser with --remote-url.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.Output = io.Discard
		}

		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.albumscan.yaml or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show log output next to progress")

	rootCmd.SetVersionTemplate(`albumscan {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags into flags and loads the configuration
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	switch {
	case logLevel != "":
		flags["log-level"] = logLevel
	case quiet:
		flags["log-level"] = "error"
	case !verbose:
		flags["log-level"] = "warn"
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger creates the process logger. Console output is dropped when the
// terminal panel owns the screen.
func setupLogger(cfg *config.Config, console io.Writer) (logger.Logger, error) {
	if err := logger.Initialize(&cfg.Logging, console); err != nil {
		return nil, err
	}
	return logger.GetLogger(), nil
}
