// Package logger provides the structured logging interface used across albumscan.
//
// It wraps zerolog with a small Logger interface supporting levels, fields,
// errors and contexts. Console output is colored; file output is JSON and is
// rotated by lumberjack according to the logging config.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging, os.Stderr)
//	logger.WithField("url", target).Info("Opening album")
//
// Domain helpers keep the engine's log lines uniform:
//
//	logger.LogCapture(log, asset.Ordinal, asset.StrongKey, asset.Width, asset.Height)
//	logger.LogTermination(log, string(reason), captured, iterations, elapsed)
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
