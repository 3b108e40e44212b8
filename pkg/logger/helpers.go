package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogCapture logs a successfully captured item
func LogCapture(l Logger, ordinal int, strongKey string, width, height int) {
	l.WithFields(map[string]interface{}{
		"ordinal":    ordinal,
		"strong_key": strongKey,
		"width":      width,
		"height":     height,
	}).Info("Item captured")
}

// LogSkip logs an item that was seen but not captured
func LogSkip(l Logger, reason, strongKey string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"reason":     reason,
		"strong_key": strongKey,
	})
	if err != nil {
		entry.WithError(err).Warn("Item skipped")
		return
	}
	entry.Debug("Item skipped")
}

// LogCooldown logs a periodic cooldown pause
func LogCooldown(l Logger, captured int, pause time.Duration) {
	l.WithFields(map[string]interface{}{
		"captured": captured,
		"pause":    pause,
		"action":   "cooldown",
	}).Info("Cooling down")
}

// LogTermination logs the end of a traversal session
func LogTermination(l Logger, reason string, captured, iterations int, elapsed time.Duration) {
	l.WithFields(map[string]interface{}{
		"reason":     reason,
		"captured":   captured,
		"iterations": iterations,
		"elapsed":    elapsed,
	}).Info("Traversal finished")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

var nopZerolog = zerolog.Nop()

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return &nopZerolog }
