package logger

import corelogger "github.com/kilianp07/pa/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything. Tests and optional components use it.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format follows
// the APP_ENV variable and the level follows Setup.
func New(component string) Logger {
	return NewZerologLogger(component)
}
