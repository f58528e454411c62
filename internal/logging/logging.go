// Package logging provides ralphd's logging infrastructure built on
// charmbracelet/log.
//
// It wraps charmbracelet/log to provide a centralized logger factory with
// component prefixes, level configuration, and stderr-only output. All log
// output goes to stderr; stdout is reserved for command output.
//
// Usage:
//
//	// During CLI initialization (PersistentPreRun):
//	logging.Setup(verbose, jsonFormat)
//
//	// In each component:
//	logger := logging.New("queue")
//	logger.Info("run started", "run", runID)
//
// Setup must be called before New so child loggers inherit the configured
// level and formatter. charmbracelet/log copies state into child loggers at
// creation time; later changes to the default logger do not propagate.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Level aliases for charmbracelet/log levels, re-exported so consumers do
// not need to import charmbracelet/log directly.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
	LevelFatal = log.FatalLevel
)

// Setup configures the global logging defaults. Call once during CLI
// initialization.
//
// verbose sets the level to Debug; jsonFormat switches to the NDJSON
// formatter for log aggregation. All loggers write to stderr.
func Setup(verbose, jsonFormat bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if jsonFormat {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// New creates a logger with the given component prefix. The returned logger
// inherits global level and output settings from the default logger at
// creation time. An empty component string produces a logger without a
// prefix.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// SetOutput overrides the output writer for the default logger. Primarily
// useful for tests capturing output in a bytes.Buffer.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
