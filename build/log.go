package build

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
)

// LogType indicates the type of logging specified by the build flag.
type LogType byte

const (
	// LogTypeNone indicates no logging.
	LogTypeNone LogType = iota

	// LogTypeStdOut all logging is written directly to stdout.
	LogTypeStdOut

	// LogTypeDefault logs to both stdout and a given io.PipeWriter.
	LogTypeDefault
)

// String returns a human readable identifier for the logging type.
func (t LogType) String() string {
	switch t {
	case LogTypeNone:
		return "none"
	case LogTypeStdOut:
		return "stdout"
	case LogTypeDefault:
		return "default"
	default:
		return "unknown"
	}
}

// LogWriter writes log lines to stdout and, when set, to the log rotator.
// Its behavior can be changed using the build flags "stdlog" and "nolog".
type LogWriter struct {
	// RotatorPipe is the write-end pipe for writing to the log rotator.
	RotatorPipe io.Writer
}

// Write writes the given bytes to stdout and the rotator pipe, if one is
// set.
func (w *LogWriter) Write(b []byte) (int, error) {
	if LoggingType == LogTypeNone {
		return len(b), nil
	}

	_, _ = os.Stdout.Write(b)
	if LoggingType == LogTypeDefault && w.RotatorPipe != nil {
		_, _ = w.RotatorPipe.Write(b)
	}

	return len(b), nil
}

// NewSubLogger constructs a new subsystem log from the current LogWriter
// implementation. This is primarily intended for use with stdlog, as the
// actual writer is shared amongst all instantiations.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	switch Deployment {

	// For production builds, generate a new subsystem logger from the
	// primary log backend. If no function is provided, logging will be
	// disabled.
	case Production:
		if genSubLogger != nil {
			return genSubLogger(subsystem)
		}

	// For development builds we either mimic production, or write
	// straight to stdout when running unit tests with the stdlog tag.
	case Development:
		switch LoggingType {
		case LogTypeDefault:
			if genSubLogger != nil {
				return genSubLogger(subsystem)
			}

		case LogTypeStdOut:
			backend := btclog.NewBackend(&LogWriter{})
			logger := backend.Logger(subsystem)

			level, _ := btclog.LevelFromString(LogLevel)
			logger.SetLevel(level)

			return logger
		}
	}

	return btclog.Disabled
}

// SubLoggers is a type that holds a map of subsystem loggers keyed by their
// subsystem name.
type SubLoggers map[string]btclog.Logger

// LeveledSubLogger provides the ability to retrieve the subsystem loggers of
// a logger and set their log levels individually or all at once.
type LeveledSubLogger interface {
	// SubLoggers returns the map of all registered subsystem loggers.
	SubLoggers() SubLoggers

	// SupportedSubsystems returns a sorted slice of the registered
	// subsystem names.
	SupportedSubsystems() []string

	// SetLogLevel assigns an individual subsystem logger a new log level.
	SetLogLevel(subsystemID string, logLevel string)

	// SetLogLevels assigns all subsystem loggers the same new log level.
	SetLogLevels(logLevel string)
}

// sortedSubsystems returns the keys of the given map in sorted order.
func sortedSubsystems(loggers SubLoggers) []string {
	subsystems := make([]string, 0, len(loggers))
	for name := range loggers {
		subsystems = append(subsystems, name)
	}
	sort.Strings(subsystems)

	return subsystems
}

// ParseAndSetDebugLevels applies a debug level spec of the form
// "<level>" or "[<level>,]<subsystem>=<level>,..." to logger.
func ParseAndSetDebugLevels(level string, logger LeveledSubLogger) error {
	entries := strings.Split(level, ",")

	// A leading entry without a subsystem sets every subsystem.
	if !strings.Contains(entries[0], "=") {
		if !validLogLevel(entries[0]) {
			return fmt.Errorf("invalid debug level %q", entries[0])
		}
		logger.SetLogLevels(entries[0])
		entries = entries[1:]
	}

	subLoggers := logger.SubLoggers()
	for _, entry := range entries {
		subsystem, lvl, ok := strings.Cut(entry, "=")
		if !ok || strings.Contains(lvl, "=") {
			return fmt.Errorf("invalid subsystem/level pair %q, "+
				"use subsystem1=level1,subsystem2=level2", entry)
		}

		if _, exists := subLoggers[subsystem]; !exists {
			return fmt.Errorf("unknown subsystem %q, supported "+
				"subsystems are %v", subsystem,
				logger.SupportedSubsystems())
		}

		if !validLogLevel(lvl) {
			return fmt.Errorf("invalid debug level %q for %s", lvl,
				subsystem)
		}

		logger.SetLogLevel(subsystem, lvl)
	}

	return nil
}

// validLogLevel reports whether btclog knows logLevel.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}
