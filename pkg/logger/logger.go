package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// VerboseLevel represents the verbosity level for logging
type VerboseLevel int

const (
	// VerboseSilent means no verbose output
	VerboseSilent VerboseLevel = 0
	// VerboseNormal means standard verbose output (-v)
	VerboseNormal VerboseLevel = 1
	// VerboseVery means detailed debugging output (-vv)
	VerboseVery VerboseLevel = 2
)

// Logger handles verbose output at different levels.
// V maps to zerolog's debug level and VV, Section and Detail to trace.
type Logger struct {
	level VerboseLevel
	zl    zerolog.Logger
}

// NewLogger creates a console logger on stderr with the specified verbosity level
func NewLogger(level int) *Logger {
	out := zerolog.ConsoleWriter{
		Out:          os.Stderr,
		NoColor:      !term.IsTerminal(int(os.Stderr.Fd())),
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return newLogger(zerolog.SyncWriter(out), level)
}

// NewWithWriter creates a logger that writes JSON lines to w.
func NewWithWriter(w io.Writer, level int) *Logger {
	return newLogger(zerolog.SyncWriter(w), level)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{level: VerboseSilent, zl: zerolog.Nop()}
}

func newLogger(w io.Writer, level int) *Logger {
	l := VerboseLevel(level)
	// per-logger levels filter; the global floor must not hide trace events
	if zl := zerologLevel(l); zerolog.GlobalLevel() > zl {
		zerolog.SetGlobalLevel(zl)
	}
	return &Logger{
		level: l,
		zl:    zerolog.New(w).Level(zerologLevel(l)),
	}
}

func zerologLevel(l VerboseLevel) zerolog.Level {
	switch {
	case l >= VerboseVery:
		return zerolog.TraceLevel
	case l == VerboseNormal:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Level returns the configured verbosity.
func (l *Logger) Level() VerboseLevel {
	return l.level
}

// IsVerbose returns true if verbose mode is enabled (-v or -vv)
func (l *Logger) IsVerbose() bool {
	return l.level >= VerboseNormal
}

// IsVeryVerbose returns true if very verbose mode is enabled (-vv)
func (l *Logger) IsVeryVerbose() bool {
	return l.level >= VerboseVery
}

// With returns a child logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{level: l.level, zl: l.zl.With().Str(key, value).Logger()}
}

// V logs a message at verbose level (-v)
func (l *Logger) V(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// VV logs a message at very verbose level (-vv)
func (l *Logger) VV(format string, args ...interface{}) {
	l.zl.Trace().Msgf(format, args...)
}

// Info logs an informational message (always shown unless silent)
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Error logs an error message (always shown unless silent)
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Err logs err with a message.
func (l *Logger) Err(err error, format string, args ...interface{}) {
	l.zl.Error().Err(err).Msgf(format, args...)
}

// Section logs a section header for very verbose mode
func (l *Logger) Section(title string) {
	l.zl.Trace().Str("section", title).Msg(fmt.Sprintf("=== %s ===", title))
}

// Detail logs a detail line for very verbose mode with indentation
func (l *Logger) Detail(format string, args ...interface{}) {
	l.zl.Trace().Msgf("→ "+format, args...)
}
