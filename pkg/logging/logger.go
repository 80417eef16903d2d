// Package logging provides the structured logger used across pochain,
// grounded on the teacher's pkg/monitoring/logger.go (leveled
// WithField/WithFields chaining over a hand-rolled log.Logger). The
// ambient stack calls for a real structured-logging library rather than
// stdlib log, so this wraps github.com/rs/zerolog instead of
// reimplementing level filtering and field formatting by hand.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger, keeping the teacher's WithField(s)
// chaining API so call sites read the same way while the formatting and
// level machinery comes from the library.
type Logger struct {
	z zerolog.Logger
}

// ParseLevel maps the config package's string log levels onto
// zerolog.Level, defaulting to Info for anything unrecognized.
func ParseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a Logger writing human-readable, colorized output to
// stderr at the given level -- the console writer the teacher's node
// would use during interactive operation, as opposed to a JSON sink for
// log aggregation.
func New(level zerolog.Level) *Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	z := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return &Logger{z: z}
}

// WithField returns a derived Logger carrying an additional field on
// every subsequent entry.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{z: l.z.With().Interface(key, value).Logger()}
}

// WithFields returns a derived Logger carrying several additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.z.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{z: ctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.z.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.z.Warn().Msg(msg) }
func (l *Logger) Error(err error, msg string) {
	l.z.Error().Err(err).Msg(msg)
}

// Fatal logs at fatal level and terminates the process, matching the
// teacher's Logger.Fatal -- a node that cannot read its own persisted
// state has no well-defined way to continue.
func (l *Logger) Fatal(err error, msg string) {
	l.z.Fatal().Err(err).Msg(msg)
}
