// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// zap has no level between Info and Debug, so verbose output sits on
// zap's Debug and our debug output one step below it.
const (
	zapVerbose = zapcore.DebugLevel
	zapDebug   = zapcore.DebugLevel - 1
)

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  It is a thin shell around a zap core so child
// loggers can carry structured fields (see [Logger.With]).
type Logger struct {
	level      LogLevel
	timestamps bool // if true, prepend HH:MM:SS.mmm timestamps

	output zapcore.WriteSyncer
	fields []zap.Field
	zl     *zap.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     zapcore.Lock(zapcore.AddSync(os.Stderr)),
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.rebuild()
	return l
}

// NewFileLogger is like [NewLogger] but writes to a size-rotated file.
func NewFileLogger(verbosity int, path string, maxSizeMB, maxBackups int) *Logger {
	l := NewLogger(verbosity)
	l.SetTimestamps(true)
	l.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	})
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = zapcore.Lock(zapcore.AddSync(w))
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// With returns a child logger that appends fields to every line.
// The child shares the parent's output and level.
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := &Logger{
		level:      l.level,
		timestamps: l.timestamps,
		output:     l.output,
		fields:     append(append([]zap.Field(nil), l.fields...), fields...),
	}
	child.rebuild()
	return child
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(zapcore.InfoLevel, format, args...)
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(zapcore.WarnLevel, format, args...)
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.write(zapVerbose, format, args...)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(zapDebug, format, args...)
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(zapcore.ErrorLevel, format, args...)
}

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) write(lvl zapcore.Level, format string, args ...interface{}) {
	if ce := l.zl.Check(lvl, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// rebuild recreates the zap core after a setting changes.
func (l *Logger) rebuild() {
	encCfg := zapcore.EncoderConfig{
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevelTag,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if l.timestamps {
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	encCfg.ConsoleSeparator = " "

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		l.output,
		zap.LevelEnablerFunc(l.enabled),
	)
	l.zl = zap.New(core).With(l.fields...)
}

func (l *Logger) enabled(lvl zapcore.Level) bool {
	switch {
	case lvl >= zapcore.ErrorLevel:
		return true
	case lvl >= zapcore.InfoLevel:
		return l.level >= LogNormal
	case lvl == zapVerbose:
		return l.level >= LogVerbose
	default:
		return l.level >= LogDebug
	}
}

func encodeLevelTag(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch {
	case lvl >= zapcore.ErrorLevel:
		enc.AppendString("[ERR]")
	case lvl == zapcore.WarnLevel:
		enc.AppendString("[WRN]")
	case lvl == zapcore.InfoLevel:
		enc.AppendString("[INF]")
	case lvl == zapVerbose:
		enc.AppendString("[VRB]")
	default:
		enc.AppendString("[DBG]")
	}
}
