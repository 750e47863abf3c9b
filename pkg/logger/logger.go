package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field aliases for zap fields
type Field = zapcore.Field

// Helper functions for creating fields
var (
	// String creates a field with a string value
	String = zap.String
	// Int creates a field with an int value
	Int = zap.Int
	// Float64 creates a field with a float64 value
	Float64 = zap.Float64
	// Bool creates a field with a bool value
	Bool = zap.Bool
	// Duration creates a field with a time.Duration value
	Duration = zap.Duration
	// Strings creates a field with a string slice value
	Strings = zap.Strings
	// Error creates a field with an error value
	Error = zap.Error
	// Any creates a field with any value
	Any = zap.Any
)

// Logger is a wrapper around zap.Logger
type Logger struct {
	*zap.Logger
}

// Config represents logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// nameWidth is the column width used for logger names in console output
const nameWidth = 18

// levelColors are the ANSI styles used for console levels
var levelColors = map[zapcore.Level]string{
	zapcore.ErrorLevel: "1;31",
	zapcore.WarnLevel:  "1;33",
	zapcore.InfoLevel:  "1;36",
	zapcore.DebugLevel: "1;37",
}

func coloredLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color, ok := levelColors[level]
	if !ok {
		enc.AppendString(level.String())
		return
	}
	enc.AppendString("\033[" + color + "m" + level.String() + "\033[0m")
}

// fixedWidthNameEncoder prints the last dotted component of the name in a
// nameWidth column
func fixedWidthNameEncoder(loggerName string, enc zapcore.PrimitiveArrayEncoder) {
	name := loggerName[strings.LastIndex(loggerName, ".")+1:]
	enc.AppendString(fmt.Sprintf("%-*.*s", nameWidth, nameWidth, name))
}

// New creates a new logger writing to stdout
func New(config Config) (*Logger, error) {
	return NewWithWriter(config, os.Stdout)
}

// NewWithWriter creates a new logger writing to w
func NewWithWriter(config Config, w io.Writer) (*Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	debug := level == zapcore.DebugLevel

	encoder, err := newEncoder(config.Format, debug)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if debug {
		opts = append(opts, zap.AddCaller())
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)
	return &Logger{Logger: zap.New(core, opts...)}, nil
}

// newEncoder builds the json or console encoder. Callers are only encoded
// at debug level.
func newEncoder(format string, debug bool) (zapcore.Encoder, error) {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
	if debug {
		cfg.CallerKey = "caller"
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
	}

	switch format {
	case "json":
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncodeName = zapcore.FullNameEncoder
		return zapcore.NewJSONEncoder(cfg), nil
	case "console":
		cfg.EncodeLevel = coloredLevelEncoder
		cfg.EncodeName = fixedWidthNameEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	}
	return nil, fmt.Errorf("unsupported log format: %s", format)
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// ParseLevel parses the log level string
func ParseLevel(level string) (zapcore.Level, error) {
	switch l := strings.ToLower(level); l {
	case "":
		return zapcore.InfoLevel, nil
	case "debug", "info", "warn", "error":
		return zapcore.ParseLevel(l)
	}
	return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", level)
}

// With returns a logger with the given fields
func (l *Logger) With(fields ...zapcore.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a logger with the given name
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// WithRequestID returns a logger with the request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(zap.String("request_id", requestID))
}

// WithError returns a logger with the error field
func (l *Logger) WithError(err error) *Logger {
	return l.With(zap.Error(err))
}

// ICAO is the field used for airport codes
func ICAO(code string) Field {
	return zap.String("icao", code)
}
