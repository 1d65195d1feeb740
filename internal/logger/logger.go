// Package logger provides structured logging for the WebSocket probe.
package logger

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log levels.
type Level = zerolog.Level

// Log levels.
const (
	TraceLevel = zerolog.TraceLevel
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	zl zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      Level
	Pretty     bool // Use console writer (colored output)
	Output     io.Writer
	TimeFormat string
	Component  string // Component name (e.g., "probe", "conn", "session")
}

// DefaultConfig returns sensible defaults. Logs go to stderr so stdout
// carries only probe status lines.
func DefaultConfig() Config {
	return Config{
		Level:      WarnLevel,
		Pretty:     true,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// New creates a new logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var output io.Writer = cfg.Output

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
		}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		Logger().
		Level(cfg.Level)

	if cfg.Component != "" {
		zl = zl.With().Str("component", cfg.Component).Logger()
	}

	return &Logger{zl: zl}
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithComponent returns a new logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		zl: l.zl.With().Str("component", component).Logger(),
	}
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		zl: l.zl.With().Interface(key, value).Logger(),
	}
}

// WithEndpoint returns a new logger with the endpoint field.
func (l *Logger) WithEndpoint(endpoint string) *Logger {
	return &Logger{
		zl: l.zl.With().Str("endpoint", endpoint).Logger(),
	}
}

// WithSession returns a new logger with the session ID field.
func (l *Logger) WithSession(id string) *Logger {
	return &Logger{
		zl: l.zl.With().Str("session", id).Logger(),
	}
}

// WithError returns a new logger with error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		zl: l.zl.With().Err(err).Logger(),
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Event returns a zerolog Event for complex logging.
func (l *Logger) Event(level Level) *zerolog.Event {
	switch level {
	case TraceLevel:
		return l.zl.Trace()
	case DebugLevel:
		return l.zl.Debug()
	case InfoLevel:
		return l.zl.Info()
	case WarnLevel:
		return l.zl.Warn()
	case ErrorLevel:
		return l.zl.Error()
	default:
		return l.zl.Info()
	}
}

// HandshakeEvent logs the upgrade response of a handshake.
func (l *Logger) HandshakeEvent(url string, resp *http.Response, duration time.Duration) {
	event := l.zl.Debug().
		Str("url", url).
		Dur("duration", duration)

	if resp != nil {
		event = event.Int("status_code", resp.StatusCode)
		for k, v := range resp.Header {
			event = event.Strs("hdr_"+k, v)
		}
	}

	event.Msg("Handshake")
}

// FrameEvent logs a received frame.
func (l *Logger) FrameEvent(kind string, seq int, size int) {
	l.zl.Debug().
		Str("kind", kind).
		Int("seq", seq).
		Int("size", size).
		Msg("Frame received")
}

// ControlEvent logs a control frame (ping, pong, close).
func (l *Logger) ControlEvent(kind string, payload string) {
	l.zl.Debug().
		Str("kind", kind).
		Str("payload", payload).
		Msg("Control frame")
}

// ErrorEvent logs an error event with context.
func (l *Logger) ErrorEvent(err error, url string, operation string) {
	l.zl.Error().
		Err(err).
		Str("url", url).
		Str("operation", operation).
		Msg("Operation failed")
}

// StatsEvent logs statistics.
func (l *Logger) StatsEvent(stats map[string]interface{}) {
	event := l.zl.Info()
	for k, v := range stats {
		event = event.Interface(k, v)
	}
	event.Msg("Probe statistics")
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level Level) {
	l.zl = l.zl.Level(level)
}

// ParseLevel parses a level string.
func ParseLevel(levelStr string) (Level, error) {
	return zerolog.ParseLevel(levelStr)
}

// Global logger instance.
var globalLogger = NewDefault()

// SetGlobal sets the global logger.
func SetGlobal(l *Logger) {
	globalLogger = l
}

// Global returns the global logger.
func Global() *Logger {
	return globalLogger
}
