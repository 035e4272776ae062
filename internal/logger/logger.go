package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options selects the output and verbosity of a Logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output io.Writer
}

// Logger writes structured entries tagged with service, hostname, action
// and request id.
type Logger struct {
	service  string
	hostname string
	zl       zerolog.Logger
}

// New returns a JSON logger on stdout at info level.
func New(service string) *Logger {
	return NewWithOptions(service, Options{})
}

// NewWithOptions builds a logger from explicit options.
func NewWithOptions(service string, opts Options) *Logger {
	hostname, _ := os.Hostname()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()

	return &Logger{
		service:  service,
		hostname: hostname,
		zl:       zl,
	}
}

// Nop discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{service: "nop", zl: zerolog.Nop()}
}

func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.write(l.zl.Info(), action, message, requestID, fields)
}

func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.write(l.zl.Debug(), action, message, requestID, fields)
}

func (l *Logger) Warn(action, message, requestID string, fields map[string]interface{}) {
	l.write(l.zl.Warn(), action, message, requestID, fields)
}

func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	ev := l.zl.Error()
	if err != nil {
		ev = ev.Dict("error", zerolog.Dict().
			Str("msg", err.Error()).
			Str("stack", string(debug.Stack())))
	}
	l.write(ev, action, message, requestID, fields)
}

func (l *Logger) write(ev *zerolog.Event, action, message, requestID string, fields map[string]interface{}) {
	if ev == nil {
		return
	}
	ev = ev.Str("service", l.service).
		Str("hostname", l.hostname).
		Str("action", action)
	if requestID != "" {
		ev = ev.Str("request_id", requestID)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(message)
}

// GenerateRequestID returns a new correlation id.
func GenerateRequestID() string {
	return uuid.NewString()
}

type requestIDKey struct{}

// WithRequestID stores id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
