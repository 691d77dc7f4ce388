// Package logger wraps zerolog.Logger with the constructors and context
// helpers used by the server, the CLI and the migrations.
//
// Logger embeds zerolog.Logger, so Debug/Info/Warn/Error and friends are
// available directly. Request handlers obtain their request-scoped logger
// with FromRequest; the web middleware attaches it.
package logger

import (
	"context"
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger struct {
	zerolog.Logger
}

// New builds a JSON logger writing to stdout, tagged with role and level.
// An unknown level falls back to info.
func New(role, level string) *Logger {
	return NewWithWriter(os.Stdout, role, level)
}

func NewWithWriter(w io.Writer, role, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	l := zerolog.New(w).Level(lvl).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()
	return &Logger{l}
}

// Nop discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

func (l *Logger) GetChildLogger() *Logger {
	return &Logger{l.With().Logger()}
}

// FromRequest returns the logger attached to the request context, or the
// zerolog default when none was attached.
func FromRequest(r *http.Request) *Logger {
	return FromContext(r.Context())
}

func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
