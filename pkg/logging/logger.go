// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// RequestIDHeader carries the request id assigned by Middleware.
const RequestIDHeader = "X-Request-Id"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Middleware attaches logger to every request and writes one access log line
// per request. Handlers can reach the request-scoped logger via hlog.FromRequest.
func Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("request_id", RequestIDHeader),
		hlog.MethodHandler("method"),
		hlog.URLHandler("url"),
		hlog.RemoteAddrHandler("remote_addr"),
		hlog.AccessHandler(accessLog),
	}

	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	event := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Warn()
	}
	event.
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, derived key, TTL)
//   - Client errors passed through from the origin (404)
//   - Background cache writes
//
// Info: Normal operation events
//   - Access log lines
//   - Server startup/shutdown
//   - Warmup summary
//
// Warn: Warning conditions that don't prevent operation
//   - Store unavailable (request served from origin)
//   - Cache write failures
//   - Origin retry exhaustion
//
// Error: Error conditions requiring attention
//   - Origin failures surfaced to clients as 502
//   - Startup failures (Redis unreachable, invalid configuration)
//
// Context Fields:
//   - component: cache, origin, photos, warmup, server
//   - resource: photos or photo
//   - key: derived cache key
//   - endpoint: origin endpoint template
//   - status: HTTP status code
//   - duration: request or fetch duration
//   - error_class: origin error classification (client, server, network, decode)
//   - cache_hit: true on hit
//   - request_id: id assigned by Middleware
