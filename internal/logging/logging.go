// Package logging configures the process-wide zerolog logger and hands out
// component and request scoped children.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", ... (default info)
	Format  string    // "json" (default) or "console"
	Output  io.Writer // defaults to os.Stdout
	Service string
	Version string
}

var (
	mu   sync.RWMutex
	once sync.Once
	base zerolog.Logger
)

// Configure replaces the global logger. It is called once from the entrypoint;
// packages that log before that get the default JSON logger.
func Configure(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}

	service := cfg.Service
	if service == "" {
		service = "readowl"
	}

	ctx := zerolog.New(writer).With().Timestamp().Str("service", service)
	if cfg.Version != "" {
		ctx = ctx.Str("version", cfg.Version)
	}

	mu.Lock()
	base = ctx.Logger()
	mu.Unlock()
	once.Do(func() {})
}

// Base returns the configured logger.
func Base() zerolog.Logger {
	once.Do(func() {
		mu.Lock()
		base = zerolog.New(os.Stdout).With().Timestamp().Str("service", "readowl").Logger()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// ContextWithRequestID stores the request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from ctx if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns the base logger enriched with the request ID carried by ctx.
func FromContext(ctx context.Context) zerolog.Logger {
	l := Base()
	if rid := RequestIDFromContext(ctx); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	return l
}
