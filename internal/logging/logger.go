// Package logging is the structured logger every client component takes.
// New builds the log/slog backed implementation from configuration.
package logging

import "context"

// Logger takes alternating key/value args after the message:
//
//	log.Info(ctx, "campaigns refreshed", "count", n, "generation", gen)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for failures the client recovers from, such as a stale refresh.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that prepends args to every record.
	With(args ...any) Logger
}
