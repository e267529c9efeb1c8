// Package stage defines the contract every workflow stage implements so the
// manager can drive scraping, rendering, and publishing uniformly.
package stage

import (
	"context"
	"log/slog"

	"clipforge/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare runs before the processing transition is persisted; Execute does
// the work; HealthCheck reports readiness for status output.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware is implemented by handlers that accept a request-scoped logger
// before each execution.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
