// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The session controller and the CLI services depend
// on these abstractions only, so the query backend, the scheduler driving the
// polling loop, and the history store can each be swapped for test doubles.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., QueryClient, Scheduler)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/pdqa/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.pdqa/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// QueryClient is the stateless request/response translation to the query
// backend. Every call is a fresh round trip.
type QueryClient interface {
	SubmitQuery(ctx context.Context, text string) (domain.Query, error)
	GetQuery(ctx context.Context, queryID string) (domain.Query, error)
	// CheckHealth never returns an error; any failure reads as unhealthy.
	CheckHealth(ctx context.Context) bool
}

// Scheduler runs fn every interval until the returned stop function is
// called. fn invocations never overlap, and stop must be safe to call from
// inside fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// CitationResolver maps a citation to the visual region it refers to.
type CitationResolver interface {
	Resolve(ctx context.Context, citation domain.Citation) (domain.ChunkLocation, error)
}

// Highlighter produces a navigable target showing text on a page of a document.
type Highlighter interface {
	LocateAndHighlight(ctx context.Context, doc domain.DocumentRef, page int, text string) (string, error)
}

// HistoryRepository persists queries asked from this machine.
type HistoryRepository interface {
	Save(ctx context.Context, record domain.HistoryRecord) error
	Records(ctx context.Context, limit int, search string) ([]domain.HistoryRecord, error)
	Prune(ctx context.Context, olderThan time.Time) (int, error)
	Clear(ctx context.Context) error
	Location() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
