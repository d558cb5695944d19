package domain

import "context"

// ListOpts carries standard pagination parameters for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// ExecutionStore persists finalized execution results for audit. The router
// treats persistence as an external collaborator: a store failure is logged,
// never allowed to fail the route.
type ExecutionStore interface {
	Create(ctx context.Context, res ExecutionResult) error
	Get(ctx context.Context, routeID string) (ExecutionResult, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]ExecutionResult, error)
}

// BookCache holds the most recent aggregated book per asset for read-side
// consumers (API, dashboards). Routing decisions never read from it; each
// decision aggregates fresh.
type BookCache interface {
	SetSnapshot(ctx context.Context, book AggregatedBook) error
	GetSnapshot(ctx context.Context, asset string) (AggregatedBook, error)
}

// ProfileCache stores venue reference data refreshed out-of-band.
type ProfileCache interface {
	SetProfile(ctx context.Context, p VenueProfile) error
	GetProfile(ctx context.Context, venue string) (VenueProfile, error)
}

// Archiver exports finalized execution results to long-term object storage.
type Archiver interface {
	ArchiveResult(ctx context.Context, res ExecutionResult) error
}
