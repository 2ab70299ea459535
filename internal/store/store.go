// Package store persists transpile runs in an embedded libSQL database.
package store

import "context"

// Store is the run history contract.
// All implementations must be safe for concurrent use.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// LatestRun returns the newest run for a source file, or nil when the
	// file has never been transpiled.
	LatestRun(ctx context.Context, sourcePath string) (*Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
