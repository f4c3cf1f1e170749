package ports

import (
	"context"

	"socassay/domain/core"
	"socassay/domain/run"
)

// RunStore persists analysis run manifests and their result payloads.
type RunStore interface {
	// SaveRun stores the manifest together with the JSON-encoded payload.
	SaveRun(ctx context.Context, manifest run.Manifest, payload interface{}) error

	// GetRun returns the stored run, or a NOT_FOUND error.
	GetRun(ctx context.Context, id core.RunID) (*run.StoredRun, error)

	// ListRuns returns the most recent manifests, newest first.
	ListRuns(ctx context.Context, limit int) ([]run.Manifest, error)
}
