package ports

import (
	"context"

	"socassay/domain/trial"
)

// TrialReader loads a long-format field-trial table from an external source.
type TrialReader interface {
	// ReadTable parses the full table. Rows with malformed numeric cells are
	// reported as errors, not silently dropped.
	ReadTable(ctx context.Context) (*trial.Table, error)
}
