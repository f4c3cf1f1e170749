package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socassay/domain/core"
	"socassay/domain/run"
	apperrors "socassay/internal/errors"
	"socassay/ports"
)

// runRepository implements the RunStore interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunStore {
	return &runRepository{db: db}
}

const schema = `CREATE TABLE IF NOT EXISTS analysis_runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	seed BIGINT NOT NULL,
	permutations INTEGER NOT NULL,
	code_version TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the analysis_runs table if it does not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, "failed to ensure analysis_runs schema")
	}
	return nil
}

// SaveRun stores the manifest together with the JSON-encoded payload.
func (r *runRepository) SaveRun(ctx context.Context, manifest run.Manifest, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal run payload: %w", err)
	}

	query := `INSERT INTO analysis_runs (
		id, kind, seed, permutations, code_version, fingerprint, payload, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8
	)`

	_, err = r.db.ExecContext(ctx, query,
		string(manifest.RunID), string(manifest.Kind), manifest.Seed, manifest.Permutations,
		manifest.CodeVersion, string(manifest.Fingerprint), payloadJSON, manifest.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetRun retrieves a stored run by its ID.
func (r *runRepository) GetRun(ctx context.Context, id core.RunID) (*run.StoredRun, error) {
	query := `SELECT id, kind, seed, permutations, code_version, fingerprint, payload, created_at
	FROM analysis_runs WHERE id = $1`

	var (
		stored    run.StoredRun
		runID     string
		kind      string
		fp        string
		createdAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, string(id)).Scan(
		&runID, &kind, &stored.Manifest.Seed, &stored.Manifest.Permutations,
		&stored.Manifest.CodeVersion, &fp, &stored.Payload, &createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound(fmt.Sprintf("run %s", id))
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	stored.Manifest.RunID = core.RunID(runID)
	stored.Manifest.Kind = run.Kind(kind)
	stored.Manifest.Fingerprint = core.Hash(fp)
	if createdAt.Valid {
		stored.Manifest.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return &stored, nil
}

// ListRuns returns the most recent manifests, newest first.
func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := `SELECT id, kind, seed, permutations, code_version, fingerprint, created_at
	FROM analysis_runs
	ORDER BY created_at DESC
	LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var manifests []run.Manifest
	for rows.Next() {
		var (
			m         run.Manifest
			runID     string
			kind      string
			fp        string
			createdAt sql.NullTime
		)
		if err := rows.Scan(&runID, &kind, &m.Seed, &m.Permutations, &m.CodeVersion, &fp, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		m.RunID = core.RunID(runID)
		m.Kind = run.Kind(kind)
		m.Fingerprint = core.Hash(fp)
		if createdAt.Valid {
			m.CreatedAt = core.NewTimestamp(createdAt.Time)
		}
		manifests = append(manifests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run rows: %w", err)
	}

	return manifests, nil
}
