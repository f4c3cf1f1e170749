package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"socassay/domain/core"
	"socassay/domain/run"
	apperrors "socassay/internal/errors"
)

func newMockRepo(t *testing.T) (*runRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &runRepository{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestSaveRun(t *testing.T) {
	repo, mock := newMockRepo(t)

	manifest := run.NewManifest(run.KindSimulation, 42, 5000)
	manifest.Fingerprint = core.ComputeFingerprint("simulation", int64(42))

	mock.ExpectExec("INSERT INTO analysis_runs").
		WithArgs(
			string(manifest.RunID), "simulation", int64(42), 5000,
			manifest.CodeVersion, string(manifest.Fingerprint),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	payload := map[string]string{"status": "ok"}
	if err := repo.SaveRun(context.Background(), manifest, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetRun(t *testing.T) {
	repo, mock := newMockRepo(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "kind", "seed", "permutations", "code_version", "fingerprint", "payload", "created_at",
	}).AddRow("run-1", "reanalysis", int64(7), 1000, "v0.1.0", "abc123", []byte(`{"plots":24}`), created)

	mock.ExpectQuery("SELECT (.+) FROM analysis_runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(rows)

	stored, err := repo.GetRun(context.Background(), core.RunID("run-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Manifest.RunID != "run-1" || stored.Manifest.Kind != run.KindReanalysis {
		t.Errorf("unexpected manifest: %+v", stored.Manifest)
	}
	if stored.Manifest.Seed != 7 || stored.Manifest.Permutations != 1000 {
		t.Errorf("unexpected manifest values: %+v", stored.Manifest)
	}
	if string(stored.Payload) != `{"plots":24}` {
		t.Errorf("unexpected payload: %s", stored.Payload)
	}
	if !stored.Manifest.CreatedAt.Time().Equal(created) {
		t.Errorf("unexpected created_at: %v", stored.Manifest.CreatedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM analysis_runs WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "kind", "seed", "permutations", "code_version", "fingerprint", "payload", "created_at",
		}))

	_, err := repo.GetRun(context.Background(), core.RunID("missing"))
	if err == nil {
		t.Fatal("expected error for missing run")
	}
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Errorf("expected NOT_FOUND code, got %s", apperrors.GetCode(err))
	}
}

func TestListRuns(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "kind", "seed", "permutations", "code_version", "fingerprint", "created_at",
	}).
		AddRow("run-2", "simulation", int64(42), 5000, "v0.1.0", "def", time.Now()).
		AddRow("run-1", "reanalysis", int64(7), 1000, "v0.1.0", "abc", time.Now().Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM analysis_runs").
		WithArgs(10).
		WillReturnRows(rows)

	manifests, err := repo.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("expected 2 manifests, got %d", len(manifests))
	}
	if manifests[0].RunID != "run-2" || manifests[1].RunID != "run-1" {
		t.Errorf("unexpected order: %v, %v", manifests[0].RunID, manifests[1].RunID)
	}
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analysis_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := EnsureSchema(context.Background(), repo.db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
