package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateInsertsPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	analysis := Analysis{ID: "a1", ResumeID: "r1", UserID: "u1", CreatedAt: now}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs("a1", "r1", "u1", StatusPending, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkProcessingGuardsTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	// No row moves: the analysis exists but is already terminal.
	mock.ExpectExec("UPDATE analyses").
		WithArgs("a1", StatusProcessing, now, StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{
		"id", "resume_id", "user_id", "status", "result", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).AddRow("a1", "r1", "u1", StatusCompleted, nil, nil, now, now, now, now)
	mock.ExpectQuery("SELECT (.+) FROM analyses WHERE id").
		WithArgs("a1").
		WillReturnRows(rows)

	err = repo.MarkProcessing(context.Background(), "a1", now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	payload, _ := json.Marshal(Result{ExecutiveSummary: "fine", Scores: Scores{Overall: 77}})

	rows := sqlmock.NewRows([]string{
		"id", "resume_id", "user_id", "status", "result", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).AddRow("a1", "r1", "u1", StatusCompleted, payload, nil, now, now, now, now)
	mock.ExpectQuery("SELECT (.+) FROM analyses WHERE id").
		WithArgs("a1").
		WillReturnRows(rows)

	analysis, err := repo.GetByID(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if analysis.Result == nil || analysis.Result.Scores.Overall != 77 {
		t.Fatalf("result = %+v", analysis.Result)
	}
	if analysis.StartedAt == nil || analysis.CompletedAt == nil {
		t.Fatalf("timestamps not decoded")
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT (.+) FROM analyses WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "resume_id", "user_id", "status", "result", "error_message",
			"created_at", "started_at", "completed_at", "updated_at",
		}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoFailKeepsExistingResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	// Nil result passes NULL so COALESCE keeps whatever is stored.
	mock.ExpectExec("UPDATE analyses").
		WithArgs("a1", StatusFailed, "boom", nil, now, StatusPending, StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Fail(context.Background(), "a1", "boom", nil, now); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoReconcileStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	cutoff := time.Now().UTC().Add(-15 * time.Minute)

	mock.ExpectExec("UPDATE analyses").
		WithArgs(StatusFailed, "analysis timed out", sqlmock.AnyArg(), StatusProcessing, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.ReconcileStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ReconcileStale: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
