package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, resume_id, user_id, status, result, error_message, created_at, started_at, completed_at, updated_at`

// Create inserts a new pending analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (id, resume_id, user_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.ResumeID,
		analysis.UserID,
		StatusPending,
		analysis.CreatedAt,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1 LIMIT 1`
	analysis, err := scanAnalysisRow(r.DB.QueryRowContext(ctx, query, analysisID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return analysis, nil
}

// MarkProcessing moves a pending analysis to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $2, started_at = $3, updated_at = $3
WHERE id = $1 AND status = $4`
	return r.guardedUpdate(ctx, analysisID, query, StatusProcessing, startedAt, StatusPending)
}

// Complete stores the result and moves a processing analysis to completed.
func (r *PGRepo) Complete(ctx context.Context, analysisID string, result Result, completedAt time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	const query = `
UPDATE analyses
SET status = $2, result = $3, completed_at = $4, updated_at = $4
WHERE id = $1 AND status = $5`
	return r.guardedUpdate(ctx, analysisID, query, StatusCompleted, payload, completedAt, StatusProcessing)
}

// Fail moves a non-terminal analysis to failed.
func (r *PGRepo) Fail(ctx context.Context, analysisID, message string, result *Result, completedAt time.Time) error {
	var payload any
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		payload = b
	}
	const query = `
UPDATE analyses
SET status = $2, error_message = $3, result = COALESCE($4, result), completed_at = $5, updated_at = $5
WHERE id = $1 AND status IN ($6, $7)`
	return r.guardedUpdate(ctx, analysisID, query, StatusFailed, message, payload, completedAt, StatusPending, StatusProcessing)
}

func (r *PGRepo) guardedUpdate(ctx context.Context, analysisID, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, append([]any{analysisID}, args...)...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := r.GetByID(ctx, analysisID); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// LatestByResume returns the newest analysis for a resume, optionally
// restricted to completed runs.
func (r *PGRepo) LatestByResume(ctx context.Context, resumeID string, completedOnly bool) (Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE resume_id = $1`
	args := []any{resumeID}
	if completedOnly {
		query += ` AND status = $2`
		args = append(args, StatusCompleted)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	analysis, err := scanAnalysisRow(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return analysis, nil
}

// ListByResume lists analyses for a resume, newest first.
func (r *PGRepo) ListByResume(ctx context.Context, resumeID string) ([]Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE resume_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, resumeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		analysis, err := scanAnalysisRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, analysis)
	}
	return out, rows.Err()
}

// ReconcileStale fails processing rows whose started_at predates the
// cutoff. Covers runs orphaned by a crash mid-processing.
func (r *PGRepo) ReconcileStale(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
UPDATE analyses
SET status = $1, error_message = $2, completed_at = $3, updated_at = $3
WHERE status = $4 AND started_at IS NOT NULL AND started_at < $5`
	res, err := r.DB.ExecContext(ctx, query,
		StatusFailed,
		"analysis timed out",
		time.Now().UTC(),
		StatusProcessing,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysisRow(row rowScanner) (Analysis, error) {
	var analysis Analysis
	var result []byte
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&analysis.ID,
		&analysis.ResumeID,
		&analysis.UserID,
		&analysis.Status,
		&result,
		&errorMessage,
		&analysis.CreatedAt,
		&startedAt,
		&completedAt,
		&analysis.UpdatedAt,
	); err != nil {
		return Analysis{}, err
	}
	if len(result) > 0 {
		var parsed Result
		if err := json.Unmarshal(result, &parsed); err != nil {
			return Analysis{}, fmt.Errorf("decode result: %w", err)
		}
		analysis.Result = &parsed
	}
	if errorMessage.Valid {
		analysis.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		analysis.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		analysis.CompletedAt = &t
	}
	return analysis, nil
}

var _ Repo = (*PGRepo)(nil)
