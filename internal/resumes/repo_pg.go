package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. Sections are stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new resume.
func (r *PGRepo) Create(ctx context.Context, resume Resume) error {
	const query = `
INSERT INTO resumes (id, user_id, file_name, file_type, size_bytes, storage_key, profile_summary, sections, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	sections, err := marshalSections(resume.Sections)
	if err != nil {
		return err
	}
	var summary sql.NullString
	if resume.ProfileSummary != "" {
		summary = sql.NullString{String: resume.ProfileSummary, Valid: true}
	}
	_, err = r.DB.ExecContext(ctx, query,
		resume.ID,
		resume.UserID,
		resume.FileName,
		resume.FileType,
		resume.SizeBytes,
		resume.StorageKey,
		summary,
		sections,
		resume.CreatedAt,
	)
	return err
}

// GetByID returns a resume by ID.
func (r *PGRepo) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	const query = `
SELECT id, user_id, file_name, file_type, size_bytes, storage_key, profile_summary, sections, created_at
FROM resumes
WHERE id = $1
LIMIT 1`
	return scanResume(r.DB.QueryRowContext(ctx, query, resumeID))
}

// ListByUser lists resumes ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, file_name, file_type, size_bytes, storage_key, profile_summary, sections, created_at
FROM resumes
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resume
	for rows.Next() {
		resume, err := scanResumeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resume)
	}
	return out, rows.Err()
}

// Delete removes a resume. Analyses cascade at the database level.
func (r *PGRepo) Delete(ctx context.Context, resumeID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1`, resumeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row *sql.Row) (Resume, error) {
	resume, err := scanResumeRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return resume, nil
}

func scanResumeRow(row rowScanner) (Resume, error) {
	var resume Resume
	var summary sql.NullString
	var sections []byte
	if err := row.Scan(
		&resume.ID,
		&resume.UserID,
		&resume.FileName,
		&resume.FileType,
		&resume.SizeBytes,
		&resume.StorageKey,
		&summary,
		&sections,
		&resume.CreatedAt,
	); err != nil {
		return Resume{}, err
	}
	if summary.Valid {
		resume.ProfileSummary = summary.String
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &resume.Sections); err != nil {
			return Resume{}, fmt.Errorf("decode sections: %w", err)
		}
	}
	return resume, nil
}

func marshalSections(sections []Section) ([]byte, error) {
	if len(sections) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("encode sections: %w", err)
	}
	return b, nil
}

var _ Repo = (*PGRepo)(nil)
