package resumes

import (
	"context"
	"errors"
)

// ErrNotFound indicates the resume does not exist.
var ErrNotFound = errors.New("resume not found")

// Repo defines persistence operations for resumes.
type Repo interface {
	Create(ctx context.Context, resume Resume) error
	GetByID(ctx context.Context, resumeID string) (Resume, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error)
	Delete(ctx context.Context, resumeID string) error
}
