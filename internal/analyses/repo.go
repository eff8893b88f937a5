package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analyses. Status updates are
// guarded transitions: MarkProcessing only moves pending rows, Complete
// only moves processing rows, and Fail moves any non-terminal row. Fail
// accepts an optional result so runs rejected after normalization keep
// what the model returned.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error
	Complete(ctx context.Context, analysisID string, result Result, completedAt time.Time) error
	Fail(ctx context.Context, analysisID, message string, result *Result, completedAt time.Time) error
	LatestByResume(ctx context.Context, resumeID string, completedOnly bool) (Analysis, error)
	ListByResume(ctx context.Context, resumeID string) ([]Analysis, error)
	ReconcileStale(ctx context.Context, cutoff time.Time) (int, error)
}
