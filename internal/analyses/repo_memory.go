package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used for local development and tests.
// It enforces the same status transitions as the Postgres repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]Analysis
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]Analysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis.Status = StatusPending
	analysis.UpdatedAt = analysis.CreatedAt
	r.items[analysis.ID] = analysis
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.items[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.items[analysisID]
	if !ok {
		return ErrNotFound
	}
	if analysis.Status != StatusPending {
		return ErrInvalidTransition
	}
	analysis.Status = StatusProcessing
	analysis.StartedAt = &startedAt
	analysis.UpdatedAt = startedAt
	r.items[analysisID] = analysis
	return nil
}

func (r *MemoryRepo) Complete(ctx context.Context, analysisID string, result Result, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.items[analysisID]
	if !ok {
		return ErrNotFound
	}
	if analysis.Status != StatusProcessing {
		return ErrInvalidTransition
	}
	analysis.Status = StatusCompleted
	analysis.Result = &result
	analysis.CompletedAt = &completedAt
	analysis.UpdatedAt = completedAt
	r.items[analysisID] = analysis
	return nil
}

func (r *MemoryRepo) Fail(ctx context.Context, analysisID, message string, result *Result, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.items[analysisID]
	if !ok {
		return ErrNotFound
	}
	if analysis.Status != StatusPending && analysis.Status != StatusProcessing {
		return ErrInvalidTransition
	}
	analysis.Status = StatusFailed
	analysis.ErrorMessage = message
	if result != nil {
		analysis.Result = result
	}
	analysis.CompletedAt = &completedAt
	analysis.UpdatedAt = completedAt
	r.items[analysisID] = analysis
	return nil
}

func (r *MemoryRepo) LatestByResume(ctx context.Context, resumeID string, completedOnly bool) (Analysis, error) {
	list, err := r.ListByResume(ctx, resumeID)
	if err != nil {
		return Analysis{}, err
	}
	for _, analysis := range list {
		if completedOnly && analysis.Status != StatusCompleted {
			continue
		}
		return analysis, nil
	}
	return Analysis{}, ErrNotFound
}

func (r *MemoryRepo) ListByResume(ctx context.Context, resumeID string) ([]Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Analysis
	for _, analysis := range r.items {
		if analysis.ResumeID == resumeID {
			out = append(out, analysis)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) ReconcileStale(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	count := 0
	for id, analysis := range r.items {
		if analysis.Status != StatusProcessing || analysis.StartedAt == nil || !analysis.StartedAt.Before(cutoff) {
			continue
		}
		analysis.Status = StatusFailed
		analysis.ErrorMessage = "analysis timed out"
		analysis.CompletedAt = &now
		analysis.UpdatedAt = now
		r.items[id] = analysis
		count++
	}
	return count, nil
}

var _ Repo = (*MemoryRepo)(nil)
