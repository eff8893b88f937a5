package resumes

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo used for local development and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]Resume
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]Resume)}
}

func (r *MemoryRepo) Create(ctx context.Context, resume Resume) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[resume.ID] = resume
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resume, ok := r.items[resumeID]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return resume, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Resume
	for _, resume := range r.items {
		if resume.UserID == userID {
			out = append(out, resume)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, resumeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[resumeID]; !ok {
		return ErrNotFound
	}
	delete(r.items, resumeID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
