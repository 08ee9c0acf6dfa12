package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clippa-dev/clippa/internal/models"
)

// memoryClipJobRepo implements ClipJobRepository with an in-memory map.
// Used for the "memory" database driver and in tests that don't need a
// real database.
type memoryClipJobRepo struct {
	mu   sync.RWMutex
	jobs map[models.ULID]*models.ClipJob
}

// NewMemoryClipJobRepository creates an in-memory ClipJobRepository.
func NewMemoryClipJobRepository() ClipJobRepository {
	return &memoryClipJobRepo{jobs: make(map[models.ULID]*models.ClipJob)}
}

var _ ClipJobRepository = (*memoryClipJobRepo)(nil)

func (r *memoryClipJobRepo) Create(ctx context.Context, job *models.ClipJob) error {
	if err := job.ClipRequest.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID.IsZero() {
		job.ID = models.NewULID()
	}
	if job.Status == "" {
		job.Status = models.ClipStatusProcessing
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memoryClipJobRepo) GetByID(ctx context.Context, id models.ULID) (*models.ClipJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (r *memoryClipJobRepo) GetByStatus(ctx context.Context, status models.ClipStatus) ([]*models.ClipJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var jobs []*models.ClipJob
	for _, job := range r.jobs {
		if job.Status == status {
			cp := *job
			jobs = append(jobs, &cp)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (r *memoryClipJobRepo) MarkReady(ctx context.Context, id models.ULID, resultPath, publicURL string) error {
	return r.transition(id, func(job *models.ClipJob) {
		job.MarkReady(resultPath, publicURL)
	})
}

func (r *memoryClipJobRepo) MarkError(ctx context.Context, id models.ULID, msg string) error {
	return r.transition(id, func(job *models.ClipJob) {
		job.MarkError(msg)
	})
}

func (r *memoryClipJobRepo) transition(id models.ULID, apply func(*models.ClipJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("clip job %s: %w", id, models.ErrJobGone)
	}
	if job.IsTerminal() {
		return fmt.Errorf("clip job %s is %s: %w", id, job.Status, models.ErrTerminalState)
	}
	apply(job)
	job.UpdatedAt = time.Now()
	return nil
}

func (r *memoryClipJobRepo) Delete(ctx context.Context, id models.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, id)
	return nil
}

func (r *memoryClipJobRepo) DeleteOlderThan(ctx context.Context, before time.Time) ([]*models.ClipJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []*models.ClipJob
	for id, job := range r.jobs {
		if job.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(before) {
			cp := *job
			deleted = append(deleted, &cp)
			delete(r.jobs, id)
		}
	}
	return deleted, nil
}
