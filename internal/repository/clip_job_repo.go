package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clippa-dev/clippa/internal/models"
)

// clipJobRepo implements ClipJobRepository using GORM.
type clipJobRepo struct {
	db *gorm.DB
}

// NewClipJobRepository creates a new ClipJobRepository backed by GORM.
func NewClipJobRepository(db *gorm.DB) ClipJobRepository {
	return &clipJobRepo{db: db}
}

var _ ClipJobRepository = (*clipJobRepo)(nil)

// Create persists a new clip job.
func (r *clipJobRepo) Create(ctx context.Context, job *models.ClipJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating clip job: %w", err)
	}
	return nil
}

// GetByID retrieves a clip job by ID. Returns nil if not found.
func (r *clipJobRepo) GetByID(ctx context.Context, id models.ULID) (*models.ClipJob, error) {
	var job models.ClipJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting clip job by ID: %w", err)
	}
	return &job, nil
}

// GetByStatus retrieves clip jobs in the given status, oldest first.
func (r *clipJobRepo) GetByStatus(ctx context.Context, status models.ClipStatus) ([]*models.ClipJob, error) {
	var jobs []*models.ClipJob
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting clip jobs by status: %w", err)
	}
	return jobs, nil
}

// MarkReady transitions a processing job to the ready state.
func (r *clipJobRepo) MarkReady(ctx context.Context, id models.ULID, resultPath, publicURL string) error {
	now := time.Now()
	return r.transition(ctx, id, map[string]any{
		"status":       models.ClipStatusReady,
		"result_path":  resultPath,
		"public_url":   publicURL,
		"error":        "",
		"completed_at": &now,
	})
}

// MarkError transitions a processing job to the error state.
func (r *clipJobRepo) MarkError(ctx context.Context, id models.ULID, msg string) error {
	now := time.Now()
	return r.transition(ctx, id, map[string]any{
		"status":       models.ClipStatusError,
		"error":        msg,
		"completed_at": &now,
	})
}

// transition applies a terminal-state update. The WHERE clause restricts the
// update to jobs still in the processing state, which makes terminal states
// write-once: a zero RowsAffected means the job is gone or already terminal.
func (r *clipJobRepo) transition(ctx context.Context, id models.ULID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.ClipJob{}).
		Where("id = ? AND status = ?", id, models.ClipStatusProcessing).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating clip job status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("clip job %s: %w", id, models.ErrJobGone)
		}
		return fmt.Errorf("clip job %s is %s: %w", id, existing.Status, models.ErrTerminalState)
	}
	return nil
}

// Delete removes a clip job record.
func (r *clipJobRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ClipJob{}).Error; err != nil {
		return fmt.Errorf("deleting clip job: %w", err)
	}
	return nil
}

// DeleteOlderThan removes terminal jobs completed before the cutoff and
// returns the deleted records.
func (r *clipJobRepo) DeleteOlderThan(ctx context.Context, before time.Time) ([]*models.ClipJob, error) {
	var jobs []*models.ClipJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status IN (?, ?) AND completed_at < ?",
				models.ClipStatusReady, models.ClipStatusError, before).
			Find(&jobs).Error; err != nil {
			return fmt.Errorf("finding expired clip jobs: %w", err)
		}
		if len(jobs) == 0 {
			return nil
		}
		ids := make([]models.ULID, 0, len(jobs))
		for _, j := range jobs {
			ids = append(ids, j.ID)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.ClipJob{}).Error; err != nil {
			return fmt.Errorf("deleting expired clip jobs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
