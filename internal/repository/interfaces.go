// Package repository provides data access interfaces and implementations
// for clippa entities.
package repository

import (
	"context"
	"time"

	"github.com/clippa-dev/clippa/internal/models"
)

// ClipJobRepository defines operations for clip job persistence.
//
// GetByID returns (nil, nil) when no job exists with the given ID.
// MarkReady and MarkError transition a job into a terminal state; once a job
// is terminal any further state transition returns models.ErrTerminalState,
// and transitions on a deleted job return models.ErrJobGone.
type ClipJobRepository interface {
	// Create persists a new clip job.
	Create(ctx context.Context, job *models.ClipJob) error

	// GetByID retrieves a clip job by ID. Returns nil if not found.
	GetByID(ctx context.Context, id models.ULID) (*models.ClipJob, error)

	// GetByStatus retrieves clip jobs in the given status, oldest first.
	GetByStatus(ctx context.Context, status models.ClipStatus) ([]*models.ClipJob, error)

	// MarkReady transitions a processing job to the ready state.
	MarkReady(ctx context.Context, id models.ULID, resultPath, publicURL string) error

	// MarkError transitions a processing job to the error state.
	MarkError(ctx context.Context, id models.ULID, msg string) error

	// Delete removes a clip job record. Deleting a missing job is not an error.
	Delete(ctx context.Context, id models.ULID) error

	// DeleteOlderThan removes terminal jobs whose completion time is before
	// the cutoff, returning the deleted records so callers can remove the
	// associated artifacts.
	DeleteOlderThan(ctx context.Context, before time.Time) ([]*models.ClipJob, error)
}
