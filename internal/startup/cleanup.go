// Package startup provides utilities for application startup tasks.
package startup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/repository"
	"github.com/clippa-dev/clippa/internal/storage"
)

// CleanupOrphanedWorkDirs removes scratch directories left behind by a
// previous run. A directory is orphaned when its job no longer exists or has
// already reached a terminal state; directories for jobs still marked
// processing are removed too, since RecoverStaleJobs fails those jobs before
// this runs.
//
// Returns the number of directories removed and any error encountered.
func CleanupOrphanedWorkDirs(ctx context.Context, logger *slog.Logger, workspaces *storage.WorkspaceManager, repo repository.ClipJobRepository) (int, error) {
	ids, err := workspaces.ListJobDirs()
	if err != nil {
		logger.Error("failed to list work directories",
			"error", err,
		)
		return 0, err
	}

	var removed int
	for _, id := range ids {
		jobID, err := models.ParseULID(id)
		if err == nil {
			job, err := repo.GetByID(ctx, jobID)
			if err != nil {
				logger.Warn("failed to look up job for work directory",
					"job_id", id,
					"error", err,
				)
				continue
			}
			if job != nil && !job.IsTerminal() {
				logger.Debug("preserving work directory for active job",
					"job_id", id,
				)
				continue
			}
		}

		if err := workspaces.Remove(id); err != nil {
			logger.Warn("failed to remove orphaned work directory",
				"job_id", id,
				"error", err,
			)
			continue
		}

		logger.Info("removed orphaned work directory",
			"job_id", id,
		)
		removed++
	}

	return removed, nil
}

// RecoverStaleJobs fails any jobs stuck in "processing" status. This handles
// the case where the server crashed or was restarted while the pipeline was
// running. Without this recovery, jobs would stay in "processing" forever
// since the in-memory queue is lost on restart.
//
// Returns the number of jobs recovered and any error encountered.
func RecoverStaleJobs(ctx context.Context, logger *slog.Logger, repo repository.ClipJobRepository) (int, error) {
	jobs, err := repo.GetByStatus(ctx, models.ClipStatusProcessing)
	if err != nil {
		logger.Error("failed to get jobs for stale status recovery",
			"error", err,
		)
		return 0, err
	}

	var recovered int
	for _, job := range jobs {
		logger.Warn("recovering stale clip job",
			"job_id", job.ID.String(),
			"url", job.URL,
		)

		if err := repo.MarkError(ctx, job.ID, "interrupted by server restart"); err != nil {
			if errors.Is(err, models.ErrTerminalState) || errors.Is(err, models.ErrJobGone) {
				continue
			}
			logger.Error("failed to recover stale clip job",
				"job_id", job.ID.String(),
				"error", err,
			)
			continue
		}

		recovered++
	}

	return recovered, nil
}
