// Package service provides high-level operations over the clip pipeline,
// repositories, and storage.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/pipeline"
	"github.com/clippa-dev/clippa/internal/repository"
	"github.com/clippa-dev/clippa/internal/storage"
	"github.com/clippa-dev/clippa/internal/ytdlp"
)

// FormatLister probes available source formats. Implemented by
// ytdlp.Downloader.
type FormatLister interface {
	ListFormats(ctx context.Context, url string) ([]ytdlp.Format, error)
}

// ClipService drives the clip job lifecycle: creation, submission to the
// worker pool, lookup, cleanup, and retention sweeps.
type ClipService struct {
	repo      repository.ClipJobRepository
	pipe      *pipeline.Pipeline
	pool      *pipeline.Pool
	store     storage.ObjectStore
	formats   FormatLister
	retention time.Duration
	logger    *slog.Logger

	cron *cron.Cron
}

// NewClipService creates a ClipService.
func NewClipService(
	repo repository.ClipJobRepository,
	pipe *pipeline.Pipeline,
	pool *pipeline.Pool,
	store storage.ObjectStore,
	formats FormatLister,
	retention time.Duration,
	logger *slog.Logger,
) *ClipService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClipService{
		repo:      repo,
		pipe:      pipe,
		pool:      pool,
		store:     store,
		formats:   formats,
		retention: retention,
		logger:    logger,
	}
}

// CreateClip validates the request, records the job, and queues it for
// processing. When the queue is full the job record is rolled back and
// pipeline.ErrQueueFull is returned so the caller can signal backpressure.
func (s *ClipService) CreateClip(ctx context.Context, req models.ClipRequest) (*models.ClipJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job := &models.ClipJob{ClipRequest: req}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	submitErr := s.pool.Submit(func(workerCtx context.Context) {
		s.pipe.Process(workerCtx, job)
	})
	if submitErr != nil {
		// Roll the record back so a rejected request leaves no trace.
		if delErr := s.repo.Delete(ctx, job.ID); delErr != nil {
			s.logger.Error("rolling back rejected job",
				slog.String("job_id", job.ID.String()),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, submitErr
	}

	s.logger.Info("clip job queued",
		slog.String("job_id", job.ID.String()),
		slog.String("url", job.URL),
		slog.String("section", fmt.Sprintf("%s-%s", job.StartTime, job.EndTime)),
	)
	return job, nil
}

// GetJob returns a job by ID, or nil when it doesn't exist.
func (s *ClipService) GetJob(ctx context.Context, id models.ULID) (*models.ClipJob, error) {
	return s.repo.GetByID(ctx, id)
}

// OpenArtifact opens the stored clip file for a ready job. The caller
// closes the returned file.
func (s *ClipService) OpenArtifact(job *models.ClipJob) (io.ReadSeekCloser, os.FileInfo, error) {
	if job.ResultPath == "" {
		return nil, nil, fmt.Errorf("job %s has no artifact", job.ID)
	}
	return s.store.Open(job.ResultPath)
}

// Cleanup removes a job's artifact and record. It is idempotent: cleaning
// up a job that is already gone succeeds.
func (s *ClipService) Cleanup(ctx context.Context, id models.ULID) error {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	if job.ResultPath != "" {
		if err := s.store.Delete(job.ResultPath); err != nil {
			return fmt.Errorf("deleting artifact for %s: %w", id, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("clip job cleaned up", slog.String("job_id", id.String()))
	return nil
}

// ListFormats returns the selectable formats for a source URL.
func (s *ClipService) ListFormats(ctx context.Context, url string) ([]ytdlp.Format, error) {
	if url == "" {
		return nil, models.ErrURLRequired
	}
	return s.formats.ListFormats(ctx, url)
}

// SweepExpired deletes terminal jobs older than the retention window along
// with their artifacts. Returns the number of jobs removed.
func (s *ClipService) SweepExpired(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.retention)
	expired, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired jobs: %w", err)
	}

	for _, job := range expired {
		if job.ResultPath == "" {
			continue
		}
		if err := s.store.Delete(job.ResultPath); err != nil {
			s.logger.Warn("deleting expired artifact",
				slog.String("job_id", job.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if len(expired) > 0 {
		s.logger.Info("retention sweep removed expired clips", slog.Int("count", len(expired)))
	}
	return len(expired), nil
}

// StartSweeper schedules the retention sweep to run hourly. Call
// StopSweeper on shutdown.
func (s *ClipService) StartSweeper(ctx context.Context) error {
	if s.retention <= 0 {
		s.logger.Info("retention sweeper disabled")
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc("@hourly", func() {
		if _, err := s.SweepExpired(ctx); err != nil {
			s.logger.Error("retention sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling retention sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("retention sweeper started", slog.Duration("retention", s.retention))
	return nil
}

// StopSweeper stops the retention sweep schedule.
func (s *ClipService) StopSweeper() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}
