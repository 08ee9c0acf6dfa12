package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/clippa-dev/clippa/internal/ffmpeg"
	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/repository"
	"github.com/clippa-dev/clippa/internal/runner"
	"github.com/clippa-dev/clippa/internal/storage"
	"github.com/clippa-dev/clippa/internal/subtitle"
	"github.com/clippa-dev/clippa/internal/ytdlp"
)

// Downloader fetches a video segment. Implemented by ytdlp.Downloader.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.DownloadRequest) (*ytdlp.DownloadResult, error)
}

// Transcoder produces the final clip file. Implemented by ffmpeg.Transcoder.
type Transcoder interface {
	Transcode(ctx context.Context, req ffmpeg.TranscodeRequest) error
}

// Pipeline processes clip jobs end to end and records the terminal state.
type Pipeline struct {
	repo       repository.ClipJobRepository
	downloader Downloader
	transcoder Transcoder
	store      storage.ObjectStore
	workspaces *storage.WorkspaceManager
	baseURL    string
	logger     *slog.Logger
}

// New creates a Pipeline. baseURL, when set, is used to build the public
// download URL stored on completed jobs.
func New(
	repo repository.ClipJobRepository,
	downloader Downloader,
	transcoder Transcoder,
	store storage.ObjectStore,
	workspaces *storage.WorkspaceManager,
	baseURL string,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		repo:       repo,
		downloader: downloader,
		transcoder: transcoder,
		store:      store,
		workspaces: workspaces,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

// DownloadURL returns the download URL for a job. When no base URL is
// configured the path is relative.
func (p *Pipeline) DownloadURL(id models.ULID) string {
	return fmt.Sprintf("%s/api/clip/%s/file", p.baseURL, id)
}

// ArtifactKey returns the object store key for a job's final clip.
func ArtifactKey(id models.ULID) string {
	return id.String() + ".mp4"
}

// Process runs one job through the pipeline and marks it ready or errored.
// The scratch directory is removed regardless of outcome.
func (p *Pipeline) Process(ctx context.Context, job *models.ClipJob) {
	log := p.logger.With(slog.String("job_id", job.ID.String()))
	start := time.Now()

	resultPath, err := p.process(ctx, job)
	if err != nil {
		log.Warn("clip job failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		if markErr := p.repo.MarkError(ctx, job.ID, userMessage(err)); markErr != nil {
			if !errors.Is(markErr, models.ErrTerminalState) && !errors.Is(markErr, models.ErrJobGone) {
				log.Error("recording job failure", slog.String("error", markErr.Error()))
			}
		}
		return
	}

	if err := p.repo.MarkReady(ctx, job.ID, resultPath, p.DownloadURL(job.ID)); err != nil {
		if errors.Is(err, models.ErrTerminalState) || errors.Is(err, models.ErrJobGone) {
			// The job was finalized or cleaned up elsewhere; drop the
			// orphaned artifact.
			if delErr := p.store.Delete(resultPath); delErr != nil {
				log.Warn("removing orphaned artifact", slog.String("error", delErr.Error()))
			}
			return
		}
		log.Error("recording job completion", slog.String("error", err.Error()))
		return
	}

	log.Info("clip job ready",
		slog.String("artifact", resultPath),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func (p *Pipeline) process(ctx context.Context, job *models.ClipJob) (string, error) {
	jobID := job.ID.String()

	workDir, err := p.workspaces.Create(jobID)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := p.workspaces.Remove(jobID); err != nil {
			p.logger.Warn("removing work directory",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}()

	dl, err := p.downloader.Download(ctx, ytdlp.DownloadRequest{
		URL:       job.URL,
		StartTime: job.StartTime,
		EndTime:   job.EndTime,
		FormatID:  job.FormatID,
		Subtitles: job.Subtitles,
		OutputID:  jobID,
		WorkDir:   workDir,
	})
	if err != nil {
		return "", err
	}

	subtitlePath := ""
	if job.Subtitles && dl.SubtitlePath != "" {
		offset, err := job.StartTime.Duration()
		if err != nil {
			return "", err
		}
		if err := subtitle.ShiftFile(dl.SubtitlePath, offset); err != nil {
			return "", err
		}
		subtitlePath = dl.SubtitlePath
	}

	outputPath := filepath.Join(workDir, "final-"+jobID+".mp4")
	if err := p.transcoder.Transcode(ctx, ffmpeg.TranscodeRequest{
		InputPath:    dl.VideoPath,
		OutputPath:   outputPath,
		CropRatio:    job.CropRatio,
		SubtitlePath: subtitlePath,
	}); err != nil {
		return "", err
	}

	key := ArtifactKey(job.ID)
	if err := p.store.Put(ctx, key, outputPath); err != nil {
		return "", err
	}
	return key, nil
}

// userMessage converts pipeline errors into the message stored on the job
// and shown to the caller.
func userMessage(err error) string {
	var timeoutErr *runner.TimeoutError
	if errors.As(err, &timeoutErr) {
		return fmt.Sprintf("processing timed out after %s", timeoutErr.Timeout)
	}

	var dlErr *ytdlp.DownloadError
	if errors.As(err, &dlErr) {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && len(exitErr.StderrTail) > 0 {
			return "download failed: " + lastMeaningfulLine(exitErr.StderrTail)
		}
		return "download failed: " + dlErr.Err.Error()
	}

	var trErr *ffmpeg.TranscodeError
	if errors.As(err, &trErr) {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && len(exitErr.StderrTail) > 0 {
			return "transcode failed: " + lastMeaningfulLine(exitErr.StderrTail)
		}
		return "transcode failed: " + trErr.Err.Error()
	}

	return err.Error()
}

// lastMeaningfulLine picks the last non-blank stderr line, preferring lines
// yt-dlp and ffmpeg mark as errors.
func lastMeaningfulLine(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "ERROR") {
			return lines[i]
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return "unknown error"
}
