package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippa-dev/clippa/internal/ffmpeg"
	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/pipeline"
	"github.com/clippa-dev/clippa/internal/repository"
	"github.com/clippa-dev/clippa/internal/storage"
	"github.com/clippa-dev/clippa/internal/ytdlp"
)

type stubDownloader struct {
	mu    sync.Mutex
	calls int
}

func (s *stubDownloader) Download(ctx context.Context, req ytdlp.DownloadRequest) (*ytdlp.DownloadResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	video := filepath.Join(req.WorkDir, req.OutputID+".mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	return &ytdlp.DownloadResult{VideoPath: video}, nil
}

func (s *stubDownloader) ListFormats(ctx context.Context, url string) ([]ytdlp.Format, error) {
	return []ytdlp.Format{{ID: "22", Label: "720p (mp4)", Height: 720, HasAudio: true}}, nil
}

type stubTranscoder struct{}

func (stubTranscoder) Transcode(ctx context.Context, req ffmpeg.TranscodeRequest) error {
	return os.WriteFile(req.OutputPath, []byte("final"), 0o644)
}

type serviceFixture struct {
	svc   *ClipService
	repo  repository.ClipJobRepository
	store *storage.LocalStore
	pool  *pipeline.Pool
}

func newServiceFixture(t *testing.T, workers, queueSize int, retention time.Duration) *serviceFixture {
	t.Helper()

	repo := repository.NewMemoryClipJobRepository()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	workspaces, err := storage.NewWorkspaceManager(t.TempDir(), nil)
	require.NoError(t, err)

	dl := &stubDownloader{}
	pipe := pipeline.New(repo, dl, stubTranscoder{}, store, workspaces, "http://localhost:8080", nil)
	pool := pipeline.NewPool(workers, queueSize, nil)

	svc := NewClipService(repo, pipe, pool, store, dl, retention, nil)
	return &serviceFixture{svc: svc, repo: repo, store: store, pool: pool}
}

func validRequest() models.ClipRequest {
	return models.ClipRequest{
		URL:       "https://youtu.be/abc",
		StartTime: "00:00:10",
		EndTime:   "00:00:20",
	}
}

func waitForTerminal(t *testing.T, repo repository.ClipJobRepository, id models.ULID) *models.ClipJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, job)
		if job.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestClipService_CreateClip(t *testing.T) {
	f := newServiceFixture(t, 1, 4, 0)
	f.pool.Start(context.Background())
	defer f.pool.Stop()

	job, err := f.svc.CreateClip(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.ClipStatusProcessing, job.Status)
	assert.Equal(t, models.CropOriginal, job.CropRatio)

	done := waitForTerminal(t, f.repo, job.ID)
	assert.Equal(t, models.ClipStatusReady, done.Status)
	assert.NotEmpty(t, done.ResultPath)
}

func TestClipService_CreateClipValidation(t *testing.T) {
	f := newServiceFixture(t, 1, 4, 0)

	cases := []struct {
		name string
		mod  func(*models.ClipRequest)
		want error
	}{
		{"missing url", func(r *models.ClipRequest) { r.URL = "" }, models.ErrURLRequired},
		{"missing start", func(r *models.ClipRequest) { r.StartTime = "" }, models.ErrStartTimeRequired},
		{"missing end", func(r *models.ClipRequest) { r.EndTime = "" }, models.ErrEndTimeRequired},
		{"bad timecode", func(r *models.ClipRequest) { r.StartTime = "1:2:3x" }, models.ErrInvalidTimecode},
		{"inverted range", func(r *models.ClipRequest) { r.StartTime, r.EndTime = r.EndTime, r.StartTime }, models.ErrInvalidTimeRange},
		{"bad crop", func(r *models.ClipRequest) { r.CropRatio = "panoramic" }, models.ErrInvalidCropRatio},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mod(&req)
			_, err := f.svc.CreateClip(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClipService_CreateClipQueueFull(t *testing.T) {
	// One slot queue, pool never started: the second submit must be rejected
	// and leave no job record behind.
	f := newServiceFixture(t, 1, 1, 0)

	first, err := f.svc.CreateClip(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = f.svc.CreateClip(context.Background(), validRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrQueueFull)

	jobs, err := f.repo.GetByStatus(context.Background(), models.ClipStatusProcessing)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, first.ID, jobs[0].ID)
}

func TestClipService_Cleanup(t *testing.T) {
	f := newServiceFixture(t, 1, 4, 0)
	f.pool.Start(context.Background())
	defer f.pool.Stop()

	job, err := f.svc.CreateClip(context.Background(), validRequest())
	require.NoError(t, err)
	done := waitForTerminal(t, f.repo, job.ID)

	exists, err := f.store.Exists(done.ResultPath)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, f.svc.Cleanup(context.Background(), job.ID))

	exists, err = f.store.Exists(done.ResultPath)
	require.NoError(t, err)
	assert.False(t, exists)

	found, err := f.repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// Cleanup is idempotent.
	require.NoError(t, f.svc.Cleanup(context.Background(), job.ID))
}

func TestClipService_SweepExpired(t *testing.T) {
	f := newServiceFixture(t, 1, 4, time.Hour)
	f.pool.Start(context.Background())
	defer f.pool.Stop()

	job, err := f.svc.CreateClip(context.Background(), validRequest())
	require.NoError(t, err)
	done := waitForTerminal(t, f.repo, job.ID)

	// Nothing is old enough yet.
	removed, err := f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Shrink retention so the finished job is already expired.
	f.svc.retention = time.Nanosecond
	time.Sleep(time.Millisecond)

	removed, err = f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	exists, err := f.store.Exists(done.ResultPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClipService_ListFormats(t *testing.T) {
	f := newServiceFixture(t, 1, 4, 0)

	formats, err := f.svc.ListFormats(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	require.Len(t, formats, 1)
	assert.Equal(t, "22", formats[0].ID)

	_, err = f.svc.ListFormats(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrURLRequired)
}

func TestClipService_GetJob(t *testing.T) {
	f := newServiceFixture(t, 1, 4, 0)

	job, err := f.svc.GetJob(context.Background(), models.NewULID())
	require.NoError(t, err)
	assert.Nil(t, job)
}
