package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippa-dev/clippa/internal/ffmpeg"
	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/pipeline"
	"github.com/clippa-dev/clippa/internal/repository"
	"github.com/clippa-dev/clippa/internal/service"
	"github.com/clippa-dev/clippa/internal/storage"
	"github.com/clippa-dev/clippa/internal/ytdlp"
)

type fakeDownloader struct {
	formats    []ytdlp.Format
	formatsErr error
}

func (f *fakeDownloader) Download(ctx context.Context, req ytdlp.DownloadRequest) (*ytdlp.DownloadResult, error) {
	video := filepath.Join(req.WorkDir, req.OutputID+".mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	return &ytdlp.DownloadResult{VideoPath: video}, nil
}

func (f *fakeDownloader) ListFormats(ctx context.Context, url string) ([]ytdlp.Format, error) {
	return f.formats, f.formatsErr
}

type fakeTranscoder struct{}

func (fakeTranscoder) Transcode(ctx context.Context, req ffmpeg.TranscodeRequest) error {
	return os.WriteFile(req.OutputPath, []byte("final"), 0o644)
}

type handlerFixture struct {
	handler *ClipHandler
	svc     *service.ClipService
	repo    repository.ClipJobRepository
	store   *storage.LocalStore
	pool    *pipeline.Pool
	dl      *fakeDownloader
}

func newHandlerFixture(t *testing.T, queueSize int) *handlerFixture {
	t.Helper()

	repo := repository.NewMemoryClipJobRepository()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	workspaces, err := storage.NewWorkspaceManager(t.TempDir(), nil)
	require.NoError(t, err)

	dl := &fakeDownloader{}
	pipe := pipeline.New(repo, dl, fakeTranscoder{}, store, workspaces, "http://localhost:8080", nil)
	pool := pipeline.NewPool(1, queueSize, nil)

	svc := service.NewClipService(repo, pipe, pool, store, dl, 0, nil)
	return &handlerFixture{
		handler: NewClipHandler(svc),
		svc:     svc,
		repo:    repo,
		store:   store,
		pool:    pool,
		dl:      dl,
	}
}

func validCreateInput() *CreateClipInput {
	input := &CreateClipInput{}
	input.Body.URL = "https://youtu.be/abc"
	input.Body.StartTime = "00:00:10"
	input.Body.EndTime = "00:00:20"
	return input
}

// readyJob seeds a ready job with a stored artifact.
func readyJob(t *testing.T, f *handlerFixture, content string) *models.ClipJob {
	t.Helper()

	job := &models.ClipJob{ClipRequest: models.ClipRequest{
		URL:       "https://youtu.be/abc",
		StartTime: "00:00:10",
		EndTime:   "00:00:20",
		CropRatio: models.CropOriginal,
	}}
	require.NoError(t, f.repo.Create(context.Background(), job))

	src := filepath.Join(t.TempDir(), "artifact.mp4")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))
	key := job.ID.String() + ".mp4"
	require.NoError(t, f.store.Put(context.Background(), key, src))
	require.NoError(t, f.repo.MarkReady(context.Background(), job.ID, key,
		"http://localhost:8080/api/clip/"+job.ID.String()+"/file"))

	fresh, err := f.repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	return fresh
}

func humaStatus(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestClipHandler_Create(t *testing.T) {
	f := newHandlerFixture(t, 4)
	f.pool.Start(context.Background())
	defer f.pool.Stop()

	out, err := f.handler.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.NotEmpty(t, out.Body.ID)
	assert.Equal(t, models.ClipStatusProcessing, out.Body.Status)
	assert.Equal(t, models.CropOriginal, out.Body.CropRatio)
	assert.Empty(t, out.Body.DownloadURL)
}

func TestClipHandler_Create_Validation(t *testing.T) {
	f := newHandlerFixture(t, 4)

	input := validCreateInput()
	input.Body.EndTime = "00:00:05"

	_, err := f.handler.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, humaStatus(t, err))
}

func TestClipHandler_Create_QueueFull(t *testing.T) {
	// Pool is never started, so the single queue slot fills immediately.
	f := newHandlerFixture(t, 1)

	_, err := f.handler.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	_, err = f.handler.Create(context.Background(), validCreateInput())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, humaStatus(t, err))
}

func TestClipHandler_GetByID(t *testing.T) {
	f := newHandlerFixture(t, 4)

	t.Run("invalid id", func(t *testing.T) {
		_, err := f.handler.GetByID(context.Background(), &GetClipInput{ID: "not-a-ulid"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, humaStatus(t, err))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.handler.GetByID(context.Background(), &GetClipInput{ID: models.NewULID().String()})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, humaStatus(t, err))
	})

	t.Run("ready job carries download URL", func(t *testing.T) {
		job := readyJob(t, f, "final bytes")

		out, err := f.handler.GetByID(context.Background(), &GetClipInput{ID: job.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, models.ClipStatusReady, out.Body.Status)
		assert.Equal(t, job.PublicURL, out.Body.DownloadURL)
		require.NotNil(t, out.Body.CompletedAt)
		assert.WithinDuration(t, time.Now(), *out.Body.CompletedAt, time.Minute)
	})
}

func TestClipHandler_Cleanup(t *testing.T) {
	f := newHandlerFixture(t, 4)
	job := readyJob(t, f, "final bytes")

	out, err := f.handler.Cleanup(context.Background(), &CleanupClipInput{ID: job.ID.String()})
	require.NoError(t, err)
	assert.True(t, out.Body.Success)

	gone, err := f.repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Cleaning up again is a no-op, not an error.
	out, err = f.handler.Cleanup(context.Background(), &CleanupClipInput{ID: job.ID.String()})
	require.NoError(t, err)
	assert.True(t, out.Body.Success)
}

func TestClipHandler_ServeFile(t *testing.T) {
	f := newHandlerFixture(t, 4)

	router := chi.NewRouter()
	f.handler.RegisterFileRoute(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	job := readyJob(t, f, "0123456789")

	t.Run("full download", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/clip/" + job.ID.String() + "/file")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "clip-"+job.ID.String()+".mp4")

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(body))
	})

	t.Run("range request", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/clip/"+job.ID.String()+"/file", nil)
		require.NoError(t, err)
		req.Header.Set("Range", "bytes=2-5")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "2345", string(body))
	})

	t.Run("small artifact served inline under the limit", func(t *testing.T) {
		inlineHandler := NewClipHandler(f.svc).WithMaxInlineSize(1024)
		inlineRouter := chi.NewRouter()
		inlineHandler.RegisterFileRoute(inlineRouter)
		inlineSrv := httptest.NewServer(inlineRouter)
		defer inlineSrv.Close()

		resp, err := http.Get(inlineSrv.URL + "/api/clip/" + job.ID.String() + "/file")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "inline")
	})

	t.Run("still processing", func(t *testing.T) {
		pending := &models.ClipJob{ClipRequest: models.ClipRequest{
			URL:       "https://youtu.be/def",
			StartTime: "00:00:00",
			EndTime:   "00:00:05",
			CropRatio: models.CropOriginal,
		}}
		require.NoError(t, f.repo.Create(context.Background(), pending))

		resp, err := http.Get(srv.URL + "/api/clip/" + pending.ID.String() + "/file")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/clip/nope/file")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/clip/%s/file", srv.URL, models.NewULID()))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
