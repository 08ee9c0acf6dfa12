package startup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/repository"
	"github.com/clippa-dev/clippa/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newJob(t *testing.T, repo repository.ClipJobRepository) *models.ClipJob {
	t.Helper()
	job := &models.ClipJob{ClipRequest: models.ClipRequest{
		URL:       "https://youtu.be/abc",
		StartTime: "00:00:10",
		EndTime:   "00:00:20",
		CropRatio: models.CropOriginal,
	}}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestCleanupOrphanedWorkDirs(t *testing.T) {
	t.Run("removes directories for missing and terminal jobs", func(t *testing.T) {
		repo := repository.NewMemoryClipJobRepository()
		workspaces, err := storage.NewWorkspaceManager(t.TempDir(), newTestLogger())
		require.NoError(t, err)

		// Directory with no job behind it.
		orphanID := models.NewULID().String()
		_, err = workspaces.Create(orphanID)
		require.NoError(t, err)

		// Directory for an errored job.
		failed := newJob(t, repo)
		require.NoError(t, repo.MarkError(context.Background(), failed.ID, "boom"))
		_, err = workspaces.Create(failed.ID.String())
		require.NoError(t, err)

		// Directory not named after a ULID at all.
		strayDir := filepath.Join(workspaces.BaseDir(), "lost+found")
		require.NoError(t, os.Mkdir(strayDir, 0o755))

		count, err := CleanupOrphanedWorkDirs(context.Background(), newTestLogger(), workspaces, repo)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		ids, err := workspaces.ListJobDirs()
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("preserves directories for processing jobs", func(t *testing.T) {
		repo := repository.NewMemoryClipJobRepository()
		workspaces, err := storage.NewWorkspaceManager(t.TempDir(), newTestLogger())
		require.NoError(t, err)

		active := newJob(t, repo)
		_, err = workspaces.Create(active.ID.String())
		require.NoError(t, err)

		count, err := CleanupOrphanedWorkDirs(context.Background(), newTestLogger(), workspaces, repo)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		ids, err := workspaces.ListJobDirs()
		require.NoError(t, err)
		assert.Equal(t, []string{active.ID.String()}, ids)
	})

	t.Run("empty work root is a no-op", func(t *testing.T) {
		repo := repository.NewMemoryClipJobRepository()
		workspaces, err := storage.NewWorkspaceManager(t.TempDir(), newTestLogger())
		require.NoError(t, err)

		count, err := CleanupOrphanedWorkDirs(context.Background(), newTestLogger(), workspaces, repo)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestRecoverStaleJobs(t *testing.T) {
	repo := repository.NewMemoryClipJobRepository()

	stale := newJob(t, repo)
	other := newJob(t, repo)
	done := newJob(t, repo)
	require.NoError(t, repo.MarkReady(context.Background(), done.ID, "x.mp4", "http://localhost/x"))

	count, err := RecoverStaleJobs(context.Background(), newTestLogger(), repo)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []models.ULID{stale.ID, other.ID} {
		job, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, models.ClipStatusError, job.Status)
		assert.Equal(t, "interrupted by server restart", job.Error)
	}

	// Ready job untouched.
	job, err := repo.GetByID(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClipStatusReady, job.Status)
}
