package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandbox_ResolvePath(t *testing.T) {
	sandbox, err := NewSandbox(t.TempDir())
	require.NoError(t, err)

	t.Run("valid relative path", func(t *testing.T) {
		path, err := sandbox.ResolvePath("clips/abc.mp4")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(sandbox.BaseDir(), "clips", "abc.mp4"), path)
	})

	t.Run("rejects absolute path", func(t *testing.T) {
		_, err := sandbox.ResolvePath("/etc/passwd")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes sandbox")
	})

	t.Run("rejects traversal", func(t *testing.T) {
		_, err := sandbox.ResolvePath("../outside.mp4")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes sandbox")
	})

	t.Run("cleans internal traversal", func(t *testing.T) {
		path, err := sandbox.ResolvePath("clips/../abc.mp4")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(sandbox.BaseDir(), "abc.mp4"), path)
	})
}

func TestSandbox_RemoveAllRefusesRoot(t *testing.T) {
	sandbox, err := NewSandbox(t.TempDir())
	require.NoError(t, err)

	err = sandbox.RemoveAll(".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to remove sandbox root")
}

func TestSandbox_AtomicPublish(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "work.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video data"), 0o644))

	sandbox, err := NewSandbox(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, sandbox.AtomicPublish(src, "clips/final.mp4"))

	exists, err := sandbox.Exists("clips/final.mp4")
	require.NoError(t, err)
	assert.True(t, exists)

	// Source is gone after publish.
	_, statErr := os.Stat(src)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "job.mp4")
	require.NoError(t, os.WriteFile(src, []byte("clip bytes"), 0o644))

	require.NoError(t, store.Put(ctx, "01JOB.mp4", src))

	exists, err := store.Exists("01JOB.mp4")
	require.NoError(t, err)
	assert.True(t, exists)

	f, info, err := store.Open("01JOB.mp4")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(len("clip bytes")), info.Size())

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "clip bytes", string(data))

	require.NoError(t, store.Delete("01JOB.mp4"))

	exists, err = store.Exists("01JOB.mp4")
	require.NoError(t, err)
	assert.False(t, exists)

	// Delete is idempotent.
	require.NoError(t, store.Delete("01JOB.mp4"))
}

func TestLocalStore_RejectsTraversalKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../escape.mp4", "whatever")
	require.Error(t, err)

	_, _, err = store.Open("../../etc/passwd")
	require.Error(t, err)
}

func TestWorkspaceManager(t *testing.T) {
	mgr, err := NewWorkspaceManager(t.TempDir(), nil)
	require.NoError(t, err)

	dir, err := mgr.Create("01JOB")
	require.NoError(t, err)
	assert.DirExists(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "segment.mp4"), []byte("x"), 0o644))

	ids, err := mgr.ListJobDirs()
	require.NoError(t, err)
	assert.Equal(t, []string{"01JOB"}, ids)

	require.NoError(t, mgr.Remove("01JOB"))
	assert.NoDirExists(t, dir)

	ids, err = mgr.ListJobDirs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
