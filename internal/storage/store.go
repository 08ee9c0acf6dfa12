package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ObjectStore persists finished clip artifacts keyed by a relative path.
// Delete is idempotent: deleting a missing object succeeds.
type ObjectStore interface {
	// Put moves the file at srcPath into the store under key.
	Put(ctx context.Context, key, srcPath string) error

	// Open opens a stored object for reading. The caller closes the file.
	Open(key string) (io.ReadSeekCloser, os.FileInfo, error)

	// Delete removes a stored object.
	Delete(key string) error

	// Exists reports whether an object is present.
	Exists(key string) (bool, error)
}

// LocalStore is an ObjectStore backed by a sandboxed local directory.
type LocalStore struct {
	sandbox *Sandbox
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	sandbox, err := NewSandbox(dir)
	if err != nil {
		return nil, fmt.Errorf("creating output store: %w", err)
	}
	return &LocalStore{sandbox: sandbox}, nil
}

var _ ObjectStore = (*LocalStore)(nil)

// Put moves the file at srcPath into the store under key.
func (s *LocalStore) Put(ctx context.Context, key, srcPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sandbox.AtomicPublish(srcPath, key); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// Open opens a stored object for reading.
func (s *LocalStore) Open(key string) (io.ReadSeekCloser, os.FileInfo, error) {
	f, err := s.sandbox.Open(key)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("statting %s: %w", key, err)
	}
	return f, info, nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *LocalStore) Delete(key string) error {
	err := s.sandbox.Remove(key)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether an object is present.
func (s *LocalStore) Exists(key string) (bool, error) {
	return s.sandbox.Exists(key)
}

// BaseDir returns the store's root directory.
func (s *LocalStore) BaseDir() string {
	return s.sandbox.BaseDir()
}
