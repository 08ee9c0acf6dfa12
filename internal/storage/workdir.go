package storage

import (
	"fmt"
	"log/slog"
)

// WorkspaceManager hands out per-job scratch directories under a common
// work root and removes them when the job finishes.
type WorkspaceManager struct {
	sandbox *Sandbox
	logger  *slog.Logger
}

// NewWorkspaceManager creates a WorkspaceManager rooted at dir.
func NewWorkspaceManager(dir string, logger *slog.Logger) (*WorkspaceManager, error) {
	sandbox, err := NewSandbox(dir)
	if err != nil {
		return nil, fmt.Errorf("creating work root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkspaceManager{sandbox: sandbox, logger: logger}, nil
}

// Create makes a scratch directory for the given job ID and returns its
// absolute path.
func (m *WorkspaceManager) Create(jobID string) (string, error) {
	if err := m.sandbox.MkdirAll(jobID); err != nil {
		return "", fmt.Errorf("creating work directory for %s: %w", jobID, err)
	}
	return m.sandbox.ResolvePath(jobID)
}

// Remove deletes a job's scratch directory and everything in it.
func (m *WorkspaceManager) Remove(jobID string) error {
	if err := m.sandbox.RemoveAll(jobID); err != nil {
		return fmt.Errorf("removing work directory for %s: %w", jobID, err)
	}
	return nil
}

// ListJobDirs returns the job IDs that currently have scratch directories.
func (m *WorkspaceManager) ListJobDirs() ([]string, error) {
	entries, err := m.sandbox.List(".")
	if err != nil {
		return nil, fmt.Errorf("listing work directories: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// BaseDir returns the work root directory.
func (m *WorkspaceManager) BaseDir() string {
	return m.sandbox.BaseDir()
}
