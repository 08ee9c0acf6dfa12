package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// BinaryInfo describes a detected ffmpeg binary.
type BinaryInfo struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// DetectBinary resolves the ffmpeg binary and reports its version. An
// explicit configured path takes precedence over PATH lookup.
func DetectBinary(ctx context.Context, configuredPath string) (*BinaryInfo, error) {
	path := configuredPath
	if path == "" {
		path = "ffmpeg"
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	out, err := exec.CommandContext(ctx, resolved, "-version").Output()
	if err != nil {
		return nil, fmt.Errorf("getting ffmpeg version: %w", err)
	}

	info := &BinaryInfo{Path: resolved}
	// First line: "ffmpeg version 6.1.1 Copyright ..."
	if line, _, _ := strings.Cut(string(out), "\n"); line != "" {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == "ffmpeg" && fields[1] == "version" {
			info.Version = fields[2]
		}
	}
	return info, nil
}
