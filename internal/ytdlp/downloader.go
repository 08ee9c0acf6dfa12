// Package ytdlp wraps the yt-dlp binary for segment downloads and format
// probing.
package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/clippa-dev/clippa/internal/config"
	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/runner"
)

// defaultFormatSelector requests mp4-compatible streams with graduated
// fallbacks so downloads still succeed on sources without mp4 variants.
const defaultFormatSelector = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// DownloadError indicates yt-dlp failed to produce the requested segment.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// DownloadRequest describes a single segment download.
type DownloadRequest struct {
	URL       string
	StartTime models.Timecode
	EndTime   models.Timecode

	// FormatID optionally pins a specific source format.
	FormatID string

	// Subtitles requests subtitle tracks alongside the video.
	Subtitles bool

	// OutputID names the output files; the video lands at
	// <workDir>/<OutputID>.<ext>.
	OutputID string

	// WorkDir is the scratch directory for this download.
	WorkDir string
}

// DownloadResult holds the paths yt-dlp produced.
type DownloadResult struct {
	VideoPath    string
	SubtitlePath string // empty when no subtitle track was written
}

// Downloader runs yt-dlp segment downloads.
type Downloader struct {
	cfg    config.YtDlpConfig
	runner *runner.Runner
	logger *slog.Logger
}

// NewDownloader creates a Downloader.
func NewDownloader(cfg config.YtDlpConfig, run *runner.Runner, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{cfg: cfg, runner: run, logger: logger}
}

// Download fetches the requested segment into req.WorkDir.
func (d *Downloader) Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	args := d.buildArgs(req)

	log := d.logger.With(
		slog.String("url", req.URL),
		slog.String("section", fmt.Sprintf("%s-%s", req.StartTime, req.EndTime)),
	)
	log.Info("starting segment download")

	result, err := d.runner.Run(ctx, d.cfg.BinaryPath, args, runner.Options{
		Timeout: d.cfg.DownloadTimeout,
		Dir:     req.WorkDir,
	})
	if err != nil {
		return nil, &DownloadError{URL: req.URL, Err: err}
	}

	videoPath, err := d.locateVideo(result.Stdout, req)
	if err != nil {
		return nil, &DownloadError{URL: req.URL, Err: err}
	}

	res := &DownloadResult{VideoPath: videoPath}
	if req.Subtitles {
		res.SubtitlePath = d.locateSubtitle(req)
		if res.SubtitlePath == "" {
			log.Info("no subtitle track available", slog.String("lang", d.cfg.SubtitleLang))
		}
	}

	log.Info("segment download complete",
		slog.String("video", filepath.Base(res.VideoPath)),
		slog.Bool("subtitles", res.SubtitlePath != ""),
		slog.Duration("elapsed", result.Duration),
	)
	return res, nil
}

// buildArgs assembles the yt-dlp argument list for a segment download.
func (d *Downloader) buildArgs(req DownloadRequest) []string {
	format := defaultFormatSelector
	if req.FormatID != "" {
		// Pin the requested video format but keep audio and full fallbacks.
		format = fmt.Sprintf("%s+bestaudio/%s/best", req.FormatID, req.FormatID)
	}

	args := []string{
		"--download-sections", fmt.Sprintf("*%s-%s", req.StartTime, req.EndTime),
		"-f", format,
		"--merge-output-format", "mp4",
		"--no-check-certificates",
		"--no-warnings",
		"--add-header", "referer:youtube.com",
		"--add-header", "user-agent:Mozilla/5.0",
		"--no-playlist",
	}

	if req.Subtitles {
		args = append(args,
			"--write-subs",
			"--write-auto-subs",
			"--sub-langs", d.cfg.SubtitleLang,
			"--convert-subs", "vtt",
		)
	}

	if d.cfg.CookiesFile != "" {
		if _, err := os.Stat(d.cfg.CookiesFile); err == nil {
			args = append(args, "--cookies", d.cfg.CookiesFile)
		}
	}

	args = append(args,
		"-o", filepath.Join(req.WorkDir, req.OutputID+".%(ext)s"),
		req.URL,
	)
	return args
}

// locateVideo finds the downloaded video file, first from yt-dlp's stdout
// and then by scanning the work directory for the deterministic output name.
func (d *Downloader) locateVideo(stdout string, req DownloadRequest) (string, error) {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)

		// "[download] Destination: /work/<id>.mp4"
		if rest, ok := strings.CutPrefix(line, "[download] Destination: "); ok {
			if isVideoFile(rest) && fileExists(rest) {
				return rest, nil
			}
		}
		// "[Merger] Merging formats into "/work/<id>.mp4""
		if strings.HasPrefix(line, "[Merger]") {
			if start := strings.Index(line, `"`); start != -1 {
				if end := strings.LastIndex(line, `"`); end > start {
					path := line[start+1 : end]
					if fileExists(path) {
						return path, nil
					}
				}
			}
		}
	}

	// Fall back to the deterministic output template.
	matches, err := filepath.Glob(filepath.Join(req.WorkDir, req.OutputID+".*"))
	if err != nil {
		return "", fmt.Errorf("scanning work directory: %w", err)
	}
	for _, m := range matches {
		if isVideoFile(m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("no video file produced for %s", req.OutputID)
}

// locateSubtitle finds a VTT file written alongside the video, if any.
func (d *Downloader) locateSubtitle(req DownloadRequest) string {
	matches, _ := filepath.Glob(filepath.Join(req.WorkDir, req.OutputID+"*.vtt"))
	if len(matches) == 0 {
		return ""
	}
	// Prefer the configured language when several tracks were written.
	for _, m := range matches {
		if strings.Contains(filepath.Base(m), "."+d.cfg.SubtitleLang+".") ||
			strings.HasSuffix(m, "."+d.cfg.SubtitleLang+".vtt") {
			return m
		}
	}
	return matches[0]
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".m4v":  true,
}

func isVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
