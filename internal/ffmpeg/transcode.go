package ffmpeg

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

// Crop filter expressions. min() keeps the crop window inside the source
// frame regardless of the input aspect ratio.
const (
	verticalCropFilter = "crop='min(in_w,in_h*9/16)':'min(in_h,in_w*16/9)',scale=1080:1920"
	squareCropFilter   = "crop='min(in_w,in_h)':'min(in_w,in_h)',scale=1080:1080"
)

// TranscodeError indicates ffmpeg failed to produce the output file.
type TranscodeError struct {
	Input string
	Err   error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcoding %s: %v", filepath.Base(e.Input), e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// TranscodeRequest describes one clip transcode.
type TranscodeRequest struct {
	InputPath  string
	OutputPath string
	CropRatio  models.CropRatio

	// SubtitlePath, when set, burns the subtitle track into the video.
	SubtitlePath string
}

// Transcoder runs ffmpeg transcodes.
type Transcoder struct {
	cfg    config.FFmpegConfig
	runner *runner.Runner
	logger *slog.Logger
}

// NewTranscoder creates a Transcoder.
func NewTranscoder(cfg config.FFmpegConfig, run *runner.Runner, logger *slog.Logger) *Transcoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcoder{cfg: cfg, runner: run, logger: logger}
}

// NeedsEncode reports whether the request requires re-encoding. Without a
// crop or subtitle burn the streams can be copied into the mp4 container.
func NeedsEncode(req TranscodeRequest) bool {
	if req.CropRatio != "" && req.CropRatio != models.CropOriginal {
		return true
	}
	return req.SubtitlePath != ""
}

// Transcode produces the final clip file from the downloaded segment.
func (t *Transcoder) Transcode(ctx context.Context, req TranscodeRequest) error {
	args := BuildArgs(req)

	log := t.logger.With(
		slog.String("input", filepath.Base(req.InputPath)),
		slog.String("crop", string(req.CropRatio)),
		slog.Bool("burn_subtitles", req.SubtitlePath != ""),
	)
	log.Info("starting transcode", slog.Bool("reencode", NeedsEncode(req)))

	result, err := t.runner.Run(ctx, t.cfg.BinaryPath, args, runner.Options{
		Timeout: t.cfg.TranscodeTimeout,
	})
	if err != nil {
		return &TranscodeError{Input: req.InputPath, Err: err}
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return &TranscodeError{Input: req.InputPath, Err: fmt.Errorf("output file missing: %w", err)}
	}
	if info.Size() == 0 {
		return &TranscodeError{Input: req.InputPath, Err: fmt.Errorf("output file is empty")}
	}

	log.Info("transcode complete",
		slog.Int64("output_bytes", info.Size()),
		slog.Duration("elapsed", result.Duration),
	)
	return nil
}

// BuildArgs assembles the ffmpeg argument list for a transcode request.
func BuildArgs(req TranscodeRequest) []string {
	b := NewCommandBuilder().
		HideBanner().
		Overwrite().
		Input(req.InputPath)

	switch req.CropRatio {
	case models.CropVertical:
		b.VideoFilter(verticalCropFilter)
	case models.CropSquare:
		b.VideoFilter(squareCropFilter)
	}

	if req.SubtitlePath != "" {
		b.VideoFilter("subtitles=" + escapeFilterPath(req.SubtitlePath))
	}

	if NeedsEncode(req) {
		b.VideoCodec("libx264").
			OutputArgs("-profile:v", "high", "-level", "4.0", "-pix_fmt", "yuv420p").
			AudioCodec("aac").
			AudioBitrate("128k")
	} else {
		b.OutputArgs("-c", "copy")
	}

	return b.OutputArgs("-movflags", "+faststart").
		Output(req.OutputPath).
		Build()
}

// escapeFilterPath escapes characters that the ffmpeg filter graph parser
// treats specially in filenames.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
	return r.Replace(path)
}
