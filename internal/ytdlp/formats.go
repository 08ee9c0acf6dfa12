package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/clippa-dev/clippa/internal/runner"
)

// probeTimeout is a safety floor when no formats timeout is configured.
const probeTimeout = 30 * time.Second

// Format is one selectable video quality for a source URL.
type Format struct {
	ID       string  `json:"format_id"`
	Label    string  `json:"label"`
	Height   int     `json:"height"`
	Ext      string  `json:"ext"`
	FPS      float64 `json:"fps,omitempty"`
	HasAudio bool    `json:"has_audio"`
}

// videoInfo mirrors the subset of yt-dlp's -J output we need.
type videoInfo struct {
	Title    string      `json:"title"`
	Duration float64     `json:"duration"`
	Formats  []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	FormatNote string  `json:"format_note"`
}

// ListFormats probes the URL with yt-dlp and returns the distinct video
// heights available, best first. For each height the format with audio is
// preferred so single-file downloads stay possible.
func (d *Downloader) ListFormats(ctx context.Context, url string) ([]Format, error) {
	timeout := d.cfg.FormatsTimeout
	if timeout <= 0 {
		timeout = probeTimeout
	}

	args := []string{
		"-J",
		"--no-warnings",
		"--no-check-certificates",
		"--no-playlist",
		url,
	}

	result, err := d.runner.Run(ctx, d.cfg.BinaryPath, args, runner.Options{Timeout: timeout})
	if err != nil {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("probing formats: %w", err)}
	}

	var info videoInfo
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("parsing format metadata: %w", err)}
	}

	formats := selectFormats(info.Formats)
	d.logger.Debug("probed source formats",
		slog.String("url", url),
		slog.Int("count", len(formats)),
	)
	return formats, nil
}

// selectFormats keeps one format per height, preferring muxed audio, and
// sorts best quality first.
func selectFormats(raw []rawFormat) []Format {
	byHeight := make(map[int]rawFormat)
	for _, f := range raw {
		if f.Height == 0 || f.VCodec == "" || f.VCodec == "none" {
			continue
		}
		existing, ok := byHeight[f.Height]
		if !ok {
			byHeight[f.Height] = f
			continue
		}
		if preferFormat(f, existing) {
			byHeight[f.Height] = f
		}
	}

	formats := make([]Format, 0, len(byHeight))
	for _, f := range byHeight {
		formats = append(formats, Format{
			ID:       f.FormatID,
			Label:    fmt.Sprintf("%dp (%s)", f.Height, f.Ext),
			Height:   f.Height,
			Ext:      f.Ext,
			FPS:      f.FPS,
			HasAudio: hasAudio(f),
		})
	}

	sort.Slice(formats, func(i, j int) bool {
		if formats[i].Height != formats[j].Height {
			return formats[i].Height > formats[j].Height
		}
		return formats[i].FPS > formats[j].FPS
	})
	return formats
}

// preferFormat reports whether a should replace b for the same height.
func preferFormat(a, b rawFormat) bool {
	aAudio, bAudio := hasAudio(a), hasAudio(b)
	if aAudio != bAudio {
		return aAudio
	}
	aMP4, bMP4 := a.Ext == "mp4", b.Ext == "mp4"
	if aMP4 != bMP4 {
		return aMP4
	}
	return a.FPS > b.FPS
}

func hasAudio(f rawFormat) bool {
	return f.ACodec != "" && f.ACodec != "none"
}
