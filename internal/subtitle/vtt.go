// Package subtitle rewrites WebVTT files so cue timestamps line up with a
// clipped video segment. yt-dlp writes subtitle timestamps relative to the
// full source video; after clipping, every cue must be shifted back by the
// clip's start offset.
package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// cueTimingRe matches a WebVTT cue timing line, capturing both timestamps
// and any trailing cue settings. Timestamps may omit the hour component.
var cueTimingRe = regexp.MustCompile(`^\s*((?:\d{1,2}:)?\d{2}:\d{2}\.\d{3})\s+-->\s+((?:\d{1,2}:)?\d{2}:\d{2}\.\d{3})(.*)$`)

// ShiftFile rewrites the VTT file at path, subtracting offset from every cue
// timestamp. Cues that end at or before zero after the shift are dropped;
// cues that straddle zero have their start clamped to zero. The rewrite is
// atomic: the new content is written to a temp file and renamed over the
// original.
func ShiftFile(path string, offset time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading subtitle file: %w", err)
	}

	shifted, err := Shift(string(data), offset)
	if err != nil {
		return fmt.Errorf("shifting subtitles in %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(shifted), 0o644); err != nil {
		return fmt.Errorf("writing shifted subtitle file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing subtitle file: %w", err)
	}
	return nil
}

// Shift returns the VTT content with every cue timestamp reduced by offset.
func Shift(content string, offset time.Duration) (string, error) {
	blocks := splitBlocks(content)

	var out []string
	for _, block := range blocks {
		lines := strings.Split(block, "\n")

		timingIdx := -1
		for i, line := range lines {
			if cueTimingRe.MatchString(line) {
				timingIdx = i
				break
			}
		}
		if timingIdx == -1 {
			// Header, NOTE, STYLE or other non-cue block passes through.
			out = append(out, block)
			continue
		}

		m := cueTimingRe.FindStringSubmatch(lines[timingIdx])
		start, err := parseTimestamp(m[1])
		if err != nil {
			return "", err
		}
		end, err := parseTimestamp(m[2])
		if err != nil {
			return "", err
		}

		start -= offset
		end -= offset
		if end <= 0 {
			// Cue finished before the clip starts.
			continue
		}
		if start < 0 {
			start = 0
		}

		lines[timingIdx] = formatTimestamp(start) + " --> " + formatTimestamp(end) + m[3]
		out = append(out, strings.Join(lines, "\n"))
	}

	return strings.Join(out, "\n\n") + "\n", nil
}

// splitBlocks splits VTT content into blank-line separated blocks.
func splitBlocks(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var blocks []string
	var current []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

// parseTimestamp parses "HH:MM:SS.mmm" or "MM:SS.mmm".
func parseTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")

	var h, m int
	var secPart string
	switch len(parts) {
	case 3:
		if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
			return 0, fmt.Errorf("invalid VTT timestamp %q", s)
		}
		if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
			return 0, fmt.Errorf("invalid VTT timestamp %q", s)
		}
		secPart = parts[2]
	case 2:
		if _, err := fmt.Sscanf(parts[0], "%d", &m); err != nil {
			return 0, fmt.Errorf("invalid VTT timestamp %q", s)
		}
		secPart = parts[1]
	default:
		return 0, fmt.Errorf("invalid VTT timestamp %q", s)
	}

	var sec, ms int
	if _, err := fmt.Sscanf(secPart, "%d.%d", &sec, &ms); err != nil {
		return 0, fmt.Errorf("invalid VTT timestamp %q", s)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// formatTimestamp renders a duration as "HH:MM:SS.mmm".
func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
