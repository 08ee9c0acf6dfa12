package models

import (
	"fmt"
	"regexp"
	"time"
)

// timecodeRe matches HH:MM:SS with an optional millisecond fraction.
var timecodeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?$`)

// Timecode is a clip position expressed as "HH:MM:SS" or "HH:MM:SS.mmm".
type Timecode string

// Duration converts the timecode to a time.Duration.
func (t Timecode) Duration() (time.Duration, error) {
	m := timecodeRe.FindStringSubmatch(string(t))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, string(t))
	}

	var h, min, sec, ms int
	fmt.Sscanf(m[1], "%d", &h)
	fmt.Sscanf(m[2], "%d", &min)
	fmt.Sscanf(m[3], "%d", &sec)
	if m[4] != "" {
		// Pad the fraction to milliseconds ("5" means 500ms).
		frac := m[4]
		for len(frac) < 3 {
			frac += "0"
		}
		fmt.Sscanf(frac, "%d", &ms)
	}

	if min > 59 || sec > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, string(t))
	}

	return time.Duration(h)*time.Hour +
		time.Duration(min)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// Validate reports whether the timecode is well formed.
func (t Timecode) Validate() error {
	_, err := t.Duration()
	return err
}

// String returns the raw timecode string.
func (t Timecode) String() string {
	return string(t)
}
