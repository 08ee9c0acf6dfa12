package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day represents 24 hours.
const Day = 24 * time.Hour

// Duration is a time.Duration that supports human-readable parsing.
// It extends Go's standard duration format with support for:
//   - d: days (24 hours)
//   - w: weeks (7 days)
//
// Examples:
//   - "30d" = 30 days
//   - "2w" = 2 weeks
//   - "1w2d12h" = 1 week, 2 days, 12 hours
//   - "720h" = 720 hours (standard Go format still works)
//
// This type implements encoding.TextUnmarshaler for Viper/YAML support
// and json.Unmarshaler for JSON configuration files.
type Duration time.Duration

// ParseDuration parses a human-readable duration string.
// Supports standard Go duration format plus 'd' (days) and 'w' (weeks).
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	// Raw number means nanoseconds, matching time.Duration JSON behavior.
	if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Duration(ns), nil
	}

	// Rewrite day/week units into hours so time.ParseDuration can handle
	// the whole string. Units are scanned longest-value-first to keep
	// "1w2d12h" style compound strings working.
	var rewritten strings.Builder
	num := ""
	for _, r := range s {
		switch {
		case (r >= '0' && r <= '9') || r == '.' || r == '-':
			num += string(r)
		case r == 'w':
			hours, err := unitHours(num, 7*24)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			rewritten.WriteString(hours)
			num = ""
		case r == 'd':
			hours, err := unitHours(num, 24)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			rewritten.WriteString(hours)
			num = ""
		default:
			rewritten.WriteString(num)
			rewritten.WriteRune(r)
			num = ""
		}
	}
	rewritten.WriteString(num)

	d, err := time.ParseDuration(rewritten.String())
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return Duration(d), nil
}

// unitHours converts a numeric prefix plus an hour multiplier into a Go
// duration fragment like "168h".
func unitHours(num string, multiplier float64) (string, error) {
	if num == "" {
		return "", fmt.Errorf("missing value before unit")
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return "", fmt.Errorf("invalid value %q: %w", num, err)
	}
	return strconv.FormatFloat(f*multiplier, 'f', -1, 64) + "h", nil
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML/Viper support.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try as a number (nanoseconds) for backwards compatibility
		var ns int64
		if err := json.Unmarshal(data, &ns); err != nil {
			return err
		}
		*d = Duration(ns)
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Std returns the standard time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the duration formatted with day/week units where they
// divide evenly, falling back to the standard Go format.
func (d Duration) String() string {
	std := time.Duration(d)
	if std != 0 && std%(7*Day) == 0 {
		return strconv.FormatInt(int64(std/(7*Day)), 10) + "w"
	}
	if std != 0 && std%Day == 0 {
		return strconv.FormatInt(int64(std/Day), 10) + "d"
	}
	return std.String()
}
