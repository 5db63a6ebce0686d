package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// SessionStart returns the most recent session boundary at or before ts.
// startHHMM is a UTC wall-clock time like "00:00" or "13:30"; ts and the
// result are unix milliseconds.
func SessionStart(ts int64, startHHMM string) (int64, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(startHHMM, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid session start %q: %w", startHHMM, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid session start %q", startHHMM)
	}
	t := time.UnixMilli(ts).UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), hh, mm, 0, 0, time.UTC)
	if start.After(t) {
		start = start.AddDate(0, 0, -1)
	}
	return start.UnixMilli(), nil
}

// NowMs is the current wall clock in unix milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// FormatTimestamp renders a millisecond timestamp for logs and alerts.
func FormatTimestamp(ts int64) string {
	return time.UnixMilli(ts).UTC().Format("2006-01-02 15:04:05")
}
