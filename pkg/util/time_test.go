package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestSessionStartSameDay(t *testing.T) {
	ts := time.Date(2024, 10, 10, 14, 30, 0, 0, time.UTC).UnixMilli()
	got, err := SessionStart(ts, "00:00")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestSessionStartPreviousDay(t *testing.T) {
	ts := time.Date(2024, 10, 10, 8, 0, 0, 0, time.UTC).UnixMilli()
	got, err := SessionStart(ts, "09:30")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := time.Date(2024, 10, 9, 9, 30, 0, 0, time.UTC).UnixMilli()
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestSessionStartInvalid(t *testing.T) {
	if _, err := SessionStart(0, "25:00"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := SessionStart(0, "garbage"); err == nil {
		t.Fatalf("expected error")
	}
}
