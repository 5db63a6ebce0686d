package util

import (
	"math"
	"testing"
)

func TestRoundToTick(t *testing.T) {
	if got := RoundToTick(50012.3, 5); got != 50010 {
		t.Fatalf("got %v", got)
	}
	if got := RoundToTick(50012.6, 5); got != 50015 {
		t.Fatalf("got %v", got)
	}
	if got := RoundToTick(100.123, 0); got != 100.123 {
		t.Fatalf("zero tick should passthrough, got %v", got)
	}
}

func TestIsNear(t *testing.T) {
	if !IsNear(100.1, 100, 0.2) {
		t.Fatalf("expected near")
	}
	if IsNear(101, 100, 0.2) {
		t.Fatalf("expected not near")
	}
	if !IsNear(0, 0, 0.2) {
		t.Fatalf("zero/zero should be near")
	}
}

func TestPercentChange(t *testing.T) {
	if got := PercentChange(100, 110); math.Abs(got-10) > 1e-9 {
		t.Fatalf("got %v", got)
	}
	if got := PercentChange(0, 110); got != 0 {
		t.Fatalf("zero prev should yield 0, got %v", got)
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("42", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := ParseIntDefault("x", 7); got != 7 {
		t.Fatalf("got %d", got)
	}
}
