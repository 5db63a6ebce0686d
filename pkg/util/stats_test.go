package util

import (
	"math"
	"testing"
)

func TestSlopeLinear(t *testing.T) {
	got := Slope([]float64{1, 3, 5, 7})
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("got %v", got)
	}
}

func TestSlopeFlat(t *testing.T) {
	if got := Slope([]float64{4, 4, 4}); got != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestSlopeShort(t *testing.T) {
	if got := Slope([]float64{9}); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := Slope(nil); got != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{2, 4, 6}); got != 4 {
		t.Fatalf("got %v", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("got %v", got)
	}
}
