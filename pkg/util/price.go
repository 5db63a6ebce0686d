package util

import (
	"math"
	"strconv"
)

// RoundToTick quantizes price to the nearest multiple of tickSize. Returns
// price unchanged when tickSize is not positive.
func RoundToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	return math.Round(price/tickSize) * tickSize
}

// IsNear reports whether a is within tolerancePct percent of b.
func IsNear(a, b, tolerancePct float64) bool {
	if b == 0 {
		return a == 0
	}
	return math.Abs(a-b)/math.Abs(b)*100 <= tolerancePct
}

// PercentChange from prev to cur. Returns 0 when prev is 0.
func PercentChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
