package search

import (
	"math"
	"strconv"
	"strings"
)

// Result count bounds.
const (
	DefaultTopK = 5
	MinTopK     = 1
	MaxTopK     = 10
)

// ClampTopK bounds n to [MinTopK, MaxTopK].
func ClampTopK(n int) int {
	return max(MinTopK, min(MaxTopK, n))
}

// ParseTopK interprets a decoded JSON value as a result count.
// Absent, zero, and non-numeric values fall back to DefaultTopK;
// numeric strings are accepted and fractions are floored before clamping.
func ParseTopK(raw any) int {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return DefaultTopK
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return DefaultTopK
		}
		f = parsed
	case bool:
		if !v {
			return DefaultTopK
		}
		f = 1
	default:
		return DefaultTopK
	}

	if f == 0 || math.IsNaN(f) {
		return DefaultTopK
	}
	if math.IsInf(f, 1) {
		return MaxTopK
	}
	if math.IsInf(f, -1) {
		return MinTopK
	}
	return ClampTopK(int(math.Max(math.Min(math.Floor(f), MaxTopK), MinTopK)))
}
