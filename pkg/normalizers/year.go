package normalizers

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// UnknownYear marks a publication year that could not be trusted
const UnknownYear = 0

// SanitizeYear converts a raw publication year into [1, now.Year()] or UnknownYear.
// Fractional numbers are truncated; anything unparseable, non-positive or in the future is unknown.
func SanitizeYear(raw any, now time.Time) int {
	year, ok := toYear(raw)
	if !ok || year <= 0 || year > int64(now.Year()) {
		return UnknownYear
	}
	return int(year)
}

func toYear(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
