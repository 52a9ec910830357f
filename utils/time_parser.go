package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseDuration extends time.ParseDuration to support days (d) and weeks (w),
// also inside compound values such as "1d12h". Signs are rejected and the
// result must fit in a time.Duration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if strings.ContainsAny(s, "+-") {
		return 0, fmt.Errorf("signed duration %q", s)
	}

	var total time.Duration
	rest := s
	for _, unit := range []struct {
		suffix string
		size   time.Duration
	}{{"w", 7 * 24 * time.Hour}, {"d", 24 * time.Hour}} {
		idx := strings.Index(rest, unit.suffix)
		if idx < 0 {
			continue
		}
		n, err := strconv.ParseInt(rest[:idx], 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid %s value in %q", unit.suffix, s)
		}
		if n > math.MaxInt64/int64(unit.size) {
			return 0, fmt.Errorf("duration out of range: %q", s)
		}
		if total, err = addDuration(total, time.Duration(n)*unit.size); err != nil {
			return 0, fmt.Errorf("duration out of range: %q", s)
		}
		rest = rest[idx+1:]
	}

	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		if total, err = addDuration(total, d); err != nil {
			return 0, fmt.Errorf("duration out of range: %q", s)
		}
	}

	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return total, nil
}

func addDuration(a, b time.Duration) (time.Duration, error) {
	if b > math.MaxInt64-a {
		return 0, fmt.Errorf("overflow")
	}
	return a + b, nil
}
