package pwa

import (
	"fmt"
	"math"
	"strings"
)

// DurationValue is the JSGrid's stored work-duration encoding: an integer
// count of 1/1000th-of-a-minute units, i.e. hours × 60000 (8h = 480000).
//
// Conversions go through millihours (hours × 1000) so the scaling is pure
// integer arithmetic; a float multiply-then-round would drift across many
// small writes (7.6h must encode to exactly 456000).
type DurationValue int64

// DurationFromHours converts an hour count to the grid encoding. Hours
// are snapped to the nearest millihour before scaling; values outside
// [0, 24] are rejected.
func DurationFromHours(hours float64) (DurationValue, error) {
	if hours < 0 || hours > 24 {
		return 0, fmt.Errorf("hours out of range: %v", hours)
	}
	millihours := int64(math.Round(hours * 1000))
	return DurationValue(millihours * 60), nil
}

// ParseLocalized parses a localized grid value such as "8h", "7.6h" or
// "0.5" into the stored encoding. Empty strings parse to zero.
func ParseLocalized(s string) (DurationValue, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "h"))
	if s == "" {
		return 0, nil
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 3 {
		return 0, fmt.Errorf("duration %q has sub-millihour precision", s)
	}

	var millihours int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed duration %q", s)
		}
		millihours = millihours*10 + int64(r-'0')
	}
	millihours *= 1000

	scale := int64(100)
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed duration %q", s)
		}
		millihours += int64(r-'0') * scale
		scale /= 10
	}

	return DurationValue(millihours * 60), nil
}

// Hours returns the value as a floating-point hour count, for reporting.
func (v DurationValue) Hours() float64 {
	return float64(v) / 60000
}

// Localized renders the value the way the grid displays it: "8h", "7.6h".
func (v DurationValue) Localized() string {
	millihours := int64(v) / 60
	whole := millihours / 1000
	frac := millihours % 1000
	if frac == 0 {
		return fmt.Sprintf("%dh", whole)
	}
	digits := strings.TrimRight(fmt.Sprintf("%03d", frac), "0")
	return fmt.Sprintf("%d.%sh", whole, digits)
}

// IsZero reports whether the value represents no hours.
func (v DurationValue) IsZero() bool { return v == 0 }
