// Package timeutil converts between total-second durations and
// day/hour/minute/second parts, for age-based filter inputs.
package timeutil

import "math"

// Parts is a duration split into calendar-free components. Seconds keeps
// any fractional remainder; the larger units are always whole.
type Parts struct {
	Days    int
	Hours   int
	Minutes int
	Seconds float64
}

// PartsFromSeconds splits a total-second duration into parts.
// NaN, infinite, negative, and zero inputs all collapse to zero parts.
func PartsFromSeconds(totalSeconds float64) Parts {
	total := totalSeconds
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		total = 0
	}

	days := math.Floor(total / 86400)
	remainder := math.Mod(total, 86400)
	hours := math.Floor(remainder / 3600)
	remainder = math.Mod(remainder, 3600)
	minutes := math.Floor(remainder / 60)
	seconds := math.Mod(remainder, 60)

	return Parts{
		Days:    int(days),
		Hours:   int(hours),
		Minutes: int(minutes),
		Seconds: seconds,
	}
}

// SecondsFromParts combines parts back into a total-second duration.
// Each part is floored individually; NaN, infinite, and negative parts
// count as zero.
func SecondsFromParts(days, hours, minutes, seconds float64) float64 {
	return clampPart(days)*86400 + clampPart(hours)*3600 + clampPart(minutes)*60 + clampPart(seconds)
}

func clampPart(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return math.Floor(v)
}

// TotalSeconds is a convenience for SecondsFromParts over a Parts value.
func (p Parts) TotalSeconds() float64 {
	return SecondsFromParts(float64(p.Days), float64(p.Hours), float64(p.Minutes), p.Seconds)
}
