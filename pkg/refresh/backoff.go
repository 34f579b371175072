package refresh

import "math"

// maxBackoffSeconds caps the delay between retries after repeated
// refresh failures.
const maxBackoffSeconds = 300

// CalculateBackoff returns the delay in seconds before the next refresh
// attempt: the base delay doubled per consecutive failure beyond the
// first, capped at maxBackoffSeconds. A failure count of zero means the
// last cycle succeeded and the base delay applies.
func CalculateBackoff(failCount int, baseDelaySeconds float64) float64 {
	if failCount == 0 {
		return baseDelaySeconds
	}
	delay := baseDelaySeconds * math.Pow(2, float64(failCount-1))
	if delay > maxBackoffSeconds {
		return maxBackoffSeconds
	}
	return delay
}
