package service

import "math"

// ProgressPercentage is accumulated/target as a whole percentage clamped to
// [0, 100]. A goal without a positive target has no progress.
func ProgressPercentage(accumulatedMinutes, targetMinutes int) int {
	if targetMinutes <= 0 {
		return 0
	}

	pct := int(math.Round(float64(accumulatedMinutes) / float64(targetMinutes) * 100))
	return max(0, min(100, pct))
}
