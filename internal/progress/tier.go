package progress

// TierForPoints is the step function deriving the hierarchy tier from
// cumulative hierarchy points. Monotonic non-decreasing by construction.
func TierForPoints(points int) int {
	switch {
	case points < 10:
		return 0
	case points < 25:
		return 1
	case points < 50:
		return 2
	case points < 75:
		return 3
	case points < 100:
		return 4
	default:
		return 5
	}
}
