package score

// Tier buckets a score for display.
type Tier string

const (
	Optimal  Tier = "Optimal"
	Degraded Tier = "Degraded"
	Critical Tier = "Critical"
)

// Tier thresholds (inclusive lower bounds).
const (
	OptimalFrom  = 70
	DegradedFrom = 40
)

// TierFor returns the status tier for a score.
func TierFor(score int) Tier {
	switch {
	case score >= OptimalFrom:
		return Optimal
	case score >= DegradedFrom:
		return Degraded
	default:
		return Critical
	}
}
