package domain

// Risk levels derived from the risk priority number.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

// Factor bounds for probability, severity and detectability.
const (
	FactorMin = 1
	FactorMax = 10
)

// ValidFactor reports whether f lies within [1,10].
func ValidFactor(f int) bool {
	return f >= FactorMin && f <= FactorMax
}

// Score computes the risk priority number: probability x severity x
// detectability. With factors in [1,10] the score lies in [1,1000]. The
// function is pure; it never touches workflow status.
func Score(probability, severity, detectability int) int {
	return probability * severity * detectability
}

// Level maps a score to its categorical level. Thresholds are fixed with
// inclusive lower bounds: >=500 critical, >=200 high, >=50 medium, else low.
func Level(score int) string {
	switch {
	case score >= 500:
		return LevelCritical
	case score >= 200:
		return LevelHigh
	case score >= 50:
		return LevelMedium
	default:
		return LevelLow
	}
}
