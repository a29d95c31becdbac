// Package scoring implements mahjong score normalization and placement
// resolution. All functions are pure; persistence and session bookkeeping
// live in the league service.
package scoring

// ChomboPenalty is the fixed point penalty applied per chombo unit.
const ChomboPenalty = 30.0

// Default team scoring configuration values.
const (
	DefaultStartPoint  = 30000
	DefaultTargetPoint = 30000
	DefaultUmaFirst    = 15
	DefaultUmaSecond   = 5
	DefaultUmaThird    = -5
	DefaultUmaFourth   = -15
)

// Config holds the per-team knobs that shape calculated scores.
type Config struct {
	TargetPoint   int
	Uma           [4]int // uma for placements 1..4
	ChomboEnabled bool
}

// DefaultConfig returns the standard league scoring configuration.
func DefaultConfig() Config {
	return Config{
		TargetPoint:   DefaultTargetPoint,
		Uma:           [4]int{DefaultUmaFirst, DefaultUmaSecond, DefaultUmaThird, DefaultUmaFourth},
		ChomboEnabled: true,
	}
}

// Base converts a raw chip score to base points against the target point.
func Base(score int64, targetPoint int) float64 {
	return float64(score-int64(targetPoint)) / 1000.0
}

// Calculate produces the calculated score for one player in one session.
// uma is the resolved (possibly tie-averaged) placement bonus. The chombo
// penalty applies per unit and only when the team has chombo enabled.
func Calculate(score int64, uma float64, chombo int, cfg Config) float64 {
	calculated := Base(score, cfg.TargetPoint) + uma
	if chombo > 0 && cfg.ChomboEnabled {
		calculated -= ChomboPenalty * float64(chombo)
	}
	return calculated
}
