package bingo

// Difficulty tiers at which the expected capture rate starts to decay and
// where it bottoms out.
const (
	difficultyDecayStart = 7
	difficultyDecayEnd   = 17
	difficultyDecayStep  = 0.03
	difficultyFloor      = 0.7
)

// DifficultyFix returns the expected-success weight of a spell. It equals
// max_cap_rate below tier 7, decays 3% per tier up to tier 17 and is held at
// 70% of max_cap_rate from there on.
func DifficultyFix(s Spell) float64 {
	switch {
	case s.Difficulty < difficultyDecayStart:
		return s.MaxCapRate
	case s.Difficulty < difficultyDecayEnd:
		return s.MaxCapRate * (1.0 - (s.Difficulty-difficultyDecayStart)*difficultyDecayStep)
	default:
		return s.MaxCapRate * difficultyFloor
	}
}
