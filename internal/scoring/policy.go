// Package scoring compares a retelling transcript against a story and its
// keyword universe and produces a bounded percentage with a breakdown.
package scoring

// Weights splits the base score between exact keyword matches, partial
// keyword matches and raw content-word overlap.
type Weights struct {
	Exact   float64
	Partial float64
	Content float64
}

// Policy holds every tunable constant of the scorer.
type Policy struct {
	Generic  Weights
	Explicit Weights

	// PartialCredit scales partial matches relative to exact ones.
	PartialCredit float64

	LengthBonusFloor float64
	LengthBonusScale float64

	CurveLow        float64
	CurveLowFactor  float64
	CurveHigh       float64
	CurveHighFactor float64

	// ExtractCap bounds the keyword universe derived from story text.
	ExtractCap int
	// MinCommonSubstring is the shortest shared run that counts as a partial
	// match for explicit keywords.
	MinCommonSubstring int

	PhoneticThreshold float64
	FuzzyThreshold    float64
}

// DefaultPolicy returns the reference weighting and curve.
func DefaultPolicy() Policy {
	return Policy{
		Generic:            Weights{Exact: 0.6, Partial: 0.2, Content: 0.2},
		Explicit:           Weights{Exact: 0.7, Partial: 0.2, Content: 0.1},
		PartialCredit:      0.5,
		LengthBonusFloor:   0.5,
		LengthBonusScale:   0.2,
		CurveLow:           0.2,
		CurveLowFactor:     1.2,
		CurveHigh:          0.4,
		CurveHighFactor:    1.3,
		ExtractCap:         20,
		MinCommonSubstring: 3,
		PhoneticThreshold:  0.70,
		FuzzyThreshold:     0.85,
	}
}

// Curve remaps a raw score into the more generous range used for reporting.
// Below CurveLow it is unchanged; each segment above a breakpoint is
// stretched by its factor starting from the mapped breakpoint.
func (p Policy) Curve(raw float64) float64 {
	switch {
	case raw < p.CurveLow:
		return raw
	case raw < p.CurveHigh:
		return p.CurveLow + (raw-p.CurveLow)*p.CurveLowFactor
	default:
		high := p.CurveLow + (p.CurveHigh-p.CurveLow)*p.CurveLowFactor
		return high + (raw-p.CurveHigh)*p.CurveHighFactor
	}
}

// LengthBonus rewards retellings that reach at least LengthBonusFloor of the
// story's content-word count.
func (p Policy) LengthBonus(userTokens, storyTokens int) float64 {
	if storyTokens <= 0 {
		return 0
	}
	ratio := float64(userTokens) / float64(storyTokens)
	if ratio > 1 {
		ratio = 1
	}
	bonus := ratio - p.LengthBonusFloor
	if bonus < 0 {
		return 0
	}
	return bonus * p.LengthBonusScale
}
