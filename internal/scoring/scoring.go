package scoring

import "math"

const (
	FooledBonus90 = 50
	FooledBonus70 = 20

	VoteWeightDivisor = 10
	VoteWeightCap     = 3.0

	DetectiveParticipation     = 5
	DetectiveCorrect           = 20
	DetectiveSharpEye          = 50
	DetectiveSharpEyeThreshold = 30.0
)

// LiarScore rewards an author for the share of voters that picked a true
// statement, weighted by participation up to VoteWeightCap.
func LiarScore(percentFooled float64, totalVotes int64) int64 {
	base := clampPercent(percentFooled)

	// Strictly greater-than: exactly 90 only earns the lower tier.
	switch {
	case base > 90:
		base += FooledBonus90
	case base > 70:
		base += FooledBonus70
	}

	return int64(math.Round(base * VoteWeight(totalVotes)))
}

// VoteWeight grows linearly with the number of voters and is capped.
func VoteWeight(totalVotes int64) float64 {
	if totalVotes < 0 {
		totalVotes = 0
	}
	return math.Min(1+float64(totalVotes)/VoteWeightDivisor, VoteWeightCap)
}

// DetectiveScore rewards a voter. percentCorrect is the post-wide share of
// correct guesses; spotting a lie that fooled most people is worth more.
func DetectiveScore(correct bool, percentCorrect float64) int64 {
	if !correct {
		return DetectiveParticipation
	}
	if clampPercent(percentCorrect) < DetectiveSharpEyeThreshold {
		return DetectiveSharpEye
	}
	return DetectiveCorrect
}

func clampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
