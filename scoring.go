package main

import "math"

const (
	basePoints = 1000
	maxGuesses = 5
)

// calculateScore maps a round outcome to points. The first guess is worth
// full points, each further guess costs 15%, floored at 25%. Elapsed time
// does not affect the score; see scoreBreakdown for the diagnostic decay.
func calculateScore(correct bool, guessesUsed int, timeSeconds float64) int {
	if !correct {
		return 0
	}

	guessMultiplier := max(0.25, 1.0-float64(guessesUsed-1)*0.15)

	return int(basePoints * guessMultiplier)
}

// ScoreBreakdown details how a score was computed, for display purposes.
type ScoreBreakdown struct {
	Score           int     `json:"score"`
	BasePoints      int     `json:"base_points"`
	GuessMultiplier float64 `json:"guess_multiplier"`
	TimeMultiplier  float64 `json:"time_multiplier"`
	GuessesUsed     int     `json:"guesses_used"`
	TimeSeconds     float64 `json:"time_seconds"`
}

// scoreBreakdown reports the multipliers behind a score. The time decay
// shown here (logarithmic after 10s, floored at 30%) is informational only
// and is not applied by calculateScore.
func scoreBreakdown(score, guessesUsed int, timeSeconds float64) ScoreBreakdown {
	guessMultiplier := max(0.25, 1.0-float64(guessesUsed-1)*0.15)

	timeMultiplier := 1.0
	if timeSeconds > 10 {
		decay := math.Log(timeSeconds/10+1) / math.Log(13)
		timeMultiplier = max(0.3, 1.0-decay*0.7)
	}

	return ScoreBreakdown{
		Score:           score,
		BasePoints:      basePoints,
		GuessMultiplier: math.Round(guessMultiplier*100) / 100,
		TimeMultiplier:  math.Round(timeMultiplier*100) / 100,
		GuessesUsed:     guessesUsed,
		TimeSeconds:     math.Round(timeSeconds*10) / 10,
	}
}
