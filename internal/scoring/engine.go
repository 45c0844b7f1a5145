package scoring

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Input carries the attempt metadata the score is derived from.
type Input struct {
	TimeSpentMinutes float64
	ViolationCount   int
	AttemptCount     int
}

type Result struct {
	Score    int    `json:"score"`
	Passed   bool   `json:"passed"`
	Feedback string `json:"feedback"`
}

// Evaluate computes the score for one completed attempt. The adjustments
// are deterministic; only the base draw in [40,80) varies between calls
// with the same rng state. The base is a stand-in for real answer grading
// (form-response evaluation has not been wired in), so callers must not
// read meaning into it.
func Evaluate(p Profile, in Input, rng *rand.Rand) Result {
	score := 40 + rng.Float64()*40

	// Pacing relative to the expected two minutes per question.
	expected := float64(p.TotalQuestions) * 2
	ratio := in.TimeSpentMinutes / expected
	switch {
	case ratio < 0.5:
		score -= 5 // suspiciously fast
	case ratio > 2.0:
		score -= 3 // struggling
	case ratio >= 0.8 && ratio <= 1.2:
		score += 5 // well paced
	}

	switch {
	case in.ViolationCount == 0:
	case in.ViolationCount <= 2:
		score -= 5
	case in.ViolationCount <= 5:
		score -= 10
	default:
		score -= 20
	}

	switch {
	case in.AttemptCount <= 1:
	case in.AttemptCount == 2:
		score -= 3
	case in.AttemptCount == 3:
		score -= 7
	default:
		score -= 15
	}

	switch p.Difficulty {
	case Intermediate:
		score += 2
	case Advanced:
		score += 5
	}

	final := int(math.Round(math.Min(100, math.Max(0, score))))
	passed := final >= p.PassingScore

	return Result{
		Score:    final,
		Passed:   passed,
		Feedback: buildFeedback(final, p, in, ratio, passed),
	}
}

func buildFeedback(score int, p Profile, in Input, ratio float64, passed bool) string {
	var b strings.Builder

	if passed {
		fmt.Fprintf(&b, "You passed with a score of %d.", score)
	} else {
		fmt.Fprintf(&b, "You scored %d; the passing score is %d.", score, p.PassingScore)
	}

	if in.ViolationCount > 0 {
		fmt.Fprintf(&b, " %d integrity violation(s) were recorded during the session and reduced your score.", in.ViolationCount)
	}
	if in.AttemptCount > 1 {
		fmt.Fprintf(&b, " This was attempt %d; repeated attempts carry a penalty.", in.AttemptCount)
	}

	switch {
	case ratio < 0.5:
		b.WriteString(" You finished unusually quickly - take time to read each question.")
	case ratio > 2.0:
		b.WriteString(" You took considerably longer than expected for this assessment.")
	case ratio >= 0.8 && ratio <= 1.2:
		b.WriteString(" Your pacing was right on target.")
	}

	if !passed {
		b.WriteString(" Review the material and try again.")
	}

	return b.String()
}
