package services

import "github.com/quizlevel/quiz-service/internal/models"

// LevelOutcome is the graded result of one level's responses.
type LevelOutcome struct {
	RawScore      int     // signed sum of response points
	DisplayScore  int     // raw score floored at 0, what the user sees
	TotalPossible int     // 10 questions times the level's per-question points
	Percentage    float64 // display score as a percentage of total possible
	Passed        bool
}

// EvaluateLevel computes the pass/fail outcome for a level from the signed
// points of its responses and the level's per-question point value. The
// displayed score is floored at 0 and the passing threshold applies to the
// floored score; exactly 60% passes.
func EvaluateLevel(points []int, levelPoints int) LevelOutcome {
	raw := 0
	for _, p := range points {
		raw += p
	}

	display := raw
	if display < 0 {
		display = 0
	}

	total := models.QuestionsPerLevel * levelPoints
	percentage := 0.0
	if total > 0 {
		percentage = float64(display) / float64(total) * 100
	}

	return LevelOutcome{
		RawScore:      raw,
		DisplayScore:  display,
		TotalPossible: total,
		Percentage:    percentage,
		Passed:        percentage >= models.PassingPercent,
	}
}
