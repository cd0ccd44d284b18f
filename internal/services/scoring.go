package services

import (
	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/models"
)

// Score grades a single submission. It is deterministic and side-effect-free;
// persisting the resulting response is a separate step.
//
// Rules:
//   - no answer, or timeTaken at or over the timeout: no penalty, 0 points
//   - correct answer in time: full question points
//   - an actively wrong answer: negative marking, minus half the question
//     points (floored)
func Score(q bank.Question, answer *string, timeTaken int) (isCorrect bool, points int) {
	if answer == nil || *answer == "" || timeTaken >= models.AnswerTimeout {
		return false, 0
	}
	if *answer == q.CorrectAnswer {
		return true, q.Points
	}
	return false, -(q.Points / 2)
}
