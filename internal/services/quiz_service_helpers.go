package services

import (
	"log/slog"

	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/models"
)

// filterLevelResponses keeps the responses belonging to the given topic and
// level, in stored order, capped at the level's question budget. Responses
// whose question id no longer resolves in the bank are dropped.
func (s *quizService) filterLevelResponses(responses []*models.QuestionResponse, topic string, level int) []*models.QuestionResponse {
	return filterLevelResponses(s.bank, responses, topic, level)
}

func (s *quizService) buildQuestionDetail(r *models.QuestionResponse) (QuestionDetail, bool) {
	return buildQuestionDetail(s.bank, s.logger, r)
}

func filterLevelResponses(b *bank.Bank, responses []*models.QuestionResponse, topic string, level int) []*models.QuestionResponse {
	var out []*models.QuestionResponse
	for _, r := range responses {
		q, err := b.Get(r.QuestionID)
		if err != nil {
			continue
		}
		if q.Topic != topic || q.Level != level {
			continue
		}
		out = append(out, r)
		if len(out) == models.QuestionsPerLevel {
			break
		}
	}
	return out
}

// buildQuestionDetail assembles one breakdown row. The stored presented
// options are authoritative; regeneration is only a fallback for legacy rows
// without stored options or with corrupt JSON, and is logged as a
// data-quality condition.
func buildQuestionDetail(b *bank.Bank, logger *slog.Logger, r *models.QuestionResponse) (QuestionDetail, bool) {
	question, err := b.Get(r.QuestionID)
	if err != nil {
		return QuestionDetail{}, false
	}

	options, err := r.DecodePresentedOptions()
	if err != nil {
		logger.Warn("Stored presented options unusable, regenerating",
			"response_id", r.ID,
			"question_id", r.QuestionID,
			"error", err)
		options, err = b.PresentOptions(question)
		if err != nil {
			return QuestionDetail{}, false
		}
	}

	return QuestionDetail{
		QuestionID:    question.ID,
		Text:          question.Text,
		Options:       options,
		CorrectAnswer: question.CorrectAnswer,
		UserAnswer:    r.UserAnswer,
		IsCorrect:     r.IsCorrect,
		TimeTaken:     r.TimeTaken,
		Points:        r.Points,
		Skipped:       r.Skipped(),
	}, true
}
