package bank

import (
	"errors"
	"fmt"
)

// Question is a single bank entry. The bank is a static JSON source, not a
// database table; entries are immutable once loaded.
type Question struct {
	ID            string   `json:"id" validate:"required,max=50"`
	Topic         string   `json:"topic" validate:"required,max=50"`
	Level         int      `json:"level" validate:"required,min=1,max=4"`
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=4,dive,required"`
	CorrectAnswer string   `json:"correct_answer" validate:"required,max=200"`
	Points        int      `json:"points" validate:"required,min=1"`
}

// PresentedOptionCount is the number of choices shown per question: the
// correct answer plus three distractors.
const PresentedOptionCount = 4

var (
	ErrQuestionNotFound = errors.New("question not found in bank")
	ErrNotEnoughOptions = errors.New("question has fewer than 3 incorrect options")
	ErrCorrectNotInBank = errors.New("correct answer missing from question options")
)

// Distractors returns the incorrect options of the question.
func (q *Question) Distractors() []string {
	out := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt != q.CorrectAnswer {
			out = append(out, opt)
		}
	}
	return out
}

// check validates structural rules that validator tags cannot express.
func (q *Question) check() error {
	found := false
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("question %s: %w", q.ID, ErrCorrectNotInBank)
	}
	if len(q.Distractors()) < PresentedOptionCount-1 {
		return fmt.Errorf("question %s: %w", q.ID, ErrNotEnoughOptions)
	}
	return nil
}
