package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// MaxLevel is the highest difficulty level of a quiz.
	MaxLevel = 4
	// QuestionsPerLevel is the number of questions served per level.
	QuestionsPerLevel = 10
	// PassingPercent is the minimum percentage of level points needed to advance.
	PassingPercent = 60.0
	// AnswerTimeout is the per-question time budget in seconds; submissions at
	// or over it score as a timeout.
	AnswerTimeout = 30
)

// Quiz is a topic row; attempts hang off it.
type Quiz struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Topic     string         `json:"topic" gorm:"not null;size:50;uniqueIndex" validate:"required,min=1,max=50"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Attempts []QuizAttempt `json:"attempts,omitempty" gorm:"foreignKey:QuizID"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizAttempt is one user's run through a topic across levels. UserID is the
// external identity subject and is nil for anonymous attempts.
type QuizAttempt struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        *string   `json:"user_id" gorm:"size:100;index"`
	QuizID        uint      `json:"quiz_id" gorm:"not null;index"`
	LevelReached  int       `json:"level_reached" gorm:"default:1" validate:"omitempty,min=1,max=4"`
	Score         int       `json:"score" gorm:"default:0"`
	DateAttempted time.Time `json:"date_attempted" gorm:"autoCreateTime"`
	IsComplete    bool      `json:"is_complete" gorm:"default:false;index"`

	Quiz      Quiz               `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	Responses []QuestionResponse `json:"responses,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuestionResponse records a single question interaction. Exactly one row
// exists per question presented to an attempt, in presentation order, and
// PresentedOptions is the authoritative option set shown to the user.
type QuestionResponse struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	AttemptID  uint    `json:"attempt_id" gorm:"not null;index"`
	QuestionID string  `json:"question_id" gorm:"not null;size:50"`
	UserAnswer *string `json:"user_answer" gorm:"size:200"`
	IsCorrect  bool    `json:"is_correct" gorm:"default:false"`
	TimeTaken  int     `json:"time_taken"`
	Points     int     `json:"points" gorm:"default:0"`

	// Ordered JSONB array of the 4 options as displayed. Nullable for legacy
	// rows written before options were frozen at presentation time.
	PresentedOptions datatypes.JSON `json:"presented_options" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`

	Attempt QuizAttempt `json:"-" gorm:"foreignKey:AttemptID"`
}

func (QuestionResponse) TableName() string {
	return "question_responses"
}

// Skipped reports whether the question was skipped (no answer recorded).
func (r *QuestionResponse) Skipped() bool {
	return r.UserAnswer == nil
}

// DecodePresentedOptions returns the stored option set. It fails for legacy
// rows without stored options or rows holding unparsable JSON; callers fall
// back to regenerating a fresh draw in that case.
func (r *QuestionResponse) DecodePresentedOptions() ([]string, error) {
	if len(r.PresentedOptions) == 0 {
		return nil, ErrNoPresentedOptions
	}
	var options []string
	if err := json.Unmarshal(r.PresentedOptions, &options); err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, ErrNoPresentedOptions
	}
	return options, nil
}

// EncodePresentedOptions freezes the displayed option set onto the response.
func (r *QuestionResponse) EncodePresentedOptions(options []string) error {
	raw, err := json.Marshal(options)
	if err != nil {
		return err
	}
	r.PresentedOptions = raw
	return nil
}
