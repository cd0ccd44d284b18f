package services

import (
	"context"
	"time"

	"github.com/quizlevel/quiz-service/internal/repositories"
)

// ===== REQUEST STRUCTURES =====

type StartQuizRequest struct {
	Topic string `json:"topic" validate:"required,quiz_topic"`
}

type SubmitAnswerRequest struct {
	Answer    string `json:"answer" validate:"omitempty,max=200"`
	TimeTaken int    `json:"time_taken" validate:"time_taken"`
}

type AdvanceLevelRequest struct {
	Level int `json:"level" validate:"required,quiz_level"`
}

// ===== RESPONSE STRUCTURES =====

// StartQuizResponse carries the new session binding back to the client.
type StartQuizResponse struct {
	SessionToken string `json:"session_token"`
	AttemptID    uint   `json:"attempt_id"`
	Topic        string `json:"topic"`
	Level        int    `json:"level"`
}

// QuestionView is the value object rendered for one served question.
type QuestionView struct {
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	Level          int      `json:"level"`
	QuestionNum    int      `json:"question_num"`
	TotalQuestions int      `json:"total_questions"`
	Timer          int      `json:"timer"`
}

// SubmitResult reports the outcome of a scored submission or skip.
type SubmitResult struct {
	IsCorrect         bool `json:"is_correct"`
	Points            int  `json:"points"`
	Score             int  `json:"score"`
	QuestionsAnswered int  `json:"questions_answered"`
	LevelFinished     bool `json:"level_finished"`
}

// QuestionDetail is one row of a level or attempt breakdown. Options is the
// stored presented set, regenerated only as a fallback for legacy rows.
type QuestionDetail struct {
	QuestionID    string   `json:"question_id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	UserAnswer    *string  `json:"user_answer"`
	IsCorrect     bool     `json:"is_correct"`
	TimeTaken     int      `json:"time_taken"`
	Points        int      `json:"points"`
	Skipped       bool     `json:"skipped"`
}

// LevelResult is the terminal summary of one level.
type LevelResult struct {
	Passed              bool             `json:"passed"`
	Level               int              `json:"level"`
	Score               int              `json:"score"`
	TotalCorrect        int              `json:"total_correct"`
	TotalQuestions      int              `json:"total_questions"`
	PercentageCorrect   float64          `json:"percentage_correct"`
	PercentagePoints    float64          `json:"percentage_points"`
	TotalPossiblePoints int              `json:"total_possible_points"`
	NextLevel           *int             `json:"next_level,omitempty"`
	QuizComplete        bool             `json:"quiz_complete"`
	Questions           []QuestionDetail `json:"questions"`
}

// QuizSummary is the terminal summary of a whole attempt.
type QuizSummary struct {
	AttemptID     uint      `json:"attempt_id"`
	Topic         string    `json:"topic"`
	Score         int       `json:"score"`
	LevelReached  int       `json:"level_reached"`
	IsComplete    bool      `json:"is_complete"`
	DateAttempted time.Time `json:"date_attempted"`
}

// AttemptSummary is one history row.
type AttemptSummary struct {
	AttemptID     uint      `json:"attempt_id"`
	Topic         string    `json:"topic"`
	Score         int       `json:"score"`
	LevelReached  int       `json:"level_reached"`
	IsComplete    bool      `json:"is_complete"`
	DateAttempted time.Time `json:"date_attempted"`
}

// AttemptDetail is the full attempt breakdown for profile/admin views.
type AttemptDetail struct {
	AttemptSummary
	Responses []QuestionDetail `json:"responses"`
}

// ===== SERVICE INTERFACES =====

// QuizService is the quiz engine: it owns the session state machine from
// start through level progression to completion.
type QuizService interface {
	Topics(ctx context.Context) []string
	StartQuiz(ctx context.Context, req *StartQuizRequest, userID *string) (*StartQuizResponse, error)
	NextQuestion(ctx context.Context, token string) (*QuestionView, error)
	SubmitAnswer(ctx context.Context, token string, req *SubmitAnswerRequest) (*SubmitResult, error)
	SkipQuestion(ctx context.Context, token string) (*SubmitResult, error)
	CompleteLevel(ctx context.Context, token string) (*LevelResult, error)
	AdvanceLevel(ctx context.Context, token string, req *AdvanceLevelRequest) error
	CompleteQuiz(ctx context.Context, token string) (*QuizSummary, error)
}

// AttemptService is the read side over persisted attempts.
type AttemptService interface {
	GetHistory(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*AttemptSummary, int64, error)
	GetDetail(ctx context.Context, attemptID uint, userID *string) (*AttemptDetail, error)
	ExportResults(ctx context.Context, attemptID uint, format string, userID *string) ([]byte, string, error)
}
