package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a quiz lifecycle event
type EventType string

const (
	EventAttemptStarted EventType = "quiz.attempt_started"
	EventLevelCompleted EventType = "quiz.level_completed"
	EventQuizCompleted  EventType = "quiz.completed"
	EventQuizFailed     EventType = "quiz.failed"
)

// QuizEvent is the envelope published for every lifecycle transition
type QuizEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// AttemptStartedEvent is emitted when a new attempt begins
type AttemptStartedEvent struct {
	AttemptID uint    `json:"attempt_id"`
	QuizID    uint    `json:"quiz_id"`
	Topic     string  `json:"topic"`
	UserID    *string `json:"user_id,omitempty"`
}

// LevelCompletedEvent is emitted when a level's 10 questions are graded
type LevelCompletedEvent struct {
	AttemptID  uint    `json:"attempt_id"`
	Topic      string  `json:"topic"`
	Level      int     `json:"level"`
	Score      int     `json:"score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

// QuizCompletedEvent is emitted when an attempt reaches a terminal state
type QuizCompletedEvent struct {
	AttemptID    uint   `json:"attempt_id"`
	Topic        string `json:"topic"`
	LevelReached int    `json:"level_reached"`
	Score        int    `json:"score"`
	Passed       bool   `json:"passed"`
}

// NewQuizEvent builds an envelope with the standard metadata filled in
func NewQuizEvent(eventType EventType, data interface{}) *QuizEvent {
	return &QuizEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "quiz-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
