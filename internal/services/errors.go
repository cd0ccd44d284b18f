package services

import (
	"errors"

	apperrors "github.com/quizlevel/quiz-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Session errors
	ErrSessionNotFound   = errors.New("quiz session not found or expired")
	ErrNoActiveAttempt   = errors.New("no active attempt in session")
	ErrRefreshDetected   = errors.New("page refresh detected, attempt invalidated")
	ErrNoCurrentQuestion = errors.New("no question is currently being served")

	// Quiz/question errors
	ErrTopicNotFound    = errors.New("no questions available for topic")
	ErrQuestionNotFound = errors.New("question not found")

	// Attempt errors
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptComplete     = errors.New("attempt is complete, no further responses accepted")
	ErrAttemptAccessDenied = errors.New("access denied to attempt")

	// Progression errors
	ErrLevelComplete = errors.New("all questions for the level are answered")
	ErrInvalidLevel  = errors.New("invalid quiz level")
	ErrLevelLocked   = errors.New("level has not been unlocked")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTopicNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound)
}

// IsSessionGone checks if error means the session must be restarted from
// topic selection
func IsSessionGone(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNoActiveAttempt) ||
		errors.Is(err, ErrRefreshDetected)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAttemptComplete) ||
		errors.Is(err, ErrLevelComplete) ||
		errors.Is(err, ErrLevelLocked)
}
