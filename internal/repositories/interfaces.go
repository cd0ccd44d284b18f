package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/quizlevel/quiz-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	QuizID     *uint      `json:"quiz_id"`
	UserID     *string    `json:"user_id"`
	IsComplete *bool      `json:"is_complete"`
	DateFrom   *time.Time `json:"date_from"`
	DateTo     *time.Time `json:"date_to"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
	SortBy     string     `json:"sort_by"`    // "date_attempted", "score", "level_reached"
	SortOrder  string     `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====

type QuizRepository interface {
	FindOrCreateByTopic(ctx context.Context, topic string) (*models.Quiz, error)
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	List(ctx context.Context) ([]*models.Quiz, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error)
	GetByIDWithResponses(ctx context.Context, id uint) (*models.QuizAttempt, error)
	Update(ctx context.Context, attempt *models.QuizAttempt) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetByUser(ctx context.Context, userID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
}

type ResponseRepository interface {
	Create(ctx context.Context, response *models.QuestionResponse) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.QuestionResponse, error)
}

// Repository aggregates entity repositories behind one dependency.
type Repository interface {
	Quiz() QuizRepository
	Attempt() AttemptRepository
	Response() ResponseRepository
}

// IsNotFoundError checks whether a repository error means "no such row".
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
