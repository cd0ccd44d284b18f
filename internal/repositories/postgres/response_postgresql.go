package postgres

import (
	"context"

	"github.com/quizlevel/quiz-service/internal/models"
	"github.com/quizlevel/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r ResponsePostgreSQL) Create(ctx context.Context, response *models.QuestionResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}

// GetByAttempt returns an attempt's responses in presentation order.
func (r ResponsePostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.QuestionResponse, error) {
	var responses []*models.QuestionResponse
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}
