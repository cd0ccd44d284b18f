package postgres

import (
	"context"

	"github.com/quizlevel/quiz-service/internal/models"
	"github.com/quizlevel/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

func (q QuizPostgreSQL) FindOrCreateByTopic(ctx context.Context, topic string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).
		Where(models.Quiz{Topic: topic}).
		FirstOrCreate(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q QuizPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q QuizPostgreSQL) List(ctx context.Context) ([]*models.Quiz, error) {
	var quizzes []*models.Quiz
	if err := q.db.WithContext(ctx).Order("topic asc").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}
