package postgres

import (
	"context"

	"github.com/quizlevel/quiz-service/internal/models"
	"github.com/quizlevel/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByIDWithResponses(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := a.db.WithContext(ctx).
		Preload("Quiz").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_responses.id ASC")
		}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) Update(ctx context.Context, attempt *models.QuizAttempt) error {
	return a.db.WithContext(ctx).Save(attempt).Error
}

func (a AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var attempts []*models.QuizAttempt
	var total int64

	// apply filters first
	query := a.db.WithContext(ctx).Model(&models.QuizAttempt{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then pagination and sorting
	query = a.applyPaginationAndSort(query, filters)

	if err := query.Preload("Quiz").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a AttemptPostgreSQL) GetByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	filters.UserID = &userID
	return a.List(ctx, filters)
}

func (a AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.IsComplete != nil {
		query = query.Where("is_complete = ?", *filters.IsComplete)
	}
	if filters.DateFrom != nil {
		query = query.Where("date_attempted >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("date_attempted <= ?", *filters.DateTo)
	}
	return query
}

func (a AttemptPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "score", "level_reached", "date_attempted":
	default:
		sortBy = "date_attempted"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
