package postgres

import (
	"github.com/quizlevel/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	quiz     repositories.QuizRepository
	attempt  repositories.AttemptRepository
	response repositories.ResponseRepository
}

// NewRepository wires the gorm-backed entity repositories.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		quiz:     NewQuizPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
		response: NewResponsePostgreSQL(db),
	}
}

func (r *repository) Quiz() repositories.QuizRepository {
	return r.quiz
}

func (r *repository) Attempt() repositories.AttemptRepository {
	return r.attempt
}

func (r *repository) Response() repositories.ResponseRepository {
	return r.response
}
