package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/models"
	"github.com/quizlevel/quiz-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

type attemptService struct {
	repo   repositories.Repository
	bank   *bank.Bank
	logger *slog.Logger
}

func NewAttemptService(repo repositories.Repository, questionBank *bank.Bank, logger *slog.Logger) AttemptService {
	return &attemptService{
		repo:   repo,
		bank:   questionBank,
		logger: logger,
	}
}

// GetHistory lists a user's attempts, newest first by default.
func (s *attemptService) GetHistory(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*AttemptSummary, int64, error) {
	attempts, total, err := s.repo.Attempt().GetByUser(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	summaries := make([]*AttemptSummary, len(attempts))
	for i, attempt := range attempts {
		summaries[i] = &AttemptSummary{
			AttemptID:     attempt.ID,
			Topic:         attempt.Quiz.Topic,
			Score:         attempt.Score,
			LevelReached:  attempt.LevelReached,
			IsComplete:    attempt.IsComplete,
			DateAttempted: attempt.DateAttempted,
		}
	}
	return summaries, total, nil
}

// GetDetail returns the full breakdown of an attempt, rebuilding each row
// from the authoritative stored presented options.
func (s *attemptService) GetDetail(ctx context.Context, attemptID uint, userID *string) (*AttemptDetail, error) {
	attempt, err := s.repo.Attempt().GetByIDWithResponses(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if !canAccessAttempt(attempt, userID) {
		return nil, ErrAttemptAccessDenied
	}

	detail := &AttemptDetail{
		AttemptSummary: AttemptSummary{
			AttemptID:     attempt.ID,
			Topic:         attempt.Quiz.Topic,
			Score:         attempt.Score,
			LevelReached:  attempt.LevelReached,
			IsComplete:    attempt.IsComplete,
			DateAttempted: attempt.DateAttempted,
		},
	}

	for i := range attempt.Responses {
		if row, ok := buildQuestionDetail(s.bank, s.logger, &attempt.Responses[i]); ok {
			detail.Responses = append(detail.Responses, row)
		}
	}
	return detail, nil
}

// canAccessAttempt allows the owner of an attempt through; anonymous attempts
// have no owner to check against.
func canAccessAttempt(attempt *models.QuizAttempt, userID *string) bool {
	if attempt.UserID == nil {
		return true
	}
	return userID != nil && *userID == *attempt.UserID
}

// ExportResults renders an attempt's responses as CSV or XLSX and returns
// the payload with its content type.
func (s *attemptService) ExportResults(ctx context.Context, attemptID uint, format string, userID *string) ([]byte, string, error) {
	detail, err := s.GetDetail(ctx, attemptID, userID)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case "", "csv":
		payload, err := s.exportCSV(detail)
		return payload, "text/csv", err
	case "xlsx":
		payload, err := s.exportExcel(detail)
		return payload, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	default:
		return nil, "", NewValidationError("format", "must be csv or xlsx", format)
	}
}

var exportHeader = []string{"question_id", "question", "user_answer", "correct_answer", "is_correct", "skipped", "time_taken", "points"}

func exportRow(row QuestionDetail) []string {
	answer := ""
	if row.UserAnswer != nil {
		answer = *row.UserAnswer
	}
	return []string{
		row.QuestionID,
		row.Text,
		answer,
		row.CorrectAnswer,
		strconv.FormatBool(row.IsCorrect),
		strconv.FormatBool(row.Skipped),
		strconv.Itoa(row.TimeTaken),
		strconv.Itoa(row.Points),
	}
}

func (s *attemptService) exportCSV(detail *AttemptDetail) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range detail.Responses {
		if err := writer.Write(exportRow(row)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Info("Exported attempt results",
		"attempt_id", detail.AttemptID,
		"format", "csv",
		"rows", len(detail.Responses))

	return buf.Bytes(), nil
}

func (s *attemptService) exportExcel(detail *AttemptDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Results"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, name := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, row := range detail.Responses {
		for col, value := range exportRow(row) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exported attempt results",
		"attempt_id", detail.AttemptID,
		"format", "xlsx",
		"rows", len(detail.Responses))

	return buf.Bytes(), nil
}
