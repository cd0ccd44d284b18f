package bank

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/quizlevel/quiz-service/internal/errors"
	"github.com/xuri/excelize/v2"
)

// ImportResult reports what an import run did, row by row.
type ImportResult struct {
	TotalRows    int                         `json:"total_rows"`
	SuccessCount int                         `json:"success_count"`
	ErrorCount   int                         `json:"error_count"`
	Errors       []apperrors.ValidationError `json:"errors,omitempty"`
	Questions    []Question                  `json:"questions,omitempty"`
}

// Expected import columns, in order.
var importHeader = []string{"id", "topic", "level", "text", "options", "correct_answer", "points"}

// optionSeparator splits the options cell into individual choices.
const optionSeparator = "|"

// ImportFromFile parses a question file by extension and merges the valid
// rows into the bank source, then reloads the bank.
func (b *Bank) ImportFromFile(reader io.Reader, filename string) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var result *ImportResult
	var err error
	switch ext {
	case ".csv":
		result, err = b.parseCSV(reader)
	case ".xlsx", ".xls":
		result, err = b.parseExcel(reader)
	default:
		return nil, apperrors.NewValidationError("file", "unsupported file format", ext)
	}
	if err != nil {
		return nil, err
	}

	if len(result.Questions) > 0 {
		if err := b.merge(result.Questions); err != nil {
			return nil, err
		}
	}

	b.logger.Info("Question import finished",
		"filename", filename,
		"total_rows", result.TotalRows,
		"imported", result.SuccessCount,
		"errors", result.ErrorCount)

	return result, nil
}

func (b *Bank) parseCSV(reader io.Reader) (*ImportResult, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = len(importHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return b.parseRows(rows), nil
}

func (b *Bank) parseExcel(reader io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return b.parseRows(rows), nil
}

// parseRows converts raw rows into validated questions, skipping a leading
// header row when present.
func (b *Bank) parseRows(rows [][]string) *ImportResult {
	result := &ImportResult{}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && strings.EqualFold(strings.TrimSpace(rows[0][0]), importHeader[0]) {
		start = 1
	}

	for i := start; i < len(rows); i++ {
		result.TotalRows++
		q, rowErrs := b.parseRow(rows[i], i+1)
		if len(rowErrs) > 0 {
			result.ErrorCount++
			result.Errors = append(result.Errors, rowErrs...)
			continue
		}
		result.SuccessCount++
		result.Questions = append(result.Questions, q)
	}
	return result
}

func (b *Bank) parseRow(row []string, rowNum int) (Question, []apperrors.ValidationError) {
	var errs []apperrors.ValidationError
	field := func(name string, err string, value interface{}) {
		errs = append(errs, *apperrors.NewValidationError(
			fmt.Sprintf("row %d: %s", rowNum, name), err, value))
	}

	if len(row) < len(importHeader) {
		field("row", "has too few columns", len(row))
		return Question{}, errs
	}

	level, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		field("level", "must be a number", row[2])
	}
	points, err := strconv.Atoi(strings.TrimSpace(row[6]))
	if err != nil {
		field("points", "must be a number", row[6])
	}

	options := strings.Split(row[4], optionSeparator)
	for i := range options {
		options[i] = strings.TrimSpace(options[i])
	}

	q := Question{
		ID:            strings.TrimSpace(row[0]),
		Topic:         strings.TrimSpace(row[1]),
		Level:         level,
		Text:          strings.TrimSpace(row[3]),
		Options:       options,
		CorrectAnswer: strings.TrimSpace(row[5]),
		Points:        points,
	}

	if err := b.validator.Validate(q); err != nil {
		if converted, ok := err.(apperrors.ValidationErrors); ok {
			for _, ve := range converted {
				field(ve.Field, ve.Message, ve.Value)
			}
		} else {
			field("question", err.Error(), nil)
		}
	}
	if len(errs) == 0 {
		if err := q.check(); err != nil {
			field("options", err.Error(), nil)
		}
	}
	return q, errs
}

// merge appends new questions to the bank source file and reloads. Existing
// ids win; imported duplicates are dropped.
func (b *Bank) merge(questions []Question) error {
	existing := b.All()

	seen := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		seen[q.ID] = struct{}{}
	}

	merged := existing
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			b.logger.Warn("Import skipped question with existing id", "question_id", q.ID)
			continue
		}
		seen[q.ID] = struct{}{}
		merged = append(merged, q)
	}

	raw, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode question bank: %w", err)
	}
	if err := os.WriteFile(b.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write question bank: %w", err)
	}
	return b.Reload()
}

// ExportCSV renders the whole bank in the import column layout.
func (b *Bank) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(importHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, q := range b.All() {
		row := []string{
			q.ID,
			q.Topic,
			strconv.Itoa(q.Level),
			q.Text,
			strings.Join(q.Options, optionSeparator),
			q.CorrectAnswer,
			strconv.Itoa(q.Points),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportExcel renders the whole bank as an XLSX workbook.
func (b *Bank) ExportExcel() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Questions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, name := range importHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, q := range b.All() {
		values := []interface{}{
			q.ID, q.Topic, q.Level, q.Text,
			strings.Join(q.Options, optionSeparator),
			q.CorrectAnswer, q.Points,
		}
		for col, value := range values {
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
	return buf.Bytes(), nil
}
