package bank

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/quizlevel/quiz-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeQuestions(t *testing.T, questions []Question) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	raw, err := json.Marshal(questions)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func loadedBank(t *testing.T, questions []Question) *Bank {
	t.Helper()
	b := New(writeQuestions(t, questions), validator.New(), testLogger())
	require.NoError(t, b.Load())
	return b
}

func makeQuestions(topic string, level, count int) []Question {
	out := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, Question{
			ID:            fmt.Sprintf("%s-%d-%02d", topic, level, i),
			Topic:         topic,
			Level:         level,
			Text:          fmt.Sprintf("%s question %d", topic, i),
			Options:       []string{"alpha", "beta", "gamma", "delta"},
			CorrectAnswer: "alpha",
			Points:        level * 10,
		})
	}
	return out
}

func TestBank_LoadSkipsMalformedEntries(t *testing.T) {
	valid := makeQuestions("science", 1, 2)
	questions := append(valid,
		Question{
			// Correct answer is not one of the options.
			ID:            "bad-correct",
			Topic:         "science",
			Level:         1,
			Text:          "broken",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: "e",
			Points:        10,
		},
		Question{
			// Too few options for a 4-choice draw.
			ID:            "bad-options",
			Topic:         "science",
			Level:         1,
			Text:          "broken",
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: "a",
			Points:        10,
		},
		Question{
			// Duplicate of an already loaded id.
			ID:            valid[0].ID,
			Topic:         "science",
			Level:         1,
			Text:          "duplicate",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: "a",
			Points:        10,
		},
	)

	b := loadedBank(t, questions)

	assert.Equal(t, 2, b.Size())
	_, err := b.Get("bad-correct")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	_, err = b.Get("bad-options")
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	q, err := b.Get(valid[0].ID)
	require.NoError(t, err)
	assert.Equal(t, valid[0].Text, q.Text)
}

func TestBank_LoadMissingFile(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "absent.json"), validator.New(), testLogger())
	assert.Error(t, b.Load())
}

func TestBank_Topics(t *testing.T) {
	questions := append(makeQuestions("science", 1, 1), makeQuestions("history", 2, 1)...)
	b := loadedBank(t, questions)

	assert.Equal(t, []string{"history", "science"}, b.Topics())
}

func TestBank_SelectLevelQuestions(t *testing.T) {
	t.Run("small pool returns every question", func(t *testing.T) {
		b := loadedBank(t, makeQuestions("history", 2, 6))

		queue := b.SelectLevelQuestions("history", 2)
		assert.Len(t, queue, 6)

		seen := make(map[string]bool)
		for _, id := range queue {
			assert.False(t, seen[id], "queue repeats %s", id)
			seen[id] = true
		}
	})

	t.Run("large pool draws ten without replacement", func(t *testing.T) {
		b := loadedBank(t, makeQuestions("science", 1, 15))
		b.SetRandSource(rand.NewSource(42))

		queue := b.SelectLevelQuestions("science", 1)
		assert.Len(t, queue, 10)

		seen := make(map[string]bool)
		for _, id := range queue {
			assert.False(t, seen[id], "queue repeats %s", id)
			seen[id] = true
			_, err := b.Get(id)
			assert.NoError(t, err)
		}
	})

	t.Run("unknown level is empty", func(t *testing.T) {
		b := loadedBank(t, makeQuestions("science", 1, 5))
		assert.Empty(t, b.SelectLevelQuestions("science", 3))
	})
}

func TestBank_PresentOptions(t *testing.T) {
	q := Question{
		ID:            "sci-1-00",
		Topic:         "science",
		Level:         1,
		Text:          "pick one",
		Options:       []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"},
		CorrectAnswer: "delta",
		Points:        10,
	}
	b := loadedBank(t, []Question{q})
	b.SetRandSource(rand.NewSource(7))

	for i := 0; i < 20; i++ {
		options, err := b.PresentOptions(q)
		require.NoError(t, err)

		assert.Len(t, options, PresentedOptionCount)
		assert.Contains(t, options, q.CorrectAnswer)

		seen := make(map[string]bool)
		for _, opt := range options {
			assert.False(t, seen[opt], "duplicate option %s", opt)
			seen[opt] = true
			assert.Contains(t, q.Options, opt)
		}
	}
}

func TestBank_PresentOptionsTooFewDistractors(t *testing.T) {
	b := loadedBank(t, nil)
	q := Question{
		ID:            "thin",
		Options:       []string{"a", "b", "c"},
		CorrectAnswer: "a",
	}
	_, err := b.PresentOptions(q)
	assert.ErrorIs(t, err, ErrNotEnoughOptions)
}

func TestBank_LevelPoints(t *testing.T) {
	b := loadedBank(t, makeQuestions("science", 2, 3))

	assert.Equal(t, 20, b.LevelPoints("science", 2))
	assert.Equal(t, 10, b.LevelPoints("science", 4), "empty level falls back to 10")
}

func TestQuestion_Distractors(t *testing.T) {
	q := Question{
		Options:       []string{"alpha", "beta", "gamma", "delta"},
		CorrectAnswer: "beta",
	}
	assert.Equal(t, []string{"alpha", "gamma", "delta"}, q.Distractors())
}
