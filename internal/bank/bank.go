package bank

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/quizlevel/quiz-service/internal/validator"
)

// Bank is an in-memory view over the static question source. Loading swaps
// the whole index atomically; lookups are read-only after that.
type Bank struct {
	path      string
	logger    *slog.Logger
	validator *validator.Validator

	mu      sync.RWMutex
	byID    map[string]Question
	byGroup map[groupKey][]string // ordered question ids per (topic, level)

	rngMu sync.Mutex
	rng   *rand.Rand
}

type groupKey struct {
	Topic string
	Level int
}

func New(path string, v *validator.Validator, logger *slog.Logger) *Bank {
	return &Bank{
		path:      path,
		logger:    logger,
		validator: v,
		byID:      make(map[string]Question),
		byGroup:   make(map[groupKey][]string),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Load reads and indexes the question source. Entries failing validation are
// skipped and logged rather than failing the whole load; a later lookup of a
// skipped id reports ErrQuestionNotFound.
func (b *Bank) Load() error {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("failed to read question bank %s: %w", b.path, err)
	}

	var questions []Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return fmt.Errorf("failed to parse question bank %s: %w", b.path, err)
	}

	b.index(questions)
	return nil
}

// Reload re-reads the source, e.g. after an import merged new questions.
func (b *Bank) Reload() error {
	return b.Load()
}

func (b *Bank) index(questions []Question) {
	byID := make(map[string]Question, len(questions))
	byGroup := make(map[groupKey][]string)

	skipped := 0
	for _, q := range questions {
		if err := b.validator.ValidateStruct(q); err != nil {
			b.logger.Warn("Skipping malformed bank question", "question_id", q.ID, "error", err)
			skipped++
			continue
		}
		if err := q.check(); err != nil {
			b.logger.Warn("Skipping malformed bank question", "question_id", q.ID, "error", err)
			skipped++
			continue
		}
		if _, dup := byID[q.ID]; dup {
			b.logger.Warn("Skipping duplicate bank question", "question_id", q.ID)
			skipped++
			continue
		}
		byID[q.ID] = q
		key := groupKey{Topic: q.Topic, Level: q.Level}
		byGroup[key] = append(byGroup[key], q.ID)
	}

	b.mu.Lock()
	b.byID = byID
	b.byGroup = byGroup
	b.mu.Unlock()

	b.logger.Info("Question bank loaded",
		"path", b.path,
		"questions", len(byID),
		"skipped", skipped)
}

// Get returns a question by id.
func (b *Bank) Get(id string) (Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.byID[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q, nil
}

// Topics returns the distinct topics in the bank, sorted.
func (b *Bank) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{})
	var topics []string
	for key := range b.byGroup {
		if _, ok := seen[key.Topic]; ok {
			continue
		}
		seen[key.Topic] = struct{}{}
		topics = append(topics, key.Topic)
	}
	sort.Strings(topics)
	return topics
}

// Size returns the number of loaded questions.
func (b *Bank) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

// All returns every loaded question. Used by the exporter.
func (b *Bank) All() []Question {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Question, 0, len(b.byID))
	for _, q := range b.byID {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SelectLevelQuestions returns the fixed question queue for a level: up to 10
// ids matching the exact (topic, level), drawn uniformly without replacement
// when more than 10 qualify, shuffled on every (re)entry of the level.
func (b *Bank) SelectLevelQuestions(topic string, level int) []string {
	b.mu.RLock()
	ids := b.byGroup[groupKey{Topic: topic, Level: level}]
	pool := make([]string, len(ids))
	copy(pool, ids)
	b.mu.RUnlock()

	b.rngMu.Lock()
	defer b.rngMu.Unlock()

	b.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > 10 {
		pool = pool[:10]
	}
	return pool
}

// PresentOptions builds the 4 choices shown for a question: the correct
// answer plus 3 distractors drawn without replacement, shuffled.
func (b *Bank) PresentOptions(q Question) ([]string, error) {
	distractors := q.Distractors()
	if len(distractors) < PresentedOptionCount-1 {
		return nil, ErrNotEnoughOptions
	}

	b.rngMu.Lock()
	defer b.rngMu.Unlock()

	shuffled := make([]string, len(distractors))
	copy(shuffled, distractors)
	b.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	options := append(shuffled[:PresentedOptionCount-1], q.CorrectAnswer)
	b.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options, nil
}

// LevelPoints returns the per-question point value for a (topic, level).
// Question points are uniform within a level; the first entry decides, with
// 10 as the fallback for an empty level.
func (b *Bank) LevelPoints(topic string, level int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := b.byGroup[groupKey{Topic: topic, Level: level}]
	if len(ids) == 0 {
		return 10
	}
	return b.byID[ids[0]].Points
}

// SetRandSource replaces the RNG, for deterministic tests.
func (b *Bank) SetRandSource(src rand.Source) {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	b.rng = rand.New(src)
}
