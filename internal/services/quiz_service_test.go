package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/events"
	"github.com/quizlevel/quiz-service/internal/models"
	"github.com/quizlevel/quiz-service/internal/repositories"
	"github.com/quizlevel/quiz-service/internal/session"
	"github.com/quizlevel/quiz-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ===== REPOSITORY MOCKS =====

// MockQuizRepository is a mock implementation of QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) FindOrCreateByTopic(ctx context.Context, topic string) (*models.Quiz, error) {
	args := m.Called(ctx, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) List(ctx context.Context) ([]*models.Quiz, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Quiz), args.Error(1)
}

// MockAttemptRepository is a mock implementation of AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByIDWithResponses(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) Update(ctx context.Context, attempt *models.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.QuizAttempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) GetByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	args := m.Called(ctx, userID, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.QuizAttempt), args.Get(1).(int64), args.Error(2)
}

// MockResponseRepository is a mock implementation of ResponseRepository
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Create(ctx context.Context, response *models.QuestionResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.QuestionResponse, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuestionResponse), args.Error(1)
}

// MockRepository aggregates the entity mocks behind the Repository interface
type MockRepository struct {
	quiz     *MockQuizRepository
	attempt  *MockAttemptRepository
	response *MockResponseRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		quiz:     &MockQuizRepository{},
		attempt:  &MockAttemptRepository{},
		response: &MockResponseRepository{},
	}
}

func (m *MockRepository) Quiz() repositories.QuizRepository         { return m.quiz }
func (m *MockRepository) Attempt() repositories.AttemptRepository   { return m.attempt }
func (m *MockRepository) Response() repositories.ResponseRepository { return m.response }

// ===== SESSION STORE FAKE =====

// fakeSessionStore is an in-memory Store for service tests.
type fakeSessionStore struct {
	mu     sync.Mutex
	states map[string]session.State
	seq    int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{states: make(map[string]session.State)}
}

func (f *fakeSessionStore) Create(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token := fmt.Sprintf("token-%d", f.seq)
	f.states[token] = session.State{}
	return token, nil
}

func (f *fakeSessionStore) Get(_ context.Context, token string) (*session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[token]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	cp := state
	return &cp, nil
}

func (f *fakeSessionStore) Save(_ context.Context, token string, state *session.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[token] = *state
	return nil
}

func (f *fakeSessionStore) Clear(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, token)
	return nil
}

func (f *fakeSessionStore) Lock(_ string)   {}
func (f *fakeSessionStore) Unlock(_ string) {}

// ===== FIXTURES =====

func newTestBank(t *testing.T, questions []bank.Question) *bank.Bank {
	t.Helper()

	path := filepath.Join(t.TempDir(), "questions.json")
	raw, err := json.Marshal(questions)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	b := bank.New(path, validator.New(), testLogger())
	require.NoError(t, b.Load())
	return b
}

// levelQuestions builds count questions for one (topic, level). Every question
// shares the same correct answer so tests never depend on which one the
// shuffle picks.
func levelQuestions(topic string, level, count, points int) []bank.Question {
	out := make([]bank.Question, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, bank.Question{
			ID:            fmt.Sprintf("%s-%d-%02d", topic, level, i),
			Topic:         topic,
			Level:         level,
			Text:          fmt.Sprintf("%s level %d question %d", topic, level, i),
			Options:       []string{"opt-a", "opt-b", "opt-c", "opt-d"},
			CorrectAnswer: "opt-a",
			Points:        points,
		})
	}
	return out
}

func scienceBank(t *testing.T) *bank.Bank {
	t.Helper()
	var questions []bank.Question
	questions = append(questions, levelQuestions("science", 1, 10, 10)...)
	questions = append(questions, levelQuestions("science", 2, 10, 20)...)
	questions = append(questions, levelQuestions("science", 4, 10, 40)...)
	return newTestBank(t, questions)
}

type quizServiceFixture struct {
	repo      *MockRepository
	sessions  *fakeSessionStore
	publisher *events.MockEventPublisher
	service   *quizService
}

func newQuizServiceFixture(t *testing.T, b *bank.Bank, refreshGuard bool) *quizServiceFixture {
	t.Helper()

	repo := newMockRepository()
	sessions := newFakeSessionStore()
	publisher := events.NewMockEventPublisher(testLogger())

	svc := NewQuizService(repo, b, sessions, publisher, testLogger(), validator.New(), refreshGuard)
	return &quizServiceFixture{
		repo:      repo,
		sessions:  sessions,
		publisher: publisher,
		service:   svc.(*quizService),
	}
}

// seedSession creates a session token and binds it to the given state.
func (f *quizServiceFixture) seedSession(t *testing.T, state *session.State) string {
	t.Helper()
	ctx := context.Background()
	token, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Save(ctx, token, state))
	return token
}

func eventTypes(published []events.QuizEvent) []events.EventType {
	out := make([]events.EventType, 0, len(published))
	for _, e := range published {
		out = append(out, e.Type)
	}
	return out
}

// ===== TESTS =====

func TestQuizService_Topics(t *testing.T) {
	f := newQuizServiceFixture(t, scienceBank(t), false)
	assert.Equal(t, []string{"science"}, f.service.Topics(context.Background()))
}

func TestQuizService_StartQuiz(t *testing.T) {
	ctx := context.Background()

	t.Run("creates attempt and session for a known topic", func(t *testing.T) {
		f := newQuizServiceFixture(t, scienceBank(t), false)

		f.repo.quiz.On("FindOrCreateByTopic", mock.Anything, "science").
			Return(&models.Quiz{ID: 1, Topic: "science"}, nil)
		f.repo.attempt.On("Create", mock.Anything, mock.AnythingOfType("*models.QuizAttempt")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.QuizAttempt).ID = 7
			}).
			Return(nil)

		resp, err := f.service.StartQuiz(ctx, &StartQuizRequest{Topic: "science"}, nil)
		require.NoError(t, err)

		assert.NotEmpty(t, resp.SessionToken)
		assert.Equal(t, uint(7), resp.AttemptID)
		assert.Equal(t, "science", resp.Topic)
		assert.Equal(t, 1, resp.Level)

		state, err := f.sessions.Get(ctx, resp.SessionToken)
		require.NoError(t, err)
		assert.Equal(t, uint(7), state.AttemptID)
		assert.Equal(t, 1, state.Level)
		assert.Len(t, state.LevelQuestions, models.QuestionsPerLevel)

		assert.Equal(t, []events.EventType{events.EventAttemptStarted},
			eventTypes(f.publisher.GetPublishedEvents()))

		f.repo.quiz.AssertExpectations(t)
		f.repo.attempt.AssertExpectations(t)
	})

	t.Run("unknown topic", func(t *testing.T) {
		f := newQuizServiceFixture(t, scienceBank(t), false)

		resp, err := f.service.StartQuiz(ctx, &StartQuizRequest{Topic: "geology"}, nil)
		assert.ErrorIs(t, err, ErrTopicNotFound)
		assert.Nil(t, resp)
	})

	t.Run("blank topic fails validation", func(t *testing.T) {
		f := newQuizServiceFixture(t, scienceBank(t), false)

		resp, err := f.service.StartQuiz(ctx, &StartQuizRequest{Topic: ""}, nil)
		assert.True(t, IsValidation(err))
		assert.Nil(t, resp)
	})
}

func TestQuizService_NextQuestion(t *testing.T) {
	ctx := context.Background()
	b := scienceBank(t)

	t.Run("serves the head of the queue with frozen options", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		queue := b.SelectLevelQuestions("science", 1)
		token := f.seedSession(t, &session.State{
			AttemptID:      7,
			Topic:          "science",
			Level:          1,
			LevelQuestions: queue,
		})

		view, err := f.service.NextQuestion(ctx, token)
		require.NoError(t, err)

		assert.Equal(t, 1, view.Level)
		assert.Equal(t, 1, view.QuestionNum)
		assert.Equal(t, models.QuestionsPerLevel, view.TotalQuestions)
		assert.Equal(t, models.AnswerTimeout, view.Timer)
		assert.Len(t, view.Options, bank.PresentedOptionCount)
		assert.Contains(t, view.Options, "opt-a")

		state, err := f.sessions.Get(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, queue[0], state.CurrentQuestion)
		assert.Equal(t, view.Options, state.CurrentOptions)
		assert.False(t, state.LastQuestionAt.IsZero())
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		_, err := f.service.NextQuestion(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("session without an attempt", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		token := f.seedSession(t, &session.State{})
		_, err := f.service.NextQuestion(ctx, token)
		assert.ErrorIs(t, err, ErrNoActiveAttempt)
	})

	t.Run("all questions answered", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		token := f.seedSession(t, &session.State{
			AttemptID:         7,
			Topic:             "science",
			Level:             1,
			LevelQuestions:    b.SelectLevelQuestions("science", 1),
			QuestionsAnswered: models.QuestionsPerLevel,
		})
		_, err := f.service.NextQuestion(ctx, token)
		assert.ErrorIs(t, err, ErrLevelComplete)
	})
}

func TestQuizService_RefreshDetection(t *testing.T) {
	ctx := context.Background()
	b := scienceBank(t)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	midLevelState := func(queue []string) *session.State {
		return &session.State{
			AttemptID:         7,
			Topic:             "science",
			Level:             1,
			LevelQuestions:    queue,
			QuestionsAnswered: 1,
			CurrentQuestion:   queue[1],
			LastQuestionAt:    base,
		}
	}

	t.Run("re-serving the same question inside the window invalidates the attempt", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, true)
		f.service.now = func() time.Time { return base.Add(2 * time.Second) }

		queue := b.SelectLevelQuestions("science", 1)
		token := f.seedSession(t, midLevelState(queue))

		_, err := f.service.NextQuestion(ctx, token)
		assert.ErrorIs(t, err, ErrRefreshDetected)

		// The session survives but the attempt binding is gone.
		_, err = f.service.NextQuestion(ctx, token)
		assert.ErrorIs(t, err, ErrNoActiveAttempt)
	})

	t.Run("outside the window the question is served again", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, true)
		f.service.now = func() time.Time { return base.Add(6 * time.Second) }

		queue := b.SelectLevelQuestions("science", 1)
		token := f.seedSession(t, midLevelState(queue))

		view, err := f.service.NextQuestion(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, 2, view.QuestionNum)
	})

	t.Run("guard disabled serves without checking", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		f.service.now = func() time.Time { return base.Add(1 * time.Second) }

		queue := b.SelectLevelQuestions("science", 1)
		token := f.seedSession(t, midLevelState(queue))

		view, err := f.service.NextQuestion(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, 2, view.QuestionNum)
	})

	t.Run("first question is never a refresh", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, true)
		f.service.now = func() time.Time { return base.Add(1 * time.Second) }

		queue := b.SelectLevelQuestions("science", 1)
		state := midLevelState(queue)
		state.QuestionsAnswered = 0
		state.CurrentQuestion = queue[0]
		token := f.seedSession(t, state)

		_, err := f.service.NextQuestion(ctx, token)
		assert.NoError(t, err)
	})
}

func TestQuizService_SubmitAnswer(t *testing.T) {
	ctx := context.Background()
	b := scienceBank(t)

	// seed binds a mid-level session with a served question and stubs the
	// attempt row behind it.
	seed := func(f *quizServiceFixture, attempt *models.QuizAttempt) (string, []string) {
		queue := b.SelectLevelQuestions("science", 1)
		options := []string{"opt-b", "opt-a", "opt-d", "opt-c"}
		token := f.seedSession(t, &session.State{
			AttemptID:       attempt.ID,
			Topic:           "science",
			Level:           1,
			LevelQuestions:  queue,
			CurrentQuestion: queue[0],
			CurrentOptions:  options,
		})
		f.repo.attempt.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)
		return token, options
	}

	t.Run("correct answer earns full points", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1}
		token, options := seed(f, attempt)

		var saved *models.QuestionResponse
		f.repo.response.On("Create", mock.Anything, mock.AnythingOfType("*models.QuestionResponse")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*models.QuestionResponse)
			}).
			Return(nil)
		f.repo.attempt.On("Update", mock.Anything, attempt).Return(nil)

		result, err := f.service.SubmitAnswer(ctx, token, &SubmitAnswerRequest{Answer: "opt-a", TimeTaken: 10})
		require.NoError(t, err)

		assert.True(t, result.IsCorrect)
		assert.Equal(t, 10, result.Points)
		assert.Equal(t, 10, result.Score)
		assert.Equal(t, 1, result.QuestionsAnswered)
		assert.False(t, result.LevelFinished)

		require.NotNil(t, saved)
		stored, err := saved.DecodePresentedOptions()
		require.NoError(t, err)
		assert.Equal(t, options, stored)

		state, err := f.sessions.Get(ctx, token)
		require.NoError(t, err)
		assert.Empty(t, state.CurrentQuestion)
		assert.Equal(t, 10, state.Score)

		f.repo.attempt.AssertExpectations(t)
		f.repo.response.AssertExpectations(t)
	})

	t.Run("wrong answer costs half the question points", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1, Score: 30}
		token, _ := seed(f, attempt)

		f.repo.response.On("Create", mock.Anything, mock.AnythingOfType("*models.QuestionResponse")).Return(nil)
		f.repo.attempt.On("Update", mock.Anything, attempt).Return(nil)

		result, err := f.service.SubmitAnswer(ctx, token, &SubmitAnswerRequest{Answer: "opt-c", TimeTaken: 10})
		require.NoError(t, err)

		assert.False(t, result.IsCorrect)
		assert.Equal(t, -5, result.Points)
		assert.Equal(t, 25, result.Score)
	})

	t.Run("timeout scores zero without touching the attempt", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1, Score: 30}
		token, _ := seed(f, attempt)

		f.repo.response.On("Create", mock.Anything, mock.AnythingOfType("*models.QuestionResponse")).Return(nil)

		result, err := f.service.SubmitAnswer(ctx, token, &SubmitAnswerRequest{Answer: "opt-a", TimeTaken: 30})
		require.NoError(t, err)

		assert.False(t, result.IsCorrect)
		assert.Equal(t, 0, result.Points)
		assert.Equal(t, 30, result.Score)
		f.repo.attempt.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("skip records a nil answer with no penalty", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1}
		token, _ := seed(f, attempt)

		var saved *models.QuestionResponse
		f.repo.response.On("Create", mock.Anything, mock.AnythingOfType("*models.QuestionResponse")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*models.QuestionResponse)
			}).
			Return(nil)

		result, err := f.service.SkipQuestion(ctx, token)
		require.NoError(t, err)

		assert.False(t, result.IsCorrect)
		assert.Equal(t, 0, result.Points)
		require.NotNil(t, saved)
		assert.Nil(t, saved.UserAnswer)
		assert.True(t, saved.Skipped())
	})

	t.Run("tenth answer finishes the level", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1}
		queue := b.SelectLevelQuestions("science", 1)
		token := f.seedSession(t, &session.State{
			AttemptID:         attempt.ID,
			Topic:             "science",
			Level:             1,
			LevelQuestions:    queue,
			QuestionsAnswered: models.QuestionsPerLevel - 1,
			CurrentQuestion:   queue[models.QuestionsPerLevel-1],
			CurrentOptions:    []string{"opt-a", "opt-b", "opt-c", "opt-d"},
		})
		f.repo.attempt.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)
		f.repo.response.On("Create", mock.Anything, mock.AnythingOfType("*models.QuestionResponse")).Return(nil)
		f.repo.attempt.On("Update", mock.Anything, attempt).Return(nil)

		result, err := f.service.SubmitAnswer(ctx, token, &SubmitAnswerRequest{Answer: "opt-a", TimeTaken: 5})
		require.NoError(t, err)
		assert.True(t, result.LevelFinished)
	})

	t.Run("no question currently served", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		token := f.seedSession(t, &session.State{
			AttemptID:      7,
			Topic:          "science",
			Level:          1,
			LevelQuestions: b.SelectLevelQuestions("science", 1),
		})

		_, err := f.service.SubmitAnswer(ctx, token, &SubmitAnswerRequest{Answer: "opt-a", TimeTaken: 5})
		assert.ErrorIs(t, err, ErrNoCurrentQuestion)
	})

	t.Run("completed attempt rejects further answers", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1, IsComplete: true}
		token, _ := seed(f, attempt)

		_, err := f.service.SubmitAnswer(ctx, token, &SubmitAnswerRequest{Answer: "opt-a", TimeTaken: 5})
		assert.ErrorIs(t, err, ErrAttemptComplete)
	})
}

// levelResponses builds persisted responses for the first count questions of
// a (topic, level), correct of them scored as correct and wrong as penalized.
// The remainder up to count are skips.
func levelResponses(t *testing.T, b *bank.Bank, attemptID uint, topic string, level, correct, wrong, points int) []*models.QuestionResponse {
	t.Helper()

	queue := b.SelectLevelQuestions(topic, level)
	count := correct + wrong
	require.LessOrEqual(t, count, len(queue))

	var out []*models.QuestionResponse
	for i, id := range queue {
		r := &models.QuestionResponse{
			ID:         uint(i + 1),
			AttemptID:  attemptID,
			QuestionID: id,
		}
		switch {
		case i < correct:
			r.UserAnswer = stringPtr("opt-a")
			r.IsCorrect = true
			r.Points = points
			r.TimeTaken = 10
		case i < correct+wrong:
			r.UserAnswer = stringPtr("opt-b")
			r.Points = -(points / 2)
			r.TimeTaken = 10
		}
		require.NoError(t, r.EncodePresentedOptions([]string{"opt-a", "opt-b", "opt-c", "opt-d"}))
		out = append(out, r)
	}
	return out
}

func TestQuizService_CompleteLevel(t *testing.T) {
	ctx := context.Background()
	b := scienceBank(t)

	t.Run("sixty percent passes and unlocks the next level", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1, Score: 60}
		token := f.seedSession(t, &session.State{
			AttemptID:         7,
			Topic:             "science",
			Level:             1,
			QuestionsAnswered: models.QuestionsPerLevel,
		})

		responses := levelResponses(t, b, 7, "science", 1, 6, 0, 10)
		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)
		f.repo.response.On("GetByAttempt", mock.Anything, uint(7)).Return(responses, nil)
		f.repo.attempt.On("Update", mock.Anything, mock.MatchedBy(func(a *models.QuizAttempt) bool {
			return a.LevelReached == 2 && !a.IsComplete
		})).Return(nil)

		result, err := f.service.CompleteLevel(ctx, token)
		require.NoError(t, err)

		assert.True(t, result.Passed)
		assert.Equal(t, 1, result.Level)
		assert.Equal(t, 60, result.Score)
		assert.Equal(t, 100, result.TotalPossiblePoints)
		assert.Equal(t, 6, result.TotalCorrect)
		assert.Equal(t, models.QuestionsPerLevel, result.TotalQuestions)
		assert.InDelta(t, 60.0, result.PercentagePoints, 0.001)
		require.NotNil(t, result.NextLevel)
		assert.Equal(t, 2, *result.NextLevel)
		assert.False(t, result.QuizComplete)
		assert.Len(t, result.Questions, models.QuestionsPerLevel)

		assert.Equal(t, []events.EventType{events.EventLevelCompleted},
			eventTypes(f.publisher.GetPublishedEvents()))
		f.repo.attempt.AssertExpectations(t)
	})

	t.Run("failing a level ends the attempt", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1, Score: 25}
		token := f.seedSession(t, &session.State{
			AttemptID:         7,
			Topic:             "science",
			Level:             1,
			QuestionsAnswered: models.QuestionsPerLevel,
		})

		responses := levelResponses(t, b, 7, "science", 1, 5, 5, 10)
		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)
		f.repo.response.On("GetByAttempt", mock.Anything, uint(7)).Return(responses, nil)
		f.repo.attempt.On("Update", mock.Anything, mock.MatchedBy(func(a *models.QuizAttempt) bool {
			return a.IsComplete && a.LevelReached == 1
		})).Return(nil)

		result, err := f.service.CompleteLevel(ctx, token)
		require.NoError(t, err)

		assert.False(t, result.Passed)
		assert.Equal(t, 25, result.Score)
		assert.True(t, result.QuizComplete)
		assert.Nil(t, result.NextLevel)

		assert.Equal(t, []events.EventType{events.EventQuizFailed},
			eventTypes(f.publisher.GetPublishedEvents()))
	})

	t.Run("passing the final level completes the quiz", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 4, Score: 400}
		token := f.seedSession(t, &session.State{
			AttemptID:         7,
			Topic:             "science",
			Level:             4,
			QuestionsAnswered: models.QuestionsPerLevel,
		})

		responses := levelResponses(t, b, 7, "science", 4, 10, 0, 40)
		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)
		f.repo.response.On("GetByAttempt", mock.Anything, uint(7)).Return(responses, nil)
		f.repo.attempt.On("Update", mock.Anything, mock.MatchedBy(func(a *models.QuizAttempt) bool {
			return a.IsComplete && a.LevelReached == models.MaxLevel
		})).Return(nil)

		result, err := f.service.CompleteLevel(ctx, token)
		require.NoError(t, err)

		assert.True(t, result.Passed)
		assert.Equal(t, 400, result.Score)
		assert.Equal(t, 400, result.TotalPossiblePoints)
		assert.True(t, result.QuizComplete)
		assert.Nil(t, result.NextLevel)

		assert.Equal(t, []events.EventType{events.EventQuizCompleted},
			eventTypes(f.publisher.GetPublishedEvents()))
	})

	t.Run("responses from other levels are ignored", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 2, Score: 180}
		token := f.seedSession(t, &session.State{
			AttemptID:         7,
			Topic:             "science",
			Level:             2,
			QuestionsAnswered: models.QuestionsPerLevel,
		})

		// Earlier level-1 rows plus the level under grading.
		responses := levelResponses(t, b, 7, "science", 1, 6, 0, 10)
		responses = append(responses, levelResponses(t, b, 7, "science", 2, 6, 0, 20)...)

		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)
		f.repo.response.On("GetByAttempt", mock.Anything, uint(7)).Return(responses, nil)
		f.repo.attempt.On("Update", mock.Anything, mock.Anything).Return(nil)

		result, err := f.service.CompleteLevel(ctx, token)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Level)
		assert.Equal(t, models.QuestionsPerLevel, result.TotalQuestions)
		assert.Equal(t, 120, result.Score)
		assert.Equal(t, 200, result.TotalPossiblePoints)
		assert.True(t, result.Passed)
	})
}

func TestQuizService_AdvanceLevel(t *testing.T) {
	ctx := context.Background()
	b := scienceBank(t)

	t.Run("moves the session to the unlocked level with a fresh queue", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 2}
		token := f.seedSession(t, &session.State{
			AttemptID:         7,
			Topic:             "science",
			Level:             1,
			QuestionsAnswered: models.QuestionsPerLevel,
			LevelQuestions:    b.SelectLevelQuestions("science", 1),
		})
		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)

		err := f.service.AdvanceLevel(ctx, token, &AdvanceLevelRequest{Level: 2})
		require.NoError(t, err)

		state, err := f.sessions.Get(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, 2, state.Level)
		assert.Zero(t, state.QuestionsAnswered)
		assert.Len(t, state.LevelQuestions, models.QuestionsPerLevel)
		assert.Empty(t, state.CurrentQuestion)
		assert.True(t, state.LastQuestionAt.IsZero())
	})

	t.Run("level not yet unlocked", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 1}
		token := f.seedSession(t, &session.State{AttemptID: 7, Topic: "science", Level: 1})
		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)

		err := f.service.AdvanceLevel(ctx, token, &AdvanceLevelRequest{Level: 2})
		assert.ErrorIs(t, err, ErrLevelLocked)
	})

	t.Run("cannot skip a level", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 3}
		token := f.seedSession(t, &session.State{AttemptID: 7, Topic: "science", Level: 1})
		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)

		err := f.service.AdvanceLevel(ctx, token, &AdvanceLevelRequest{Level: 3})
		assert.ErrorIs(t, err, ErrLevelLocked)
	})

	t.Run("level above the maximum fails validation", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		token := f.seedSession(t, &session.State{AttemptID: 7, Topic: "science", Level: 4})

		err := f.service.AdvanceLevel(ctx, token, &AdvanceLevelRequest{Level: 5})
		assert.True(t, IsValidation(err))
	})

	t.Run("completed attempt cannot advance", func(t *testing.T) {
		f := newQuizServiceFixture(t, b, false)
		attempt := &models.QuizAttempt{ID: 7, QuizID: 1, LevelReached: 2, IsComplete: true}
		token := f.seedSession(t, &session.State{AttemptID: 7, Topic: "science", Level: 1})
		f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)

		err := f.service.AdvanceLevel(ctx, token, &AdvanceLevelRequest{Level: 2})
		assert.ErrorIs(t, err, ErrAttemptComplete)
	})
}

func TestQuizService_CompleteQuiz(t *testing.T) {
	ctx := context.Background()
	b := scienceBank(t)

	f := newQuizServiceFixture(t, b, false)
	attempt := &models.QuizAttempt{
		ID:            7,
		QuizID:        1,
		LevelReached:  4,
		Score:         310,
		IsComplete:    true,
		DateAttempted: time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
	}
	token := f.seedSession(t, &session.State{AttemptID: 7, Topic: "science", Level: 4})
	f.repo.attempt.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)

	summary, err := f.service.CompleteQuiz(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, uint(7), summary.AttemptID)
	assert.Equal(t, "science", summary.Topic)
	assert.Equal(t, 310, summary.Score)
	assert.Equal(t, 4, summary.LevelReached)
	assert.True(t, summary.IsComplete)
	assert.Equal(t, attempt.DateAttempted, summary.DateAttempted)
}
