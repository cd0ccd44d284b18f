package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/events"
	"github.com/quizlevel/quiz-service/internal/models"
	"github.com/quizlevel/quiz-service/internal/repositories"
	"github.com/quizlevel/quiz-service/internal/session"
	"github.com/quizlevel/quiz-service/internal/validator"
)

// refreshWindow is how soon re-serving the same question counts as a page
// reload rather than a genuine fetch.
const refreshWindow = 5 * time.Second

type quizService struct {
	repo      repositories.Repository
	bank      *bank.Bank
	sessions  session.Store
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	refreshGuard bool
	now          func() time.Time
}

func NewQuizService(
	repo repositories.Repository,
	questionBank *bank.Bank,
	sessions session.Store,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
	refreshGuard bool,
) QuizService {
	return &quizService{
		repo:         repo,
		bank:         questionBank,
		sessions:     sessions,
		publisher:    publisher,
		logger:       logger,
		validator:    v,
		refreshGuard: refreshGuard,
		now:          time.Now,
	}
}

func (s *quizService) Topics(_ context.Context) []string {
	return s.bank.Topics()
}

// StartQuiz creates a fresh attempt and a session bound to it, with the
// level-1 question queue already drawn.
func (s *quizService) StartQuiz(ctx context.Context, req *StartQuizRequest, userID *string) (*StartQuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	queue := s.bank.SelectLevelQuestions(req.Topic, 1)
	if len(queue) == 0 {
		return nil, ErrTopicNotFound
	}

	quiz, err := s.repo.Quiz().FindOrCreateByTopic(ctx, req.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve quiz topic: %w", err)
	}

	attempt := &models.QuizAttempt{
		QuizID:       quiz.ID,
		UserID:       userID,
		LevelReached: 1,
	}
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	token, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	state := &session.State{
		AttemptID:      attempt.ID,
		Topic:          req.Topic,
		Level:          1,
		LevelQuestions: queue,
	}
	if err := s.sessions.Save(ctx, token, state); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID,
		"topic", req.Topic,
		"anonymous", userID == nil)

	s.publish(ctx, events.NewQuizEvent(events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID: attempt.ID,
		QuizID:    quiz.ID,
		Topic:     req.Topic,
		UserID:    userID,
	}))

	return &StartQuizResponse{
		SessionToken: token,
		AttemptID:    attempt.ID,
		Topic:        req.Topic,
		Level:        1,
	}, nil
}

// NextQuestion serves the current question of the level: resolves the cursor
// against the session's question queue, draws the 4 presented options and
// freezes them into the session for grading.
func (s *quizService) NextQuestion(ctx context.Context, token string) (*QuestionView, error) {
	s.sessions.Lock(token)
	defer s.sessions.Unlock(token)

	state, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	if !state.HasAttempt() {
		return nil, ErrNoActiveAttempt
	}
	if state.QuestionsAnswered >= models.QuestionsPerLevel {
		return nil, ErrLevelComplete
	}

	if s.refreshGuard && s.isRefresh(state) {
		s.logger.Warn("Page refresh detected, invalidating attempt",
			"attempt_id", state.AttemptID,
			"question_id", state.CurrentQuestion)
		state.ClearAttempt()
		if err := s.sessions.Save(ctx, token, state); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		return nil, ErrRefreshDetected
	}

	state.LastQuestionAt = s.now()

	// Queue can be empty after a session round-trip through older state;
	// redraw it for the current level.
	if len(state.LevelQuestions) == 0 {
		state.LevelQuestions = s.bank.SelectLevelQuestions(state.Topic, state.Level)
		state.QuestionsAnswered = 0
		if len(state.LevelQuestions) == 0 {
			return nil, ErrQuestionNotFound
		}
	}
	if state.QuestionsAnswered >= len(state.LevelQuestions) {
		return nil, ErrLevelComplete
	}

	questionID := state.LevelQuestions[state.QuestionsAnswered]
	question, err := s.bank.Get(questionID)
	if err != nil {
		s.logger.Warn("Queued question missing from bank",
			"question_id", questionID,
			"attempt_id", state.AttemptID)
		return nil, ErrQuestionNotFound
	}

	options, err := s.bank.PresentOptions(question)
	if err != nil {
		s.logger.Warn("Cannot present options for question",
			"question_id", questionID,
			"error", err)
		return nil, ErrQuestionNotFound
	}

	state.CurrentQuestion = question.ID
	state.CurrentOptions = options
	if err := s.sessions.Save(ctx, token, state); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &QuestionView{
		Text:           question.Text,
		Options:        options,
		Level:          state.Level,
		QuestionNum:    state.QuestionsAnswered + 1,
		TotalQuestions: models.QuestionsPerLevel,
		Timer:          models.AnswerTimeout,
	}, nil
}

// isRefresh reports whether the same question is being re-served inside the
// refresh window while the level is mid-flight.
func (s *quizService) isRefresh(state *session.State) bool {
	if state.LastQuestionAt.IsZero() || state.QuestionsAnswered == 0 {
		return false
	}
	if state.QuestionsAnswered >= len(state.LevelQuestions) {
		return false
	}
	return s.now().Sub(state.LastQuestionAt) < refreshWindow &&
		state.CurrentQuestion == state.LevelQuestions[state.QuestionsAnswered]
}

// SubmitAnswer grades the current question, persists the response with the
// frozen presented options and advances the level cursor.
func (s *quizService) SubmitAnswer(ctx context.Context, token string, req *SubmitAnswerRequest) (*SubmitResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var answer *string
	if req.Answer != "" {
		answer = &req.Answer
	}
	return s.recordResponse(ctx, token, answer, req.TimeTaken)
}

// SkipQuestion records the current question as skipped: no answer, no time,
// no penalty.
func (s *quizService) SkipQuestion(ctx context.Context, token string) (*SubmitResult, error) {
	return s.recordResponse(ctx, token, nil, 0)
}

func (s *quizService) recordResponse(ctx context.Context, token string, answer *string, timeTaken int) (*SubmitResult, error) {
	s.sessions.Lock(token)
	defer s.sessions.Unlock(token)

	state, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	if !state.HasAttempt() {
		return nil, ErrNoActiveAttempt
	}
	if state.QuestionsAnswered >= models.QuestionsPerLevel {
		return nil, ErrLevelComplete
	}
	if state.CurrentQuestion == "" {
		return nil, ErrNoCurrentQuestion
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, state.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.IsComplete {
		return nil, ErrAttemptComplete
	}

	question, err := s.bank.Get(state.CurrentQuestion)
	if err != nil {
		return nil, ErrQuestionNotFound
	}

	isCorrect, points := Score(question, answer, timeTaken)

	response := &models.QuestionResponse{
		AttemptID:  attempt.ID,
		QuestionID: question.ID,
		UserAnswer: answer,
		IsCorrect:  isCorrect,
		TimeTaken:  timeTaken,
		Points:     points,
	}
	if err := response.EncodePresentedOptions(state.CurrentOptions); err != nil {
		return nil, fmt.Errorf("failed to encode presented options: %w", err)
	}
	if err := s.repo.Response().Create(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to persist response: %w", err)
	}

	if points != 0 {
		attempt.Score += points
		if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to update attempt score: %w", err)
		}
	}

	state.Score = attempt.Score
	state.QuestionsAnswered++
	state.CurrentQuestion = ""
	state.CurrentOptions = nil
	if err := s.sessions.Save(ctx, token, state); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Response recorded",
		"attempt_id", attempt.ID,
		"question_id", question.ID,
		"is_correct", isCorrect,
		"points", points,
		"skipped", answer == nil)

	return &SubmitResult{
		IsCorrect:         isCorrect,
		Points:            points,
		Score:             attempt.Score,
		QuestionsAnswered: state.QuestionsAnswered,
		LevelFinished:     state.QuestionsAnswered >= models.QuestionsPerLevel,
	}, nil
}

// CompleteLevel grades the finished level, applies the pass/fail transition
// to the attempt and returns the per-question breakdown.
func (s *quizService) CompleteLevel(ctx context.Context, token string) (*LevelResult, error) {
	s.sessions.Lock(token)
	defer s.sessions.Unlock(token)

	state, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	if !state.HasAttempt() {
		return nil, ErrNoActiveAttempt
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, state.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	responses, err := s.repo.Response().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	levelResponses := s.filterLevelResponses(responses, state.Topic, state.Level)

	points := make([]int, 0, len(levelResponses))
	details := make([]QuestionDetail, 0, len(levelResponses))
	totalCorrect := 0
	for _, r := range levelResponses {
		points = append(points, r.Points)
		if r.IsCorrect {
			totalCorrect++
		}
		if detail, ok := s.buildQuestionDetail(r); ok {
			details = append(details, detail)
		}
	}

	outcome := EvaluateLevel(points, s.bank.LevelPoints(state.Topic, state.Level))

	totalQuestions := len(levelResponses)
	percentageCorrect := 0.0
	if totalQuestions > 0 {
		percentageCorrect = float64(totalCorrect) / float64(totalQuestions) * 100
	}

	result := &LevelResult{
		Passed:              outcome.Passed,
		Level:               state.Level,
		Score:               outcome.DisplayScore,
		TotalCorrect:        totalCorrect,
		TotalQuestions:      totalQuestions,
		PercentageCorrect:   percentageCorrect,
		PercentagePoints:    outcome.Percentage,
		TotalPossiblePoints: outcome.TotalPossible,
		Questions:           details,
	}

	switch {
	case outcome.Passed && state.Level < models.MaxLevel:
		next := state.Level + 1
		attempt.LevelReached = next
		if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to update attempt: %w", err)
		}
		result.NextLevel = &next

		s.publish(ctx, events.NewQuizEvent(events.EventLevelCompleted, events.LevelCompletedEvent{
			AttemptID:  attempt.ID,
			Topic:      state.Topic,
			Level:      state.Level,
			Score:      outcome.DisplayScore,
			Percentage: outcome.Percentage,
			Passed:     true,
		}))

	case outcome.Passed:
		// Passed the final level; level_reached saturates at MaxLevel.
		attempt.IsComplete = true
		if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to update attempt: %w", err)
		}
		result.QuizComplete = true

		s.publish(ctx, events.NewQuizEvent(events.EventQuizCompleted, events.QuizCompletedEvent{
			AttemptID:    attempt.ID,
			Topic:        state.Topic,
			LevelReached: attempt.LevelReached,
			Score:        attempt.Score,
			Passed:       true,
		}))

	default:
		// Failing any level ends the attempt; a fresh run needs a new attempt.
		attempt.IsComplete = true
		if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to update attempt: %w", err)
		}
		result.QuizComplete = true

		s.publish(ctx, events.NewQuizEvent(events.EventQuizFailed, events.QuizCompletedEvent{
			AttemptID:    attempt.ID,
			Topic:        state.Topic,
			LevelReached: attempt.LevelReached,
			Score:        attempt.Score,
			Passed:       false,
		}))
	}

	s.logger.Info("Level completed",
		"attempt_id", attempt.ID,
		"level", state.Level,
		"score", outcome.DisplayScore,
		"percentage", outcome.Percentage,
		"passed", outcome.Passed)

	return result, nil
}

// AdvanceLevel re-enters the quiz at the next level with a fresh queue.
func (s *quizService) AdvanceLevel(ctx context.Context, token string, req *AdvanceLevelRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	s.sessions.Lock(token)
	defer s.sessions.Unlock(token)

	state, err := s.sessions.Get(ctx, token)
	if err != nil {
		return mapSessionErr(err)
	}
	if !state.HasAttempt() {
		return ErrNoActiveAttempt
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, state.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.IsComplete {
		return ErrAttemptComplete
	}
	if req.Level > models.MaxLevel {
		return ErrInvalidLevel
	}
	if req.Level != state.Level+1 || req.Level > attempt.LevelReached {
		return ErrLevelLocked
	}

	state.Level = req.Level
	state.QuestionsAnswered = 0
	state.LevelQuestions = s.bank.SelectLevelQuestions(state.Topic, req.Level)
	state.CurrentQuestion = ""
	state.CurrentOptions = nil
	state.LastQuestionAt = time.Time{}
	if err := s.sessions.Save(ctx, token, state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Advanced to next level",
		"attempt_id", attempt.ID,
		"level", req.Level,
		"queue_size", len(state.LevelQuestions))

	return nil
}

// CompleteQuiz returns the terminal summary of the session's attempt.
func (s *quizService) CompleteQuiz(ctx context.Context, token string) (*QuizSummary, error) {
	s.sessions.Lock(token)
	defer s.sessions.Unlock(token)

	state, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	if !state.HasAttempt() {
		return nil, ErrNoActiveAttempt
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, state.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return &QuizSummary{
		AttemptID:     attempt.ID,
		Topic:         state.Topic,
		Score:         attempt.Score,
		LevelReached:  attempt.LevelReached,
		IsComplete:    attempt.IsComplete,
		DateAttempted: attempt.DateAttempted,
	}, nil
}

func (s *quizService) publish(ctx context.Context, event *events.QuizEvent) {
	if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
		// Event delivery never fails the request.
		s.logger.Error("Failed to publish quiz event",
			"event_type", event.Type,
			"error", err)
	}
}

func mapSessionErr(err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	return err
}
