package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound marks a missing or expired session token. Handlers
// recover by sending the user back to topic selection.
var ErrSessionNotFound = errors.New("session not found")

// State is the per-browser-session quiz state, the explicit struct that
// replaces a loose session dictionary. AttemptID zero means no attempt is
// bound (fresh session, or invalidated after a detected refresh).
type State struct {
	AttemptID         uint      `json:"attempt_id"`
	Topic             string    `json:"topic"`
	Level             int       `json:"level"`
	Score             int       `json:"score"`
	QuestionsAnswered int       `json:"questions_answered"`
	LevelQuestions    []string  `json:"level_questions"`
	CurrentQuestion   string    `json:"current_question"`
	CurrentOptions    []string  `json:"current_options"`
	LastQuestionAt    time.Time `json:"last_question_at"`
}

// HasAttempt reports whether the session is bound to an attempt.
func (s *State) HasAttempt() bool {
	return s.AttemptID != 0
}

// ClearAttempt drops the attempt binding while keeping the token alive, the
// reset applied when a page refresh is detected.
func (s *State) ClearAttempt() {
	s.AttemptID = 0
	s.LevelQuestions = nil
	s.CurrentQuestion = ""
	s.CurrentOptions = nil
	s.QuestionsAnswered = 0
}

// Store persists session state keyed by an opaque token.
//
// Lock/Unlock give per-session mutual exclusion: every engine operation for a
// token runs under its lock so concurrent requests from the same session
// cannot interleave state and score mutations. The locks are in-process;
// running multiple replicas requires sticky sessions.
type Store interface {
	Create(ctx context.Context) (string, error)
	Get(ctx context.Context, token string) (*State, error)
	Save(ctx context.Context, token string, state *State) error
	Clear(ctx context.Context, token string) error
	Lock(token string)
	Unlock(token string)
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	locks  sync.Map // token -> *sync.Mutex
}

// DefaultTTL is how long an idle session survives before Redis expires it.
const DefaultTTL = 2 * time.Hour

func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(token string) string {
	return "quiz:session:" + token
}

func (s *redisStore) Create(ctx context.Context) (string, error) {
	token := uuid.NewString()
	if err := s.write(ctx, token, &State{}); err != nil {
		return "", err
	}
	return token, nil
}

func (s *redisStore) Get(ctx context.Context, token string) (*State, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return &state, nil
}

func (s *redisStore) Save(ctx context.Context, token string, state *State) error {
	return s.write(ctx, token, state)
}

func (s *redisStore) write(ctx context.Context, token string, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(token), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *redisStore) Lock(token string) {
	mu, _ := s.locks.LoadOrStore(token, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
}

func (s *redisStore) Unlock(token string) {
	mu, ok := s.locks.Load(token)
	if !ok {
		return
	}
	mu.(*sync.Mutex).Unlock()
}
