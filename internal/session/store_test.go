package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_HasAttempt(t *testing.T) {
	state := &State{}
	assert.False(t, state.HasAttempt())

	state.AttemptID = 12
	assert.True(t, state.HasAttempt())
}

func TestState_ClearAttempt(t *testing.T) {
	state := &State{
		AttemptID:         12,
		Topic:             "science",
		Level:             2,
		Score:             40,
		QuestionsAnswered: 3,
		LevelQuestions:    []string{"q1", "q2", "q3"},
		CurrentQuestion:   "q3",
		CurrentOptions:    []string{"a", "b", "c", "d"},
		LastQuestionAt:    time.Now(),
	}

	state.ClearAttempt()

	assert.False(t, state.HasAttempt())
	assert.Nil(t, state.LevelQuestions)
	assert.Empty(t, state.CurrentQuestion)
	assert.Nil(t, state.CurrentOptions)
	assert.Zero(t, state.QuestionsAnswered)

	// Topic and level are kept; the client lands back on topic selection and
	// the stale values are overwritten on the next start.
	assert.Equal(t, "science", state.Topic)
}
