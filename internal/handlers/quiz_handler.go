package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizlevel/quiz-service/internal/auth"
	"github.com/quizlevel/quiz-service/internal/services"
	"github.com/quizlevel/quiz-service/internal/utils"
)

// SessionHeader carries the quiz session token issued at start.
const SessionHeader = "X-Quiz-Session"

type QuizHandler struct {
	BaseHandler
	service services.QuizService
}

func NewQuizHandler(service services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// sessionToken pulls the session token off the request; empty means the
// client never started a quiz or lost the header.
func (h *QuizHandler) sessionToken(c *gin.Context) (string, bool) {
	token := c.GetHeader(SessionHeader)
	if token == "" {
		h.RespondWithError(c, http.StatusConflict,
			"Your quiz session was reset. Please start a new quiz.", nil,
			gin.H{"restart": true})
		return "", false
	}
	return token, true
}

// GetTopics lists the topics available in the question bank.
func (h *QuizHandler) GetTopics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": h.service.Topics(c.Request.Context())})
}

// StartQuiz creates a new attempt and session for a topic.
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	var req services.StartQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.service.StartQuiz(c.Request.Context(), &req, auth.UserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header(SessionHeader, resp.SessionToken)
	c.JSON(http.StatusCreated, resp)
}

// GetQuestion serves the current question of the level.
func (h *QuizHandler) GetQuestion(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	view, err := h.service.NextQuestion(c.Request.Context(), token)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer grades and records the current question.
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.service.SubmitAnswer(c.Request.Context(), token, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SkipQuestion records the current question as skipped.
func (h *QuizHandler) SkipQuestion(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	result, err := h.service.SkipQuestion(c.Request.Context(), token)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteLevel grades the finished level and returns the breakdown.
func (h *QuizHandler) CompleteLevel(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	result, err := h.service.CompleteLevel(c.Request.Context(), token)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdvanceLevel moves the session into the next unlocked level.
func (h *QuizHandler) AdvanceLevel(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	var req services.AdvanceLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.service.AdvanceLevel(c.Request.Context(), token, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Advanced to next level", gin.H{"level": req.Level})
}

// CompleteQuiz returns the attempt's terminal summary.
func (h *QuizHandler) CompleteQuiz(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	summary, err := h.service.CompleteQuiz(c.Request.Context(), token)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
