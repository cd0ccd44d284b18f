package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/quizlevel/quiz-service/internal/auth"
	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/services"
	"github.com/quizlevel/quiz-service/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	bankHandler    *BankHandler
	verifier       *auth.Verifier
}

func NewHandlerManager(
	quizService services.QuizService,
	attemptService services.AttemptService,
	questionBank *bank.Bank,
	verifier *auth.Verifier,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(quizService, logger),
		attemptHandler: NewAttemptHandler(attemptService, logger),
		bankHandler:    NewBankHandler(questionBank, logger),
		verifier:       verifier,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(hm.verifier.Middleware())
	{
		v1.GET("/topics", hm.quizHandler.GetTopics)

		// Quiz session routes
		quiz := v1.Group("/quiz")
		{
			quiz.POST("/start", hm.quizHandler.StartQuiz)
			quiz.GET("/question", hm.quizHandler.GetQuestion)
			quiz.POST("/answer", hm.quizHandler.SubmitAnswer)
			quiz.POST("/skip", hm.quizHandler.SkipQuestion)
			quiz.POST("/level/complete", hm.quizHandler.CompleteLevel)
			quiz.POST("/level/advance", hm.quizHandler.AdvanceLevel)
			quiz.GET("/complete", hm.quizHandler.CompleteQuiz)
		}

		// Attempt history routes
		attempts := v1.Group("/attempts")
		{
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/export", hm.attemptHandler.ExportAttempt)
		}

		// Question bank routes
		bankRoutes := v1.Group("/bank")
		{
			bankRoutes.POST("/import", hm.bankHandler.ImportQuestions)
			bankRoutes.GET("/export", hm.bankHandler.ExportQuestions)
		}
	}
}
