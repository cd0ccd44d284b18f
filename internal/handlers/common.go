package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/quizlevel/quiz-service/internal/errors"
	"github.com/quizlevel/quiz-service/internal/services"
	"github.com/quizlevel/quiz-service/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{Message: message}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil {
		h.logger.LogError(err, message,
			"status_code", statusCode,
			"method", c.Request.Method,
			"path", c.Request.URL.Path)
	} else {
		h.logger.Warn(message,
			"status_code", statusCode,
			"method", c.Request.Method,
			"path", c.Request.URL.Path)
	}

	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// HandleServiceError maps engine errors onto HTTP responses in one place.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	var validationErrs apperrors.ValidationErrors
	var validationErr *apperrors.ValidationError

	switch {
	case errors.As(err, &validationErrs):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrs)
	case errors.As(err, &validationErr):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErr)
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrNoActiveAttempt):
		h.RespondWithError(c, http.StatusConflict,
			"Your quiz session was reset. Please start a new quiz.", err,
			gin.H{"restart": true})
	case errors.Is(err, services.ErrRefreshDetected):
		h.RespondWithError(c, http.StatusConflict,
			"Page refresh detected. Your quiz has been reset.", err,
			gin.H{"restart": true})
	case errors.Is(err, services.ErrLevelComplete),
		errors.Is(err, services.ErrQuestionNotFound):
		// Stale or exhausted level: the client should fetch the level result.
		h.RespondWithError(c, http.StatusConflict, "Level is complete", err,
			gin.H{"level_complete": true})
	case errors.Is(err, services.ErrAttemptComplete),
		errors.Is(err, services.ErrLevelLocked),
		errors.Is(err, services.ErrInvalidLevel),
		errors.Is(err, services.ErrNoCurrentQuestion):
		h.RespondWithError(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, services.ErrAttemptAccessDenied):
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, err.Error(), err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
