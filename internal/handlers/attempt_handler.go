package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizlevel/quiz-service/internal/auth"
	"github.com/quizlevel/quiz-service/internal/repositories"
	"github.com/quizlevel/quiz-service/internal/services"
	"github.com/quizlevel/quiz-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	service services.AttemptService
}

func NewAttemptHandler(service services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListAttempts returns the authenticated user's attempt history.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == nil {
		h.RespondWithError(c, http.StatusUnauthorized, "Sign in to view attempt history", nil)
		return
	}

	filters := repositories.AttemptFilters{
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	attempts, total, err := h.service.GetHistory(c.Request.Context(), *userID, filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"total":    total,
	})
}

// GetAttempt returns one attempt with its per-question breakdown.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	detail, err := h.service.GetDetail(c.Request.Context(), attemptID, auth.UserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ExportAttempt streams the attempt's responses as CSV or XLSX.
func (h *AttemptHandler) ExportAttempt(c *gin.Context) {
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.ExportResults(c.Request.Context(), attemptID, format, auth.UserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	filename := "attempt-" + strconv.FormatUint(uint64(attemptID), 10) + "." + format
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

func (h *AttemptHandler) attemptID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid attempt id", err, raw)
		return 0, false
	}
	return uint(id), true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}
