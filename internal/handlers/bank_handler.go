package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/utils"
)

type BankHandler struct {
	BaseHandler
	bank *bank.Bank
}

func NewBankHandler(questionBank *bank.Bank, logger utils.Logger) *BankHandler {
	return &BankHandler{
		BaseHandler: NewBaseHandler(logger),
		bank:        questionBank,
	}
}

// ImportQuestions merges questions from an uploaded CSV/XLSX file into the
// bank. Per-row validation failures are reported, not fatal.
func (h *BankHandler) ImportQuestions(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Missing file upload", err)
		return
	}
	defer file.Close()

	result, err := h.bank.ImportFromFile(file, header.Filename)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Import failed", err)
		return
	}

	status := http.StatusOK
	if result.SuccessCount == 0 && result.ErrorCount > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// ExportQuestions streams the bank as CSV or XLSX.
func (h *BankHandler) ExportQuestions(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	switch format {
	case "csv":
		payload, err := h.bank.ExportCSV()
		if err != nil {
			h.RespondWithError(c, http.StatusInternalServerError, "Export failed", err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="questions.csv"`)
		c.Data(http.StatusOK, "text/csv", payload)
	case "xlsx":
		payload, err := h.bank.ExportExcel()
		if err != nil {
			h.RespondWithError(c, http.StatusInternalServerError, "Export failed", err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="questions.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
	default:
		h.RespondWithError(c, http.StatusBadRequest, "Unsupported export format", nil, format)
	}
}
