package handlers

import (
	"io"
	"net/http"
	"strings"

	"childcare-reconciliation-backend/internal/models"
	"childcare-reconciliation-backend/internal/services/statements"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StatementHandler struct {
	service *statements.Service
}

func NewStatementHandler(s *statements.Service) *StatementHandler {
	return &StatementHandler{service: s}
}

// Upload accepts a multipart statement file and processes it
// synchronously within the request.
func (h *StatementHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".md") && !strings.HasSuffix(name, ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only CSV, MD and PDF files are supported"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		return
	}

	statement, err := h.service.Ingest(data, header.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"id":                statement.ID.String(),
		"fileName":          statement.FileName,
		"fileType":          statement.FileType,
		"status":            statement.Status,
		"totalTransactions": statement.TotalTransactions,
		"matchedCount":      statement.MatchedCount,
		"unmatchedCount":    statement.UnmatchedCount,
		"uploadedAt":        statement.UploadedAt,
		"processedAt":       statement.ProcessedAt,
	}
	if statement.Status == models.StatementFailed {
		response["errorMessage"] = statement.ErrorMessage
		c.JSON(http.StatusInternalServerError, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *StatementHandler) List(c *gin.Context) {
	list, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *StatementHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement ID"})
		return
	}
	statement, err := h.service.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "statement not found"})
		return
	}
	c.JSON(http.StatusOK, statement)
}
