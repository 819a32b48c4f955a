package handlers

import (
	"net/http"
	"strconv"

	"childcare-reconciliation-backend/internal/services/matching"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	engine *matching.Engine
}

func NewTransactionHandler(e *matching.Engine) *TransactionHandler {
	return &TransactionHandler{engine: e}
}

func (h *TransactionHandler) Unmatched(c *gin.Context) {
	txs, err := h.engine.Unmatched()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *TransactionHandler) UnmatchedCount(c *gin.Context) {
	count, err := h.engine.UnmatchedCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *TransactionHandler) MatchAll(c *gin.Context) {
	matched, err := h.engine.MatchAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matched": matched})
}

// ManualMatch attributes a transaction to an explicit payer and billing
// period, bypassing the strategy chain.
func (h *TransactionHandler) ManualMatch(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	payerID, err := uuid.Parse(c.Query("payerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payer ID"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be between 1 and 12"})
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	payment, err := h.engine.ManuallyMatch(txID, payerID, month, year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payment)
}
