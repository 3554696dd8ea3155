package handler

import (
	"context"
	"net/http"
	"strconv"

	"floatchat/internal/model"

	"github.com/gin-gonic/gin"
)

// HistoryReader lists recent audit records.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]model.AuditRecord, error)
}

// HistoryHandler serves the query audit log
type HistoryHandler struct {
	reader HistoryReader
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(reader HistoryReader) *HistoryHandler {
	return &HistoryHandler{
		reader: reader,
	}
}

// List handles GET /api/v1/history?limit=N
func (h *HistoryHandler) List(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	records, err := h.reader.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history: " + err.Error()})
		return
	}
	if records == nil {
		records = []model.AuditRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"queries": records, "count": len(records)})
}
