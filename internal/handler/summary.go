package handler

import (
	"context"
	"net/http"

	"floatchat/internal/model"

	"github.com/gin-gonic/gin"
)

// SummaryProvider produces the data summary.
type SummaryProvider interface {
	Summary(ctx context.Context) (*model.DataSummary, error)
}

// SummaryHandler handles GET /api/v1/summary
type SummaryHandler struct {
	provider SummaryProvider
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(provider SummaryProvider) *SummaryHandler {
	return &SummaryHandler{provider: provider}
}

// Get handles GET /api/v1/summary
func (h *SummaryHandler) Get(c *gin.Context) {
	summary, err := h.provider.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to build summary: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
