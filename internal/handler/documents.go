package handler

import (
	"context"
	"net/http"
	"strconv"

	"floatchat/internal/model"

	"github.com/gin-gonic/gin"
)

// DocumentStore accepts context documents and rebuilds collections.
type DocumentStore interface {
	Collections() []string
	Upsert(ctx context.Context, collection string, docs []model.Document) model.DocumentBatchResponse
	Reindex(ctx context.Context, limit int) ([]model.DocumentBatchResponse, error)
}

// DocumentHandler handles context document HTTP requests
type DocumentHandler struct {
	store    DocumentStore
	maxBatch int
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(store DocumentStore, maxBatch int) *DocumentHandler {
	if maxBatch <= 0 {
		maxBatch = 500
	}
	return &DocumentHandler{
		store:    store,
		maxBatch: maxBatch,
	}
}

// Upsert handles POST /api/v1/documents/:collection
func (h *DocumentHandler) Upsert(c *gin.Context) {
	collection := c.Param("collection")
	if !h.knownCollection(collection) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown collection: " + collection})
		return
	}

	var req model.DocumentBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No documents provided"})
		return
	}
	if len(req.Documents) > h.maxBatch {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Too many documents, at most " + strconv.Itoa(h.maxBatch) + " per request",
		})
		return
	}

	response := h.store.Upsert(c.Request.Context(), collection, req.Documents)

	if len(response.Errors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}

// Reindex handles POST /api/v1/reindex?limit=N
func (h *DocumentHandler) Reindex(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	results, err := h.store.Reindex(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reindex failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": results})
}

func (h *DocumentHandler) knownCollection(name string) bool {
	for _, c := range h.store.Collections() {
		if c == name {
			return true
		}
	}
	return false
}
