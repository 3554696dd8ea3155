package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"floatchat/internal/model"
	"floatchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Pipeline answers natural-language questions.
type Pipeline interface {
	Process(ctx context.Context, text string) model.QueryResultEnvelope
	ProcessStream(ctx context.Context, text string, cb service.EventCallback) model.QueryResultEnvelope
}

// QueryHandler handles question-answering HTTP requests
type QueryHandler struct {
	pipeline Pipeline
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(pipeline Pipeline) *QueryHandler {
	return &QueryHandler{
		pipeline: pipeline,
	}
}

// Query handles POST /api/v1/query. Pipeline failures are reported inside
// the envelope with a 200 status.
func (h *QueryHandler) Query(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	env := h.pipeline.Process(c.Request.Context(), req.Query)
	c.JSON(http.StatusOK, newQueryResponse(env))
}

// QueryStream handles POST /api/v1/query/stream - SSE streaming of the
// pipeline stages
func (h *QueryHandler) QueryStream(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"query": req.Query})
	flusher.Flush()

	env := h.pipeline.ProcessStream(c.Request.Context(), req.Query, func(event string, data any) {
		sendSSE(c, event, data)
		flusher.Flush()
	})

	if !env.Success {
		sendSSE(c, "error", map[string]any{"error": env.Error, "response_text": env.ResponseText})
		flusher.Flush()
	}

	sendSSE(c, "result", newQueryResponse(env))
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

func newQueryResponse(env model.QueryResultEnvelope) model.QueryResponse {
	suggestions := []string{}
	if env.Success {
		suggestions = service.SuggestFollowUps(env)
	}
	return model.QueryResponse{
		QueryResultEnvelope: env,
		Suggestions:         suggestions,
		RequestID:           uuid.NewString(),
	}
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
