package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floatchat/internal/model"
	"floatchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPipeline struct {
	env   model.QueryResultEnvelope
	texts []string
}

func (s *stubPipeline) Process(_ context.Context, text string) model.QueryResultEnvelope {
	s.texts = append(s.texts, text)
	return s.env
}

func (s *stubPipeline) ProcessStream(ctx context.Context, text string, cb service.EventCallback) model.QueryResultEnvelope {
	if s.env.Success && cb != nil {
		cb("intent", s.env.Intent)
		cb("answer", s.env.ResponseText)
	}
	return s.Process(ctx, text)
}

func okEnvelope() model.QueryResultEnvelope {
	return model.QueryResultEnvelope{
		Success:      true,
		OriginalText: "temperature in the Indian Ocean",
		Intent: &model.QueryIntent{
			Intent:     model.IntentProfileAnalysis,
			Parameters: []string{"temperature"},
			Confidence: 0.5,
		},
		Context:      []model.ContextItem{},
		Rows:         []model.Row{{"float_id": "2902746"}},
		ResponseText: "Found 1 records matching your query.",
		Metadata:     model.ResultMetadata{RowCount: 1, Timestamp: time.Now().UTC()},
	}
}

func newRouter(p Pipeline, docs DocumentStore, summary SummaryProvider, history HistoryReader) *gin.Engine {
	r := gin.New()
	v1 := r.Group("/api/v1")
	if p != nil {
		qh := NewQueryHandler(p)
		v1.POST("/query", qh.Query)
		v1.POST("/query/stream", qh.QueryStream)
	}
	if docs != nil {
		dh := NewDocumentHandler(docs, 2)
		v1.POST("/documents/:collection", dh.Upsert)
		v1.POST("/reindex", dh.Reindex)
	}
	if summary != nil {
		v1.GET("/summary", NewSummaryHandler(summary).Get)
	}
	if history != nil {
		v1.GET("/history", NewHistoryHandler(history).List)
	}
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQuery_Success(t *testing.T) {
	p := &stubPipeline{env: okEnvelope()}
	w := doRequest(newRouter(p, nil, nil, nil), http.MethodPost, "/api/v1/query", `{"query":"temperature in the Indian Ocean"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Metadata.RowCount)
	assert.NotEmpty(t, resp.RequestID)
	assert.Len(t, resp.Suggestions, 3)
	assert.Equal(t, []string{"temperature in the Indian Ocean"}, p.texts)
}

func TestQuery_EmptyQueryIsProcessed(t *testing.T) {
	p := &stubPipeline{env: okEnvelope()}
	w := doRequest(newRouter(p, nil, nil, nil), http.MethodPost, "/api/v1/query", `{"query":""}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{""}, p.texts)
}

func TestQuery_InvalidBody(t *testing.T) {
	p := &stubPipeline{}
	w := doRequest(newRouter(p, nil, nil, nil), http.MethodPost, "/api/v1/query", `{"query":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request")
	assert.Empty(t, p.texts)
}

func TestQuery_FailureEnvelopeHasNoSuggestions(t *testing.T) {
	p := &stubPipeline{env: model.QueryResultEnvelope{
		Success:      false,
		ResponseText: service.FailureResponse(errors.New("execute: boom")),
		Error:        "execute: boom",
		Context:      []model.ContextItem{},
		Rows:         []model.Row{},
	}}
	w := doRequest(newRouter(p, nil, nil, nil), http.MethodPost, "/api/v1/query", `{"query":"x"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Suggestions)
	assert.Nil(t, resp.Intent)
	assert.NotContains(t, w.Body.String(), `"rows"`)
	assert.NotContains(t, w.Body.String(), `"context"`)
}

func TestQueryStream_EmitsEvents(t *testing.T) {
	p := &stubPipeline{env: okEnvelope()}
	w := doRequest(newRouter(p, nil, nil, nil), http.MethodPost, "/api/v1/query/stream", `{"query":"temperature"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	assert.Equal(t, []string{"start", "intent", "answer", "result", "done"}, events)
}

func TestQueryStream_Failure(t *testing.T) {
	p := &stubPipeline{env: model.QueryResultEnvelope{Error: "execute: boom"}}
	w := doRequest(newRouter(p, nil, nil, nil), http.MethodPost, "/api/v1/query/stream", `{"query":"temperature"}`)

	assert.Contains(t, w.Body.String(), "event: error\ndata: {\"error\":\"execute: boom\"")
}

type stubDocs struct {
	response  model.DocumentBatchResponse
	reindexed int
	err       error
}

func (s *stubDocs) Collections() []string { return []string{"argo_profiles", "argo_floats"} }

func (s *stubDocs) Upsert(_ context.Context, collection string, docs []model.Document) model.DocumentBatchResponse {
	r := s.response
	r.Collection = collection
	return r
}

func (s *stubDocs) Reindex(_ context.Context, limit int) ([]model.DocumentBatchResponse, error) {
	s.reindexed = limit
	if s.err != nil {
		return nil, s.err
	}
	return []model.DocumentBatchResponse{{Collection: "argo_profiles", Success: 2}}, nil
}

func TestDocuments_Upsert(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		response model.DocumentBatchResponse
		want     int
	}{
		{
			name:     "all written",
			path:     "/api/v1/documents/argo_profiles",
			body:     `{"documents":[{"id":"a","text":"ARGO float 1."}]}`,
			response: model.DocumentBatchResponse{Success: 1},
			want:     http.StatusOK,
		},
		{
			name:     "partial failure",
			path:     "/api/v1/documents/argo_floats",
			body:     `{"documents":[{"id":"a","text":"x"},{"id":"b","text":"y"}]}`,
			response: model.DocumentBatchResponse{Success: 1, Failed: 1, Errors: []string{"id b: boom"}},
			want:     http.StatusPartialContent,
		},
		{
			name: "unknown collection",
			path: "/api/v1/documents/argo_listings",
			body: `{"documents":[{"id":"a","text":"x"}]}`,
			want: http.StatusNotFound,
		},
		{
			name: "missing text",
			path: "/api/v1/documents/argo_profiles",
			body: `{"documents":[{"id":"a"}]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "empty batch",
			path: "/api/v1/documents/argo_profiles",
			body: `{"documents":[]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "batch too large",
			path: "/api/v1/documents/argo_profiles",
			body: `{"documents":[{"text":"a"},{"text":"b"},{"text":"c"}]}`,
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &stubDocs{response: tt.response}
			w := doRequest(newRouter(nil, docs, nil, nil), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestDocuments_Reindex(t *testing.T) {
	docs := &stubDocs{}
	r := newRouter(nil, docs, nil, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/reindex?limit=50", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, docs.reindexed)
	assert.Contains(t, w.Body.String(), `"collections"`)

	w = doRequest(r, http.MethodPost, "/api/v1/reindex?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	docs.err = errors.New("no record source configured")
	w = doRequest(r, http.MethodPost, "/api/v1/reindex", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type stubSummary struct {
	summary *model.DataSummary
	err     error
}

func (s stubSummary) Summary(context.Context) (*model.DataSummary, error) { return s.summary, s.err }

func TestSummary(t *testing.T) {
	w := doRequest(newRouter(nil, nil, stubSummary{summary: &model.DataSummary{TotalFloats: 4}}, nil), http.MethodGet, "/api/v1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_floats":4`)

	w = doRequest(newRouter(nil, nil, stubSummary{err: errors.New("db down")}, nil), http.MethodGet, "/api/v1/summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type stubHistory struct {
	limit int
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]model.AuditRecord, error) {
	s.limit = limit
	return nil, nil
}

func TestHistory(t *testing.T) {
	h := &stubHistory{}
	r := newRouter(nil, nil, nil, h)

	w := doRequest(r, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, h.limit)
	assert.JSONEq(t, `{"queries":[],"count":0}`, w.Body.String())

	w = doRequest(r, http.MethodGet, "/api/v1/history?limit=1000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, h.limit)

	w = doRequest(r, http.MethodGet, "/api/v1/history?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
