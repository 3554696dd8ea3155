package model

import (
	"encoding/json"
	"time"
)

// Row is one record returned by the structured store, keyed by column name.
type Row map[string]interface{}

// QueryResultEnvelope is the response of one pipeline run. A failed run
// serializes without intent, compiled query, context and rows.
type QueryResultEnvelope struct {
	Success       bool           `json:"success"`
	OriginalText  string         `json:"original_text"`
	Intent        *QueryIntent   `json:"intent,omitempty"`
	CompiledQuery *CompiledQuery `json:"compiled_query,omitempty"`
	Context       []ContextItem  `json:"context"`
	Rows          []Row          `json:"rows"`
	ResponseText  string         `json:"response_text"`
	Error         string         `json:"error,omitempty"`
	Metadata      ResultMetadata `json:"metadata"`
}

type envelopeJSON QueryResultEnvelope

type failedEnvelopeJSON struct {
	Success      bool           `json:"success"`
	OriginalText string         `json:"original_text"`
	ResponseText string         `json:"response_text"`
	Error        string         `json:"error,omitempty"`
	Metadata     ResultMetadata `json:"metadata"`
}

// MarshalJSON always emits context and rows for a successful run, as empty
// arrays when nothing was found.
func (e QueryResultEnvelope) MarshalJSON() ([]byte, error) {
	if !e.Success {
		return json.Marshal(failedEnvelopeJSON{
			Success:      false,
			OriginalText: e.OriginalText,
			ResponseText: e.ResponseText,
			Error:        e.Error,
			Metadata:     e.Metadata,
		})
	}
	out := envelopeJSON(e)
	if out.Context == nil {
		out.Context = []ContextItem{}
	}
	if out.Rows == nil {
		out.Rows = []Row{}
	}
	return json.Marshal(out)
}

// ResultMetadata carries counters and timing for an envelope.
type ResultMetadata struct {
	RowCount  int       `json:"row_count"`
	Timestamp time.Time `json:"timestamp"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// QueryRequest is the body of POST /api/v1/query
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse wraps the envelope with follow-up suggestions.
type QueryResponse struct {
	QueryResultEnvelope
	Suggestions []string `json:"suggestions"`
	RequestID   string   `json:"request_id"`
}

// MarshalJSON appends the response fields to the envelope object. Without
// it the envelope's MarshalJSON would be promoted and drop them.
func (r QueryResponse) MarshalJSON() ([]byte, error) {
	env, err := r.QueryResultEnvelope.MarshalJSON()
	if err != nil {
		return nil, err
	}
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	extra, err := json.Marshal(struct {
		Suggestions []string `json:"suggestions"`
		RequestID   string   `json:"request_id"`
	}{suggestions, r.RequestID})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(env)+len(extra))
	out = append(out, env[:len(env)-1]...)
	out = append(out, ',')
	return append(out, extra[1:]...), nil
}
