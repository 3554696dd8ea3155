package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/metrics"
	"floatchat/internal/model"
)

// NoDataResponse is returned whenever a query matched no rows.
const NoDataResponse = "No ARGO data found matching your query criteria."

const sampleRows = 3

const answerPromptTemplate = `You are an oceanographer answering questions about ARGO float data.

Question: %s
Intent: %s
Matching records: %d
Columns: %s
First records:
%s

Answer the question in a few sentences using only these records. Mention the record count and any notable values.`

// ResponseSynthesizer writes the final answer text for a set of rows.
type ResponseSynthesizer struct {
	oracle  Oracle
	timeout time.Duration
	log     logger.Logger
}

// NewResponseSynthesizer creates a new response synthesizer. oracle may be
// nil, in which case the deterministic summary is always used.
func NewResponseSynthesizer(oracle Oracle, timeout time.Duration, log logger.Logger) *ResponseSynthesizer {
	return &ResponseSynthesizer{
		oracle:  oracle,
		timeout: timeout,
		log:     log.With(map[string]interface{}{"component": "response_synthesizer"}),
	}
}

// FallbackResponse is the answer used when the oracle cannot help.
func FallbackResponse(rowCount int) string {
	return fmt.Sprintf("Found %d matching records. Please refer to the data table for details.", rowCount)
}

// Synthesize never fails.
func (s *ResponseSynthesizer) Synthesize(ctx context.Context, rows []model.Row, question string, intent model.QueryIntent) string {
	if len(rows) == 0 {
		metrics.SynthesisPath.WithLabelValues("no_data").Inc()
		return NoDataResponse
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("synthesize").Observe(time.Since(start).Seconds())
	}()

	answer, err := s.generate(ctx, rows, question, intent)
	if err != nil {
		s.log.WithError(err).Info("using fallback answer", map[string]interface{}{"rows": len(rows)})
		metrics.SynthesisPath.WithLabelValues("fallback").Inc()
		return FallbackResponse(len(rows))
	}
	metrics.SynthesisPath.WithLabelValues("oracle").Inc()
	return answer
}

func (s *ResponseSynthesizer) generate(ctx context.Context, rows []model.Row, question string, intent model.QueryIntent) (string, error) {
	if s.oracle == nil {
		return "", newPipelineError(ErrOracleUnavailable, "synthesize", fmt.Errorf("oracle not configured"))
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.oracle.Generate(callCtx, buildAnswerPrompt(rows, question, intent))
	if err != nil {
		return "", newPipelineError(ErrOracleUnavailable, "synthesize", err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", newPipelineError(ErrOracleMalformedOutput, "synthesize", fmt.Errorf("blank answer"))
	}
	return answer, nil
}

func buildAnswerPrompt(rows []model.Row, question string, intent model.QueryIntent) string {
	sample := rows
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}
	lines := make([]string, 0, len(sample))
	for _, row := range sample {
		b, err := json.Marshal(row)
		if err != nil {
			b = []byte(fmt.Sprintf("%v", row))
		}
		lines = append(lines, string(b))
	}
	return fmt.Sprintf(answerPromptTemplate,
		question, intent.Intent, len(rows), strings.Join(ColumnNames(rows), ", "), strings.Join(lines, "\n"))
}

// ColumnNames returns the first row's keys in sorted order.
func ColumnNames(rows []model.Row) []string {
	if len(rows) == 0 {
		return []string{}
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
