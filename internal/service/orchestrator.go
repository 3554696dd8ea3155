package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/metrics"
	"floatchat/internal/model"

	"github.com/google/uuid"
)

const defaultAuditTimeout = 5 * time.Second

// EventCallback receives pipeline stage results as they become available.
// Events: intent, query, context, rows, answer.
type EventCallback func(event string, data any)

// QueryOrchestrator runs the full question-to-answer pipeline.
type QueryOrchestrator struct {
	parser       *IntentParser
	compiler     *QueryCompiler
	retriever    *ContextRetriever
	store        Store
	synthesizer  *ResponseSynthesizer
	audit        AuditSink
	auditTimeout time.Duration
	log          logger.Logger
	now          func() time.Time
}

// NewQueryOrchestrator creates a new orchestrator. audit may be nil.
func NewQueryOrchestrator(
	parser *IntentParser,
	compiler *QueryCompiler,
	retriever *ContextRetriever,
	store Store,
	synthesizer *ResponseSynthesizer,
	audit AuditSink,
	log logger.Logger,
) *QueryOrchestrator {
	return &QueryOrchestrator{
		parser:       parser,
		compiler:     compiler,
		retriever:    retriever,
		store:        store,
		synthesizer:  synthesizer,
		audit:        audit,
		auditTimeout: defaultAuditTimeout,
		log:          log.With(map[string]interface{}{"component": "orchestrator"}),
		now:          time.Now,
	}
}

// run tracks what a single Process call has produced so far.
type run struct {
	text   string
	start  time.Time
	intent *model.QueryIntent
	query  *model.CompiledQuery
}

// Process answers one question. It never returns an error: failures come
// back as an envelope with Success=false.
func (o *QueryOrchestrator) Process(ctx context.Context, text string) model.QueryResultEnvelope {
	return o.ProcessStream(ctx, text, nil)
}

// ProcessStream is Process with stage events delivered to cb as they
// happen. cb may be nil.
func (o *QueryOrchestrator) ProcessStream(ctx context.Context, text string, cb EventCallback) (env model.QueryResultEnvelope) {
	r := &run{text: text, start: time.Now()}
	emit := func(event string, data any) {
		if cb != nil {
			cb(event, data)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("pipeline panic", map[string]interface{}{"panic": fmt.Sprint(rec), "query": text})
			env = o.fail(ctx, r, newPipelineError(ErrUnexpectedInternal, "process", fmt.Errorf("panic: %v", rec)))
		}
	}()

	intent := o.parser.Parse(ctx, text)
	r.intent = &intent
	emit("intent", intent)

	query := o.compiler.Compile(intent)
	r.query = &query
	emit("query", query)

	var (
		wg       sync.WaitGroup
		items    []model.ContextItem
		rows     []model.Row
		storeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		items = o.retrieve(ctx, intent)
	}()
	go func() {
		defer wg.Done()
		rows, storeErr = o.execute(ctx, query)
	}()
	wg.Wait()

	if storeErr != nil {
		return o.fail(ctx, r, storeErr)
	}
	emit("context", items)
	emit("rows", rows)

	answer := o.synthesizer.Synthesize(ctx, rows, text, intent)
	emit("answer", answer)

	env = model.QueryResultEnvelope{
		Success:       true,
		OriginalText:  text,
		Intent:        &intent,
		CompiledQuery: &query,
		Context:       items,
		Rows:          rows,
		ResponseText:  answer,
		Metadata: model.ResultMetadata{
			RowCount:  len(rows),
			Timestamp: o.now().UTC(),
			ElapsedMs: time.Since(r.start).Milliseconds(),
		},
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.auditTimeout)
	defer cancel()
	o.record(auditCtx, r, env, "")
	metrics.QueriesProcessed.WithLabelValues("success").Inc()
	o.log.Info("query processed", map[string]interface{}{
		"intent":     string(intent.Intent),
		"rows":       len(rows),
		"context":    len(items),
		"elapsed_ms": env.Metadata.ElapsedMs,
	})
	return env
}

func (o *QueryOrchestrator) retrieve(ctx context.Context, intent model.QueryIntent) (items []model.ContextItem) {
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("context retrieval panic", map[string]interface{}{"panic": fmt.Sprint(rec)})
			items = []model.ContextItem{}
		}
	}()
	if o.retriever == nil {
		return []model.ContextItem{}
	}
	return o.retriever.Retrieve(ctx, intent)
}

func (o *QueryOrchestrator) execute(ctx context.Context, query model.CompiledQuery) (rows []model.Row, err error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("execute").Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			rows, err = nil, newPipelineError(ErrUnexpectedInternal, "execute", fmt.Errorf("panic: %v", rec))
		}
	}()

	rows, err = o.store.Execute(ctx, query)
	if err != nil {
		return nil, newPipelineError(ErrStoreExecution, "execute", err)
	}
	if rows == nil {
		rows = []model.Row{}
	}
	return rows, nil
}

// FailureResponse is the user-facing sentence for a failed run.
func FailureResponse(err error) string {
	return fmt.Sprintf("I encountered an error processing your query: %v. Please try rephrasing your question.", err)
}

func (o *QueryOrchestrator) fail(ctx context.Context, r *run, err error) model.QueryResultEnvelope {
	env := model.QueryResultEnvelope{
		Success:      false,
		OriginalText: r.text,
		ResponseText: FailureResponse(err),
		Error:        err.Error(),
		Metadata: model.ResultMetadata{
			Timestamp: o.now().UTC(),
			ElapsedMs: time.Since(r.start).Milliseconds(),
		},
	}

	o.log.WithError(err).Error("query failed", map[string]interface{}{
		"code":  ErrorCode(err),
		"query": r.text,
	})
	metrics.QueriesProcessed.WithLabelValues("failure").Inc()

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.auditTimeout)
	defer cancel()
	o.record(auditCtx, r, env, err.Error())
	return env
}

func (o *QueryOrchestrator) record(ctx context.Context, r *run, env model.QueryResultEnvelope, errMsg string) {
	if o.audit == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("audit sink panic", map[string]interface{}{"panic": fmt.Sprint(rec)})
		}
	}()

	rec := model.AuditRecord{
		ID:              uuid.NewString(),
		UserQuery:       r.text,
		Response:        env.ResponseText,
		ExecutionTimeMs: env.Metadata.ElapsedMs,
		Success:         env.Success,
		ErrorMessage:    errMsg,
		CreatedAt:       env.Metadata.Timestamp,
	}
	if r.intent != nil {
		if b, err := json.Marshal(r.intent); err == nil {
			rec.ProcessedIntent = string(b)
		}
	}
	if r.query != nil {
		rec.CompiledQuery = r.query.String()
	}
	o.audit.Record(ctx, rec)
}
