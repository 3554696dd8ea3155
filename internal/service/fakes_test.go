package service

import (
	"context"
	"sync"
	"sync/atomic"

	"floatchat/internal/model"
)

type fakeOracle struct {
	response string
	err      error
	calls    atomic.Int32
	prompts  []string
	mu       sync.Mutex
	block    bool // wait for ctx cancellation instead of answering
}

func (f *fakeOracle) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

type fakeStore struct {
	rows    []model.Row
	err     error
	panics  bool
	mu      sync.Mutex
	queries []model.CompiledQuery
}

func (f *fakeStore) Execute(ctx context.Context, q model.CompiledQuery) ([]model.Row, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.panics {
		panic("store exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.rows, nil
}

type fakeIndex struct {
	hits map[string][]model.ContextItem
	errs   map[string]error
	panics map[string]bool
	mu     sync.Mutex
	seen []searchCall
}

type searchCall struct {
	collection string
	text       string
	k          int
}

func (f *fakeIndex) Search(ctx context.Context, collection, text string, k int) ([]model.ContextItem, error) {
	f.mu.Lock()
	f.seen = append(f.seen, searchCall{collection: collection, text: text, k: k})
	f.mu.Unlock()
	if f.panics[collection] {
		panic("index exploded")
	}
	if err := f.errs[collection]; err != nil {
		return nil, err
	}
	hits := f.hits[collection]
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	records []model.AuditRecord
	ctxErrs []error
}

func (f *fakeAudit) Record(ctx context.Context, rec model.AuditRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
}

func (f *fakeAudit) last() model.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[len(f.records)-1]
}

func items(collection string, n int) []model.ContextItem {
	out := make([]model.ContextItem, n)
	for i := range out {
		out[i] = model.ContextItem{
			DocumentText:       collection + " doc",
			Metadata:           model.JSONMap{"rank": i},
			SimilarityDistance: float64(i) * 0.1,
			SourceCollection:   collection,
		}
	}
	return out
}
