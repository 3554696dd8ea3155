package index

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"floatchat/internal/model"

	"github.com/google/uuid"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\d+(?:\.\d+)?`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "me": {}, "of": {}, "on": {},
	"or": {}, "show": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"what": {}, "with": {},
}

type entry struct {
	doc    model.Document
	vector map[string]float64
	norm   float64
}

// Memory is an in-process index that scores documents by cosine
// similarity of their term-frequency vectors.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]*entry
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]*entry)}
}

// Search implements Index. Distance is 1 minus cosine similarity; ties keep
// insertion order.
func (m *Memory) Search(ctx context.Context, collection, text string, k int) ([]model.ContextItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []model.ContextItem{}, nil
	}

	qv, qn := vectorize(text)

	m.mu.RLock()
	entries := m.collections[collection]
	type scored struct {
		e    *entry
		dist float64
	}
	hits := make([]scored, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, scored{e: e, dist: 1 - cosine(qv, qn, e.vector, e.norm)})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if k > len(hits) {
		k = len(hits)
	}

	items := make([]model.ContextItem, 0, k)
	for _, h := range hits[:k] {
		items = append(items, model.ContextItem{
			DocumentText:       h.e.doc.Text,
			Metadata:           copyMetadata(h.e.doc.Metadata),
			SimilarityDistance: h.dist,
			SourceCollection:   collection,
		})
	}
	return items, nil
}

// Upsert implements Index. A document with an existing ID replaces it in
// place.
func (m *Memory) Upsert(ctx context.Context, collection string, docs []model.Document) (int, []string) {
	var errs []string
	if err := ctx.Err(); err != nil {
		return 0, []string{err.Error()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.collections[collection]
	pos := make(map[string]int, len(entries))
	for i, e := range entries {
		pos[e.doc.ID] = i
	}

	success := 0
	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			errs = append(errs, fmt.Sprintf("document %d: empty text", i))
			continue
		}
		if doc.ID == "" {
			doc.ID = collection + "_" + uuid.NewString()
		}
		vec, norm := vectorize(doc.Text)
		e := &entry{doc: model.Document{ID: doc.ID, Text: doc.Text, Metadata: copyMetadata(doc.Metadata)}, vector: vec, norm: norm}
		if at, ok := pos[doc.ID]; ok {
			entries[at] = e
		} else {
			pos[doc.ID] = len(entries)
			entries = append(entries, e)
		}
		success++
	}
	m.collections[collection] = entries
	return success, errs
}

// Count implements Index.
func (m *Memory) Count(_ context.Context, collection string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.collections[collection])), nil
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func vectorize(text string) (map[string]float64, float64) {
	vec := make(map[string]float64)
	for _, tok := range tokenize(text) {
		vec[tok]++
	}
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	return vec, math.Sqrt(sum)
}

func cosine(a map[string]float64, an float64, b map[string]float64, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, v := range a {
		dot += v * b[term]
	}
	return dot / (an * bn)
}
