package service

import (
	"context"

	"floatchat/internal/model"
)

// Oracle is the text-generation capability used for intent parsing and
// answer synthesis. Implementations may be slow, unavailable, or return
// text that does not follow the requested format.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into vectors for similarity indexes.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Store executes compiled queries against structured records. It returns
// an empty slice when nothing matches.
type Store interface {
	Execute(ctx context.Context, q model.CompiledQuery) ([]model.Row, error)
}

// SimilarityIndex finds the k documents closest to text in a collection,
// ordered by ascending distance.
type SimilarityIndex interface {
	Search(ctx context.Context, collection, text string, k int) ([]model.ContextItem, error)
}

// AuditSink records one entry per pipeline run. It never reports errors to
// the caller.
type AuditSink interface {
	Record(ctx context.Context, rec model.AuditRecord)
}

// Ensure OpenAIClient implements Oracle and Embedder
var (
	_ Oracle   = (*OpenAIClient)(nil)
	_ Embedder = (*OpenAIClient)(nil)
)
