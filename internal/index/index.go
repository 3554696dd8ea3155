// Package index holds the similarity index backends that serve context
// documents to the query pipeline.
package index

import (
	"context"
	"errors"

	"floatchat/internal/model"
)

// ErrUnknownBackend is returned by callers selecting a backend by name.
var ErrUnknownBackend = errors.New("UNKNOWN_INDEX_BACKEND")

// Index is a collection-scoped similarity index. Search returns at most k
// items ordered by ascending distance.
type Index interface {
	Search(ctx context.Context, collection, text string, k int) ([]model.ContextItem, error)
	Upsert(ctx context.Context, collection string, docs []model.Document) (int, []string)
	Count(ctx context.Context, collection string) (int64, error)
}

// Backends lists the accepted backend names.
var Backends = []string{"memory", "pgvector", "elasticsearch"}

// copyMetadata returns a fresh map so callers never share index state.
func copyMetadata(m model.JSONMap) model.JSONMap {
	out := make(model.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
