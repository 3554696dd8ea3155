package index

import (
	"context"
	"fmt"
	"strings"

	"floatchat/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
)

// Embedder turns texts into vectors.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// PGVector stores documents and their embeddings in the context_documents
// table and ranks them with the cosine distance operator.
type PGVector struct {
	db       *sqlx.DB
	embedder Embedder
}

// NewPGVector creates a pgvector backed index.
func NewPGVector(db *sqlx.DB, embedder Embedder) *PGVector {
	return &PGVector{db: db, embedder: embedder}
}

type vectorHit struct {
	Document string        `db:"document"`
	Metadata model.JSONMap `db:"metadata"`
	Distance float64       `db:"distance"`
}

// Search implements Index.
func (p *PGVector) Search(ctx context.Context, collection, text string, k int) ([]model.ContextItem, error) {
	if k <= 0 {
		return []model.ContextItem{}, nil
	}
	vectors, err := p.embedder.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}

	query := `
		SELECT document, metadata, embedding <=> $1 AS distance
		FROM context_documents
		WHERE collection = $2
		ORDER BY distance
		LIMIT $3
	`
	var hits []vectorHit
	if err := p.db.SelectContext(ctx, &hits, query, pgvector.NewVector(vectors[0]), collection, k); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", collection, err)
	}

	items := make([]model.ContextItem, 0, len(hits))
	for _, h := range hits {
		meta := h.Metadata
		if meta == nil {
			meta = model.JSONMap{}
		}
		items = append(items, model.ContextItem{
			DocumentText:       h.Document,
			Metadata:           meta,
			SimilarityDistance: h.Distance,
			SourceCollection:   collection,
		})
	}
	return items, nil
}

// Upsert implements Index. Embeddings are computed for the whole batch
// before anything is written.
func (p *PGVector) Upsert(ctx context.Context, collection string, docs []model.Document) (int, []string) {
	success := 0
	var errors []string

	valid := make([]model.Document, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" || doc.ID == "" {
			errors = append(errors, fmt.Sprintf("document %d: id and text are required", i))
			continue
		}
		valid = append(valid, doc)
		texts = append(texts, doc.Text)
	}
	if len(valid) == 0 {
		return success, errors
	}

	vectors, err := p.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to create embeddings: %v", err))
		return success, errors
	}
	if len(vectors) != len(valid) {
		errors = append(errors, fmt.Sprintf("expected %d embeddings, got %d", len(valid), len(vectors)))
		return success, errors
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO context_documents (collection, id, document, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id)
		DO UPDATE SET document = EXCLUDED.document, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding
	`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for i, doc := range valid {
		meta := doc.Metadata
		if meta == nil {
			meta = model.JSONMap{}
		}
		if _, err := stmt.ExecContext(ctx, collection, doc.ID, doc.Text, meta, pgvector.NewVector(vectors[i])); err != nil {
			errors = append(errors, fmt.Sprintf("id %s: %v", doc.ID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}
	return success, errors
}

// Count implements Index.
func (p *PGVector) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM context_documents WHERE collection = $1`, collection); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return n, nil
}
