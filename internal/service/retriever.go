package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/metrics"
	"floatchat/internal/model"
)

// DefaultContextPhrase is searched when an intent carries no terms.
const DefaultContextPhrase = "ocean sensor data"

// RetrieverConfig names the collections searched and how many hits each
// contributes.
type RetrieverConfig struct {
	ProfileCollection string
	FloatCollection   string
	ProfileHits       int
	FloatHits         int
}

// ContextRetriever gathers supporting documents for an intent.
type ContextRetriever struct {
	index SimilarityIndex
	cfg   RetrieverConfig
	log   logger.Logger
}

// NewContextRetriever creates a new context retriever. index may be nil,
// in which case no context is returned.
func NewContextRetriever(index SimilarityIndex, cfg RetrieverConfig, log logger.Logger) *ContextRetriever {
	if cfg.ProfileCollection == "" {
		cfg.ProfileCollection = "argo_profiles"
	}
	if cfg.FloatCollection == "" {
		cfg.FloatCollection = "argo_floats"
	}
	return &ContextRetriever{
		index: index,
		cfg:   cfg,
		log:   log.With(map[string]interface{}{"component": "context_retriever"}),
	}
}

// ContextPhrase joins the intent's parameters, region name and tag.
func ContextPhrase(intent model.QueryIntent) string {
	parts := make([]string, 0, len(intent.Parameters)+2)
	parts = append(parts, intent.Parameters...)
	if intent.Geo != nil && intent.Geo.RegionName != "" {
		parts = append(parts, intent.Geo.RegionName)
	}
	if intent.Intent != "" {
		parts = append(parts, string(intent.Intent))
	}
	phrase := strings.TrimSpace(strings.Join(parts, " "))
	if phrase == "" {
		return DefaultContextPhrase
	}
	return phrase
}

// Retrieve never fails. Profile hits come first, then float hits, each in
// the order the index returned them.
func (r *ContextRetriever) Retrieve(ctx context.Context, intent model.QueryIntent) []model.ContextItem {
	if r.index == nil {
		return []model.ContextItem{}
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	phrase := ContextPhrase(intent)

	var (
		wg       sync.WaitGroup
		profiles []model.ContextItem
		floats   []model.ContextItem
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		profiles = r.search(ctx, r.cfg.ProfileCollection, phrase, r.cfg.ProfileHits)
	}()
	go func() {
		defer wg.Done()
		floats = r.search(ctx, r.cfg.FloatCollection, phrase, r.cfg.FloatHits)
	}()
	wg.Wait()

	out := make([]model.ContextItem, 0, len(profiles)+len(floats))
	out = append(out, profiles...)
	return append(out, floats...)
}

// search recovers a panicking index; that collection then contributes
// nothing.
func (r *ContextRetriever) search(ctx context.Context, collection, phrase string, k int) (hits []model.ContextItem) {
	if k <= 0 {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("context search panic", map[string]interface{}{
				"collection": collection,
				"panic":      fmt.Sprint(rec),
			})
			metrics.RetrievalFailures.WithLabelValues(collection).Inc()
			hits = nil
		}
	}()
	hits, err := r.index.Search(ctx, collection, phrase, k)
	if err != nil {
		perr := newPipelineError(ErrRetrieval, "retrieve "+collection, err)
		r.log.WithError(perr).Warn("context search failed", map[string]interface{}{
			"collection": collection,
			"phrase":     phrase,
		})
		metrics.RetrievalFailures.WithLabelValues(collection).Inc()
		return nil
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		if hits[i].SourceCollection == "" {
			hits[i].SourceCollection = collection
		}
	}
	return hits
}
