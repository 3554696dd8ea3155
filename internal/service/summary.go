package service

import (
	"context"
	"fmt"

	"floatchat/internal/logger"
	"floatchat/internal/model"
)

// SummarySource aggregates the structured store.
type SummarySource interface {
	DataSummary(ctx context.Context) (*model.DataSummary, error)
}

// DocumentCounter reports how many documents a collection holds.
type DocumentCounter interface {
	Count(ctx context.Context, collection string) (int64, error)
}

// DataSummarizer combines store aggregates with index document counts.
type DataSummarizer struct {
	source      SummarySource
	counter     DocumentCounter
	collections []string
	log         logger.Logger
}

// NewDataSummarizer creates a new summarizer. counter may be nil.
func NewDataSummarizer(source SummarySource, counter DocumentCounter, collections []string, log logger.Logger) *DataSummarizer {
	return &DataSummarizer{
		source:      source,
		counter:     counter,
		collections: collections,
		log:         log.With(map[string]interface{}{"component": "data_summary"}),
	}
}

// Summary returns the current data summary. A failing document count is
// logged and left out.
func (s *DataSummarizer) Summary(ctx context.Context) (*model.DataSummary, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no structured store configured")
	}
	summary, err := s.source.DataSummary(ctx)
	if err != nil {
		return nil, err
	}

	if s.counter != nil && len(s.collections) > 0 {
		summary.IndexedDocuments = make(map[string]int64, len(s.collections))
		for _, c := range s.collections {
			n, err := s.counter.Count(ctx, c)
			if err != nil {
				s.log.Warn("document count failed", map[string]interface{}{"collection": c, "error": err.Error()})
				continue
			}
			summary.IndexedDocuments[c] = n
		}
	}
	return summary, nil
}
