package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/model"
)

const documentTimeLayout = "2006-01-02 15:04:05"

// DocumentWriter stores documents in a named collection, replacing any
// with the same ID. It reports how many were written and why others failed.
type DocumentWriter interface {
	Upsert(ctx context.Context, collection string, docs []model.Document) (int, []string)
}

// RecordSource lists the structured records documents are built from.
type RecordSource interface {
	ListProfiles(ctx context.Context, limit int) ([]model.ProfileRecord, error)
	ListFloats(ctx context.Context, limit int) ([]model.FloatRecord, error)
}

// RegionName maps coordinates to a coarse ocean region. Boxes are checked
// in order and include their edges.
func RegionName(lat, lon float64) string {
	switch {
	case -10 <= lat && lat <= 30 && 40 <= lon && lon <= 100:
		return "Indian Ocean"
	case 30 <= lat && lat <= 60 && -80 <= lon && lon <= -40:
		return "North Atlantic"
	case -60 <= lat && lat <= -30 && -80 <= lon && lon <= -40:
		return "South Atlantic"
	case 30 <= lat && lat <= 60 && 120 <= lon && lon <= 180:
		return "North Pacific"
	case -60 <= lat && lat <= -30 && 120 <= lon && lon <= 180:
		return "South Pacific"
	case -80 <= lat && lat <= -60:
		return "Southern Ocean"
	case 60 <= lat && lat <= 80:
		return "Arctic Ocean"
	default:
		return "Global Ocean"
	}
}

// BuildProfileDocument renders a profile as searchable sentences.
func BuildProfileDocument(p model.ProfileRecord) model.Document {
	lat, lon := deref(p.Latitude), deref(p.Longitude)
	region := RegionName(lat, lon)

	parts := []string{
		"ARGO float " + orUnknown(p.FloatID),
		fmt.Sprintf("Cycle number %d", p.CycleNumber),
		fmt.Sprintf("Located at %.2f°N, %.2f°E", lat, lon),
		"in the " + region,
	}
	if p.ProfileTime != nil {
		parts = append(parts, "Profile collected on "+p.ProfileTime.UTC().Format(documentTimeLayout))
	}
	if p.MaxDepth != nil && *p.MaxDepth != 0 {
		parts = append(parts, "Maximum depth "+formatNumber(*p.MaxDepth)+" meters")
	}
	if p.NumLevels != nil && *p.NumLevels != 0 {
		parts = append(parts, fmt.Sprintf("with %d measurement levels", *p.NumLevels))
	}
	if len(p.Parameters) > 0 {
		parts = append(parts, "Parameters measured: "+strings.Join(p.Parameters, ", "))
	}

	meta := model.JSONMap{
		"float_id":     p.FloatID,
		"cycle_number": p.CycleNumber,
		"latitude":     lat,
		"longitude":    lon,
		"profile_time": formatTime(p.ProfileTime),
		"max_depth":    deref(p.MaxDepth),
		"num_levels":   derefInt(p.NumLevels),
		"parameters":   []string(p.Parameters),
		"region":       region,
	}

	return model.Document{
		ID:       fmt.Sprintf("%s_%d", p.FloatID, p.CycleNumber),
		Text:     strings.Join(parts, ". ") + ".",
		Metadata: meta,
	}
}

// BuildFloatDocument renders a float as searchable sentences.
func BuildFloatDocument(f model.FloatRecord) model.Document {
	lat, lon := deref(f.Latitude), deref(f.Longitude)
	region := RegionName(lat, lon)

	parts := []string{
		"ARGO float " + orUnknown(f.FloatID),
		"WMO ID " + orUnknown(derefStr(f.WMOID)),
	}
	if s := derefStr(f.Institution); s != "" {
		parts = append(parts, "Deployed by "+s)
	}
	if s := derefStr(f.Status); s != "" {
		parts = append(parts, "Status: "+s)
	}
	if lat != 0 && lon != 0 {
		parts = append(parts, fmt.Sprintf("Located at %.2f°N, %.2f°E", lat, lon), "in the "+region)
	}
	if f.DeploymentDate != nil {
		parts = append(parts, "Deployed on "+f.DeploymentDate.UTC().Format(documentTimeLayout))
	}
	if f.LastTransmission != nil {
		parts = append(parts, "Last transmission on "+f.LastTransmission.UTC().Format(documentTimeLayout))
	}
	if n := derefInt(f.TotalProfiles); n != 0 {
		parts = append(parts, fmt.Sprintf("Has collected %d profiles", n))
	}

	meta := model.JSONMap{
		"float_id":          f.FloatID,
		"wmo_id":            derefStr(f.WMOID),
		"institution":       derefStr(f.Institution),
		"status":            derefStr(f.Status),
		"deployment_date":   formatTime(f.DeploymentDate),
		"last_transmission": formatTime(f.LastTransmission),
		"total_profiles":    derefInt(f.TotalProfiles),
		"region":            region,
	}

	return model.Document{
		ID:       f.FloatID,
		Text:     strings.Join(parts, ". ") + ".",
		Metadata: meta,
	}
}

// DocumentIndexer keeps the similarity collections in step with the
// structured store.
type DocumentIndexer struct {
	source RecordSource
	writer DocumentWriter
	cfg    RetrieverConfig
	log    logger.Logger
}

// NewDocumentIndexer creates a new document indexer. source may be nil
// when only direct upserts are needed.
func NewDocumentIndexer(source RecordSource, writer DocumentWriter, cfg RetrieverConfig, log logger.Logger) *DocumentIndexer {
	if cfg.ProfileCollection == "" {
		cfg.ProfileCollection = "argo_profiles"
	}
	if cfg.FloatCollection == "" {
		cfg.FloatCollection = "argo_floats"
	}
	return &DocumentIndexer{
		source: source,
		writer: writer,
		cfg:    cfg,
		log:    log.With(map[string]interface{}{"component": "document_indexer"}),
	}
}

// Collections returns the profile and float collection names.
func (d *DocumentIndexer) Collections() []string {
	return []string{d.cfg.ProfileCollection, d.cfg.FloatCollection}
}

// Upsert writes caller-supplied documents into collection.
func (d *DocumentIndexer) Upsert(ctx context.Context, collection string, docs []model.Document) model.DocumentBatchResponse {
	success, errs := d.writer.Upsert(ctx, collection, docs)
	d.log.Info("documents upserted", map[string]interface{}{
		"collection": collection,
		"success":    success,
		"failed":     len(docs) - success,
	})
	return model.DocumentBatchResponse{
		Collection: collection,
		Success:    success,
		Failed:     len(docs) - success,
		Errors:     errs,
	}
}

// Reindex rebuilds both collections from the store. limit <= 0 means all
// records.
func (d *DocumentIndexer) Reindex(ctx context.Context, limit int) ([]model.DocumentBatchResponse, error) {
	if d.source == nil {
		return nil, fmt.Errorf("no record source configured")
	}
	start := time.Now()

	profiles, err := d.source.ListProfiles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	floats, err := d.source.ListFloats(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list floats: %w", err)
	}

	profileDocs := make([]model.Document, len(profiles))
	for i, p := range profiles {
		profileDocs[i] = BuildProfileDocument(p)
	}
	floatDocs := make([]model.Document, len(floats))
	for i, f := range floats {
		floatDocs[i] = BuildFloatDocument(f)
	}

	results := []model.DocumentBatchResponse{
		d.Upsert(ctx, d.cfg.ProfileCollection, profileDocs),
		d.Upsert(ctx, d.cfg.FloatCollection, floatDocs),
	}
	d.log.Info("reindex complete", map[string]interface{}{
		"profiles":   len(profileDocs),
		"floats":     len(floatDocs),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return results, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefStr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
