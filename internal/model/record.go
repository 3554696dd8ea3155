package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ContextItem is one similarity hit used as supporting context.
type ContextItem struct {
	DocumentText       string  `json:"document_text"`
	Metadata           JSONMap `json:"metadata"`
	SimilarityDistance float64 `json:"similarity_distance"`
	SourceCollection   string  `json:"source_collection"`
}

// Document is an indexable unit of text with metadata.
type Document struct {
	ID       string  `json:"id" db:"id"`
	Text     string  `json:"text" db:"document" binding:"required"`
	Metadata JSONMap `json:"metadata,omitempty" db:"metadata"`
}

// DocumentBatchRequest is the body of POST /api/v1/documents/:collection
type DocumentBatchRequest struct {
	Documents []Document `json:"documents" binding:"required,dive"`
}

// DocumentBatchResponse reports the outcome of a batch upsert.
type DocumentBatchResponse struct {
	Collection string   `json:"collection"`
	Success    int      `json:"success"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// AuditRecord is the append-only record of one pipeline run.
type AuditRecord struct {
	ID              string    `json:"id" db:"id"`
	UserQuery       string    `json:"user_query" db:"user_query"`
	ProcessedIntent string    `json:"processed_query" db:"processed_query"`
	CompiledQuery   string    `json:"sql_query" db:"sql_query"`
	Response        string    `json:"response" db:"response"`
	ExecutionTimeMs int64     `json:"execution_time" db:"execution_time"`
	Success         bool      `json:"success" db:"success"`
	ErrorMessage    string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ProfileRecord is a row of argo_profiles used to build context documents.
type ProfileRecord struct {
	FloatID     string     `json:"float_id" db:"float_id"`
	CycleNumber int        `json:"cycle_number" db:"cycle_number"`
	Latitude    *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64   `json:"longitude,omitempty" db:"longitude"`
	ProfileTime *time.Time `json:"profile_time,omitempty" db:"profile_time"`
	MaxDepth    *float64   `json:"max_depth,omitempty" db:"max_depth"`
	NumLevels   *int       `json:"num_levels,omitempty" db:"num_levels"`
	Parameters  JSONArray  `json:"parameters,omitempty" db:"parameters"`
	DataMode    *string    `json:"data_mode,omitempty" db:"data_mode"`
	QualityFlag *string    `json:"quality_flag,omitempty" db:"quality_flag"`
}

// FloatRecord is a row of argo_floats used to build context documents.
type FloatRecord struct {
	FloatID          string     `json:"float_id" db:"float_id"`
	WMOID            *string    `json:"wmo_id,omitempty" db:"wmo_id"`
	Institution      *string    `json:"institution,omitempty" db:"institution"`
	Status           *string    `json:"status,omitempty" db:"status"`
	Latitude         *float64   `json:"latitude,omitempty" db:"last_latitude"`
	Longitude        *float64   `json:"longitude,omitempty" db:"last_longitude"`
	DeploymentDate   *time.Time `json:"deployment_date,omitempty" db:"deployment_date"`
	LastTransmission *time.Time `json:"last_transmission,omitempty" db:"last_transmission"`
	TotalProfiles    *int       `json:"total_profiles,omitempty" db:"total_profiles"`
}

// DataSummary aggregates what the structured store holds.
type DataSummary struct {
	TotalFloats       int64            `json:"total_floats"`
	TotalProfiles     int64            `json:"total_profiles"`
	TotalMeasurements int64            `json:"total_measurements"`
	GeographicBounds  *GeoBounds       `json:"geographic_bounds,omitempty"`
	DateRange         *DateRange       `json:"date_range,omitempty"`
	IndexedDocuments  map[string]int64 `json:"indexed_documents,omitempty"`
}

// GeoBounds is the bounding box of all stored profiles.
type GeoBounds struct {
	MinLat float64 `json:"min_lat" db:"min_lat"`
	MaxLat float64 `json:"max_lat" db:"max_lat"`
	MinLon float64 `json:"min_lon" db:"min_lon"`
	MaxLon float64 `json:"max_lon" db:"max_lon"`
}

// DateRange is the span of stored profile times.
type DateRange struct {
	Start time.Time `json:"start" db:"start_date"`
	End   time.Time `json:"end" db:"end_date"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	return scanJSON(value, j)
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, j)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into JSON field", value)
	}
}
