package model

import "time"

// IntentType is the closed set of query categories the pipeline understands.
type IntentType string

const (
	IntentProfileAnalysis    IntentType = "profile_analysis"
	IntentTrajectoryAnalysis IntentType = "trajectory_analysis"
	IntentFloatSearch        IntentType = "float_search"
	IntentComparison         IntentType = "comparison"
	IntentSummary            IntentType = "summary"
)

// AllIntents lists every intent tag in prompt order.
var AllIntents = []IntentType{
	IntentProfileAnalysis,
	IntentTrajectoryAnalysis,
	IntentFloatSearch,
	IntentComparison,
	IntentSummary,
}

// Valid reports whether t is one of the five known tags.
func (t IntentType) Valid() bool {
	switch t {
	case IntentProfileAnalysis, IntentTrajectoryAnalysis, IntentFloatSearch, IntentComparison, IntentSummary:
		return true
	}
	return false
}

// QueryIntent represents the parsed intent from a natural language question
type QueryIntent struct {
	Intent     IntentType      `json:"intent"`
	Parameters []string        `json:"parameters"`
	Geo        *GeoConstraint  `json:"geo_constraint,omitempty"`
	Time       *TimeConstraint `json:"time_constraint,omitempty"`
	Confidence float64         `json:"confidence"`
	SourceText string          `json:"source_text"`
	CreatedAt  time.Time       `json:"created_at"`
}

// GeoConstraint bounds are independently optional; a nil bound is absent.
type GeoConstraint struct {
	MinLat     *float64 `json:"min_lat,omitempty"`
	MaxLat     *float64 `json:"max_lat,omitempty"`
	MinLon     *float64 `json:"min_lon,omitempty"`
	MaxLon     *float64 `json:"max_lon,omitempty"`
	RegionName string   `json:"region_name,omitempty"`
}

// HasLatRange is true only when both latitude bounds are present.
func (g *GeoConstraint) HasLatRange() bool {
	return g != nil && g.MinLat != nil && g.MaxLat != nil
}

// HasLonRange is true only when both longitude bounds are present.
func (g *GeoConstraint) HasLonRange() bool {
	return g != nil && g.MinLon != nil && g.MaxLon != nil
}

// IsEmpty reports whether the constraint carries no information at all.
func (g *GeoConstraint) IsEmpty() bool {
	return g == nil || (g.MinLat == nil && g.MaxLat == nil && g.MinLon == nil && g.MaxLon == nil && g.RegionName == "")
}

// TimeConstraint holds an optional start and end instant.
type TimeConstraint struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsEmpty reports whether neither end of the window is set.
func (tc *TimeConstraint) IsEmpty() bool {
	return tc == nil || (tc.Start == nil && tc.End == nil)
}

// HasParameter reports whether name was requested.
func (q *QueryIntent) HasParameter(name string) bool {
	for _, p := range q.Parameters {
		if p == name {
			return true
		}
	}
	return false
}

// Float64Ptr is a small helper for building optional bounds.
func Float64Ptr(v float64) *float64 {
	return &v
}
