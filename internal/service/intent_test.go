package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T, oracle Oracle) *IntentParser {
	p := NewIntentParser(oracle, 200*time.Millisecond, logger.NewTestLogger(t))
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestIntentParser_WithoutOracle(t *testing.T) {
	parser := newTestParser(t, nil)

	tests := []struct {
		name       string
		query      string
		wantIntent model.IntentType
		wantParams []string
		wantRegion string
	}{
		{
			name:       "Temperature in the Indian Ocean",
			query:      "Show me temperature profiles in the Indian Ocean",
			wantIntent: model.IntentProfileAnalysis,
			wantParams: []string{"temperature"},
			wantRegion: "Indian Ocean",
		},
		{
			name:       "Trajectory beats comparison",
			query:      "Compare the trajectory of floats near the equator",
			wantIntent: model.IntentTrajectoryAnalysis,
			wantParams: []string{},
			wantRegion: "Equatorial",
		},
		{
			name:       "Float search",
			query:      "Find the nearest floats to the Arabian Sea",
			wantIntent: model.IntentFloatSearch,
			wantParams: []string{},
			wantRegion: "Arabian Sea",
		},
		{
			name:       "Summary with oxygen",
			query:      "Give me statistics on oxygen",
			wantIntent: model.IntentSummary,
			wantParams: []string{"oxygen"},
		},
		{
			name:       "Empty query",
			query:      "",
			wantIntent: model.IntentProfileAnalysis,
			wantParams: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.Parse(context.Background(), tt.query)

			assert.Equal(t, tt.wantIntent, result.Intent)
			assert.Equal(t, tt.wantParams, result.Parameters)
			assert.Equal(t, FallbackConfidence, result.Confidence)
			assert.Equal(t, tt.query, result.SourceText)
			assert.False(t, result.CreatedAt.IsZero())
			if tt.wantRegion == "" {
				assert.Nil(t, result.Geo)
			} else {
				require.NotNil(t, result.Geo)
				assert.Equal(t, tt.wantRegion, result.Geo.RegionName)
				assert.Nil(t, result.Geo.MinLat)
			}
		})
	}
}

func TestIntentParser_OracleFailureMatchesFallback(t *testing.T) {
	text := "Compare salinity and temp in the Bay of Bengal"
	want := newTestParser(t, nil).Parse(context.Background(), text)

	failures := map[string]*fakeOracle{
		"error":     {err: errors.New("connection refused")},
		"prose":     {response: "I think you want salinity data."},
		"bad enum":  {response: `{"intent": "forecast", "parameters": ["salinity"]}`},
		"bad date":  {response: `{"intent": "comparison", "temporal_constraints": {"start_date": "last spring"}}`},
		"bad bound": {response: `{"intent": "comparison", "geographic_constraints": {"min_lat": 120}}`},
		"timeout":   {block: true},
	}

	for name, oracle := range failures {
		t.Run(name, func(t *testing.T) {
			got := newTestParser(t, oracle).Parse(context.Background(), text)
			assert.Equal(t, want, got)
			assert.Equal(t, int32(1), oracle.calls.Load())
		})
	}
}

func TestIntentParser_OracleSuccess(t *testing.T) {
	oracle := &fakeOracle{response: "Here you go:\n```json\n" + `{
		"intent": "profile_analysis",
		"parameters": ["Temperature", "salt", "turbidity", "backscatter"],
		"geographic_constraints": {"min_lat": 0, "max_lat": 20, "min_lon": 60, "max_lon": null, "region": "Arabian Sea"},
		"temporal_constraints": {"start_date": "2023-01-01", "end_date": "2023-06-30T00:00:00Z", "time_period": null},
		"confidence": 0.85,
	}` + "\n```"}

	got := newTestParser(t, oracle).Parse(context.Background(), "temperature and salinity in the Arabian Sea in early 2023")

	assert.Equal(t, model.IntentProfileAnalysis, got.Intent)
	assert.Equal(t, []string{"temperature", "salinity", "backscatter"}, got.Parameters)
	assert.Equal(t, 0.85, got.Confidence)
	require.NotNil(t, got.Geo)
	require.NotNil(t, got.Geo.MinLat)
	assert.Equal(t, 0.0, *got.Geo.MinLat)
	assert.Equal(t, 60.0, *got.Geo.MinLon)
	assert.Nil(t, got.Geo.MaxLon)
	assert.Equal(t, "Arabian Sea", got.Geo.RegionName)
	require.NotNil(t, got.Time)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), *got.Time.Start)
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), *got.Time.End)
	require.Len(t, oracle.prompts, 1)
	assert.Contains(t, oracle.prompts[0], "trajectory_analysis")
	assert.Contains(t, oracle.prompts[0], "backscatter")
}

func TestInterpretOracle(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantOK         bool
		wantConfidence float64
	}{
		{name: "minimal record", raw: `{"intent": "summary"}`, wantOK: true, wantConfidence: 1.0},
		{name: "confidence out of range", raw: `{"intent": "summary", "confidence": 7}`, wantOK: true, wantConfidence: 1.0},
		{name: "zero confidence", raw: `{"intent": "summary", "confidence": 0}`, wantOK: true, wantConfidence: 1.0},
		{name: "null sections", raw: `{"intent": "float_search", "geographic_constraints": null, "temporal_constraints": null, "parameters": null}`, wantOK: true, wantConfidence: 1.0},
		{name: "missing intent", raw: `{"parameters": ["temperature"]}`, wantOK: false},
		{name: "parameters not a list", raw: `{"intent": "summary", "parameters": "temperature"}`, wantOK: false},
		{name: "not json", raw: `no idea`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := interpretOracle(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, got.Intent.Valid())
				assert.Equal(t, tt.wantConfidence, got.Confidence)
				assert.NotNil(t, got.Parameters)
			}
		})
	}
}

func TestFallbackIntentIsDeterministic(t *testing.T) {
	text := "overview of chlorophyll near the equator"
	a := FallbackIntent(text)
	b := FallbackIntent(text)
	assert.Equal(t, a, b)
	assert.Equal(t, model.IntentFloatSearch, a.Intent, "near outranks overview")
	// substring matching: "chlorophyll" also contains "ph"
	assert.Equal(t, []string{"chlorophyll", "ph"}, a.Parameters)
}
