package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/metrics"
	"floatchat/internal/model"
	"floatchat/internal/utils"
)

const intentPromptTemplate = `You translate questions about ARGO ocean float data into a JSON record.

Question: %q

Classify the question as exactly one intent:
- profile_analysis: vertical profiles of measurements at float locations
- trajectory_analysis: paths, routes or movement of floats
- float_search: finding floats near a place or matching criteria
- comparison: comparing regions, periods or parameters
- summary: overviews and statistics

Recognized parameters: %s.

Reply with only this JSON object:
{
  "intent": "<one of the intents above>",
  "parameters": ["<recognized parameter>", ...],
  "geographic_constraints": {"min_lat": null, "max_lat": null, "min_lon": null, "max_lon": null, "region": null},
  "temporal_constraints": {"start_date": "YYYY-MM-DD or null", "end_date": "YYYY-MM-DD or null", "time_period": null},
  "confidence": 0.0
}`

// IntentParser turns free text into a QueryIntent. It asks the oracle
// first and falls back to keyword rules.
type IntentParser struct {
	oracle  Oracle
	timeout time.Duration
	log     logger.Logger
	now     func() time.Time
}

// NewIntentParser creates a new intent parser. oracle may be nil, in which
// case every parse uses the keyword rules.
func NewIntentParser(oracle Oracle, timeout time.Duration, log logger.Logger) *IntentParser {
	return &IntentParser{
		oracle:  oracle,
		timeout: timeout,
		log:     log.With(map[string]interface{}{"component": "intent_parser"}),
		now:     time.Now,
	}
}

// Parse never fails; the result always carries one of the five intents.
func (p *IntentParser) Parse(ctx context.Context, text string) model.QueryIntent {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("parse").Observe(time.Since(start).Seconds())
	}()

	intent, err := p.parseWithOracle(ctx, text)
	if err != nil {
		reason := fallbackReason(err)
		p.log.Info("using keyword intent fallback", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
		metrics.IntentParsePath.WithLabelValues("fallback", reason).Inc()
		intent = FallbackIntent(text)
	} else {
		metrics.IntentParsePath.WithLabelValues("oracle", "").Inc()
	}

	intent.SourceText = text
	intent.CreatedAt = p.now().UTC()
	return intent
}

func (p *IntentParser) parseWithOracle(ctx context.Context, text string) (model.QueryIntent, error) {
	if p.oracle == nil {
		return model.QueryIntent{}, newPipelineError(ErrOracleUnavailable, "parse", errors.New("oracle not configured"))
	}
	if strings.TrimSpace(text) == "" {
		return model.QueryIntent{}, newPipelineError(ErrOracleMalformedOutput, "parse", errors.New("empty question"))
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.oracle.Generate(callCtx, fmt.Sprintf(intentPromptTemplate, text, strings.Join(utils.KnownParameters(), ", ")))
	if err != nil {
		return model.QueryIntent{}, newPipelineError(ErrOracleUnavailable, "parse", err)
	}

	intent, ok := interpretOracle(raw)
	if !ok {
		return model.QueryIntent{}, newPipelineError(ErrOracleMalformedOutput, "parse",
			fmt.Errorf("unusable oracle output: %s", utils.Truncate(raw, 200)))
	}
	return intent, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrOracleMalformedOutput):
		return "malformed"
	default:
		return "unavailable"
	}
}

// interpretOracle extracts a QueryIntent from raw generated text. The
// second return is false when the text holds no usable record.
func interpretOracle(raw string) (model.QueryIntent, bool) {
	record, err := utils.ExtractFirstObject(raw)
	if err != nil {
		return model.QueryIntent{}, false
	}
	if err := validateIntentRecord(record); err != nil {
		return model.QueryIntent{}, false
	}

	tag, _ := record["intent"].(string)
	intent := model.QueryIntent{
		Intent:     model.IntentType(tag),
		Parameters: utils.NormalizeParameters(stringList(record["parameters"])),
		Confidence: 1.0,
	}
	if !intent.Intent.Valid() {
		return model.QueryIntent{}, false
	}

	if c, ok := record["confidence"].(float64); ok && c > 0 && c <= 1 {
		intent.Confidence = c
	}

	if geoRec, ok := record["geographic_constraints"].(map[string]interface{}); ok {
		geo := &model.GeoConstraint{
			MinLat: numberPtr(geoRec["min_lat"]),
			MaxLat: numberPtr(geoRec["max_lat"]),
			MinLon: numberPtr(geoRec["min_lon"]),
			MaxLon: numberPtr(geoRec["max_lon"]),
		}
		if region, ok := geoRec["region"].(string); ok {
			geo.RegionName = strings.TrimSpace(region)
		}
		if !geo.IsEmpty() {
			intent.Geo = geo
		}
	}

	if timeRec, ok := record["temporal_constraints"].(map[string]interface{}); ok {
		start, ok := parseDate(timeRec["start_date"])
		if !ok {
			return model.QueryIntent{}, false
		}
		end, ok := parseDate(timeRec["end_date"])
		if !ok {
			return model.QueryIntent{}, false
		}
		tc := &model.TimeConstraint{Start: start, End: end}
		if !tc.IsEmpty() {
			intent.Time = tc
		}
	}

	return intent, true
}

func stringList(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func numberPtr(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

// parseDate accepts null, an empty string, YYYY-MM-DD or RFC 3339. The
// bool is false only for a present but unparseable value.
func parseDate(v interface{}) (*time.Time, bool) {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, true
	}
	return nil, false
}
