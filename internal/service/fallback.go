package service

import (
	"floatchat/internal/model"
	"floatchat/internal/utils"
)

// FallbackConfidence is the fixed confidence of keyword-derived intents.
const FallbackConfidence = 0.5

// FallbackIntent derives an intent from keywords alone. It is pure: the
// same text always yields the same record (source_text and created_at
// are stamped by the caller).
func FallbackIntent(text string) model.QueryIntent {
	intent := model.QueryIntent{
		Intent:     model.IntentProfileAnalysis,
		Parameters: utils.MatchParameters(text),
		Confidence: FallbackConfidence,
	}

	if region, ok := utils.MatchRegion(text); ok {
		intent.Geo = &model.GeoConstraint{RegionName: region}
	}

	if tag := utils.MatchIntent(text); tag != "" {
		intent.Intent = model.IntentType(tag)
	}
	return intent
}
