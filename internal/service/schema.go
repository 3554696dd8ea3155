package service

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// intentSchemaJSON describes the record the intent prompt asks for. Unknown
// parameter names are tolerated here and dropped during normalization.
const intentSchemaJSON = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {
      "type": "string",
      "enum": ["profile_analysis", "trajectory_analysis", "float_search", "comparison", "summary"]
    },
    "parameters": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    },
    "geographic_constraints": {
      "type": ["object", "null"],
      "properties": {
        "min_lat": {"type": ["number", "null"], "minimum": -90, "maximum": 90},
        "max_lat": {"type": ["number", "null"], "minimum": -90, "maximum": 90},
        "min_lon": {"type": ["number", "null"], "minimum": -180, "maximum": 180},
        "max_lon": {"type": ["number", "null"], "minimum": -180, "maximum": 180},
        "region": {"type": ["string", "null"]}
      }
    },
    "temporal_constraints": {
      "type": ["object", "null"],
      "properties": {
        "start_date": {"type": ["string", "null"]},
        "end_date": {"type": ["string", "null"]},
        "time_period": {"type": ["string", "null"]}
      }
    },
    "confidence": {"type": ["number", "null"]}
  }
}`

var intentSchema = mustLoadSchema(intentSchemaJSON)

func mustLoadSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// validateIntentRecord checks a decoded oracle record against the intent
// schema.
func validateIntentRecord(record map[string]interface{}) error {
	result, err := intentSchema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("intent record validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
