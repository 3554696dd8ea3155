package service

import (
	"floatchat/internal/model"
)

var (
	profilesRel     = model.Relation{Name: "argo_profiles", Alias: "ap"}
	trajectoriesRel = model.Relation{Name: "argo_trajectories", Alias: "at"}
	floatsRel       = model.Relation{Name: "argo_floats", Alias: "af"}
	measurementsRel = model.Relation{Name: "argo_measurements", Alias: "am"}
)

// measurementColumns whitelists the argo_measurements columns a parameter
// may reference.
var measurementColumns = map[string]string{
	"temperature": "am.temperature",
	"salinity":    "am.salinity",
	"oxygen":      "am.oxygen",
	"chlorophyll": "am.chlorophyll",
	"nitrate":     "am.nitrate",
	"ph":          "am.ph",
	"backscatter": "am.backscatter",
}

// QueryCompiler builds structured queries from intents. It holds no state.
type QueryCompiler struct{}

// NewQueryCompiler creates a new query compiler
func NewQueryCompiler() *QueryCompiler {
	return &QueryCompiler{}
}

// Compile is pure and deterministic: equal intents give equal queries.
func (c *QueryCompiler) Compile(intent model.QueryIntent) model.CompiledQuery {
	switch intent.Intent {
	case model.IntentProfileAnalysis:
		q := model.CompiledQuery{
			Distinct: true,
			SelectColumns: []string{
				"ap.float_id", "ap.cycle_number", "ap.latitude", "ap.longitude",
				"ap.profile_time", "ap.max_depth", "ap.num_levels",
			},
			Source:     profilesRel,
			Predicates: locationPredicates(intent, "ap", "profile_time"),
			OrderBy:    model.OrderBy{Column: "ap.profile_time", Desc: true},
			Limit:      model.DefaultRowLimit,
		}
		if cols := parameterColumns(intent.Parameters); len(cols) > 0 {
			q.Join = &model.Join{Relation: measurementsRel, On: []string{"float_id", "cycle_number"}}
			q.Predicates = append(q.Predicates, model.Predicate{Op: model.OpAnyNotNull, Columns: cols})
		}
		return q

	case model.IntentTrajectoryAnalysis:
		return model.CompiledQuery{
			SelectColumns: []string{
				"at.float_id", "at.latitude", "at.longitude", "at.trajectory_time", "at.cycle_number",
			},
			Source:     trajectoriesRel,
			Predicates: locationPredicates(intent, "at", "trajectory_time"),
			OrderBy:    model.OrderBy{Column: "at.trajectory_time", Desc: true},
			Limit:      model.DefaultRowLimit,
		}

	case model.IntentFloatSearch:
		return model.CompiledQuery{
			Distinct: true,
			SelectColumns: []string{
				"af.float_id", "af.wmo_id", "af.institution", "af.status",
				"ap.latitude", "ap.longitude", "ap.profile_time",
			},
			Source:     floatsRel,
			Join:       &model.Join{Relation: profilesRel, On: []string{"float_id"}},
			Predicates: locationPredicates(intent, "ap", "profile_time"),
			OrderBy:    model.OrderBy{Column: "ap.profile_time", Desc: true},
			Limit:      model.DefaultRowLimit,
		}

	default:
		return model.CompiledQuery{
			SelectColumns: []string{
				"ap.float_id", "ap.cycle_number", "ap.latitude", "ap.longitude", "ap.profile_time",
			},
			Source:     profilesRel,
			Predicates: locationPredicates(intent, "ap", "profile_time"),
			OrderBy:    model.OrderBy{Column: "ap.profile_time", Desc: true},
			Limit:      model.DefaultRowLimit,
		}
	}
}

// locationPredicates builds the geo and time filters against the relation
// aliased as alias. A coordinate range is only applied when both of its
// bounds are present.
func locationPredicates(intent model.QueryIntent, alias, timeColumn string) []model.Predicate {
	preds := []model.Predicate{}

	if geo := intent.Geo; geo != nil {
		if geo.HasLatRange() {
			preds = append(preds, model.Predicate{
				Op: model.OpBetween, Column: alias + ".latitude",
				Args: []interface{}{*geo.MinLat, *geo.MaxLat},
			})
		}
		if geo.HasLonRange() {
			preds = append(preds, model.Predicate{
				Op: model.OpBetween, Column: alias + ".longitude",
				Args: []interface{}{*geo.MinLon, *geo.MaxLon},
			})
		}
	}

	if tc := intent.Time; tc != nil {
		if tc.Start != nil {
			preds = append(preds, model.Predicate{
				Op: model.OpGte, Column: alias + "." + timeColumn,
				Args: []interface{}{*tc.Start},
			})
		}
		if tc.End != nil {
			preds = append(preds, model.Predicate{
				Op: model.OpLte, Column: alias + "." + timeColumn,
				Args: []interface{}{*tc.End},
			})
		}
	}
	return preds
}

func parameterColumns(params []string) []string {
	cols := []string{}
	seen := map[string]bool{}
	for _, p := range params {
		col, ok := measurementColumns[p]
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, col)
	}
	return cols
}
