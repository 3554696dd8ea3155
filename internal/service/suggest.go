package service

import "floatchat/internal/model"

const maxSuggestions = 3

// SuggestFollowUps proposes up to three follow-up questions for an
// answered query. A run that returned no rows gets none.
func SuggestFollowUps(env model.QueryResultEnvelope) []string {
	if len(env.Rows) == 0 {
		return []string{}
	}

	suggestions := []string{
		"Show me the trajectory of these floats",
		"Compare these profiles with data from other regions",
	}

	if env.Intent != nil {
		switch {
		case env.Intent.HasParameter("temperature"):
			suggestions = append(suggestions, "Show me salinity profiles for the same region")
		case env.Intent.HasParameter("salinity"):
			suggestions = append(suggestions, "Show me temperature profiles for the same region")
		}
	}

	suggestions = append(suggestions,
		"Show me data from a different time period",
		"Compare with data from the same season last year",
	)

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}
