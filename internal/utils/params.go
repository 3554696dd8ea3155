package utils

import "strings"

// Alias families for measurement parameters, in canonical order. The first
// entry of each family is the canonical column name.
var parameterFamilies = [][]string{
	{"temperature", "temp"},
	{"salinity", "salt"},
	{"oxygen", "doxy"},
	{"chlorophyll", "chla"},
	{"nitrate"},
	{"ph", "ph_in_situ"},
}

// oracleOnlyParameters are accepted from generated output but never
// detected by keyword.
var oracleOnlyParameters = []string{"backscatter"}

// regionPhrases is checked in order; the first phrase found wins.
var regionPhrases = []struct {
	phrase string
	name   string
}{
	{"indian ocean", "Indian Ocean"},
	{"arabian sea", "Arabian Sea"},
	{"bay of bengal", "Bay of Bengal"},
	{"equator", "Equatorial"},
}

// intentKeywords is checked in priority order.
var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{"trajectory_analysis", []string{"trajectory", "path", "route"}},
	{"comparison", []string{"compare", "comparison"}},
	{"float_search", []string{"nearest", "near", "close"}},
	{"summary", []string{"summary", "overview", "statistics"}},
}

// MatchParameters returns the canonical parameters whose aliases occur as
// substrings of text, in canonical order.
func MatchParameters(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, family := range parameterFamilies {
		for _, alias := range family {
			if strings.Contains(lower, alias) {
				found = append(found, family[0])
				break
			}
		}
	}
	return found
}

// MatchRegion returns the display name of the first region phrase in text.
func MatchRegion(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range regionPhrases {
		if strings.Contains(lower, r.phrase) {
			return r.name, true
		}
	}
	return "", false
}

// MatchIntent returns the first intent whose keyword occurs in text, or
// "" when none does.
func MatchIntent(text string) string {
	lower := strings.ToLower(text)
	for _, ik := range intentKeywords {
		for _, kw := range ik.keywords {
			if strings.Contains(lower, kw) {
				return ik.intent
			}
		}
	}
	return ""
}

// CanonicalParameter maps a parameter name or alias to its canonical form.
// Unknown names return false.
func CanonicalParameter(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, family := range parameterFamilies {
		for _, alias := range family {
			if n == alias {
				return family[0], true
			}
		}
	}
	for _, p := range oracleOnlyParameters {
		if n == p {
			return p, true
		}
	}
	return "", false
}

// NormalizeParameters canonicalizes names, drops unknown ones and removes
// duplicates while keeping first-seen order.
func NormalizeParameters(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := []string{}
	for _, name := range names {
		canon, ok := CanonicalParameter(name)
		if !ok || seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	return out
}

// KnownParameters lists every canonical parameter name, including those
// only accepted from generated output.
func KnownParameters() []string {
	out := make([]string, 0, len(parameterFamilies)+len(oracleOnlyParameters))
	for _, family := range parameterFamilies {
		out = append(out, family[0])
	}
	return append(out, oracleOnlyParameters...)
}
