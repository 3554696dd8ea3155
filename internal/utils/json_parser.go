package utils

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSONObject is returned when no decodable object exists in the input.
var ErrNoJSONObject = errors.New("no JSON object found in text")

var (
	fencedBlock    = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingCommas = regexp.MustCompile(`,\s*([}\]])`)
	bareKeys       = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ExtractFirstObject returns the first well-formed JSON object found in
// generated text. It tolerates markdown fences, commentary before or after
// the object, trailing commas, bare keys and single-quoted values.
func ExtractFirstObject(input string) (map[string]interface{}, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "\ufeff")
	if input == "" {
		return nil, ErrNoJSONObject
	}

	candidates := make([]string, 0, 4)
	if m := fencedBlock.FindStringSubmatch(input); len(m) > 1 {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, input)

	for _, text := range candidates {
		if obj, ok := scanObjects(text); ok {
			return obj, nil
		}
	}
	return nil, ErrNoJSONObject
}

// scanObjects walks every '{' in text and returns the first balanced span
// that decodes, either as-is or after repair.
func scanObjects(text string) (map[string]interface{}, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		span := balancedSpan(text[i:])
		if span == "" {
			continue
		}
		if obj, ok := decodeObject(span); ok {
			return obj, true
		}
		if obj, ok := decodeObject(repairJSON(span)); ok {
			return obj, true
		}
	}
	return nil, false
}

func decodeObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// balancedSpan returns the prefix of s that closes the brace s starts with,
// ignoring braces inside double-quoted strings.
func balancedSpan(s string) string {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// repairJSON fixes the mistakes language models commonly make.
func repairJSON(s string) string {
	s = trailingCommas.ReplaceAllString(s, "$1")
	s = bareKeys.ReplaceAllString(s, `$1"$2"$3`)
	s = singleToDoubleQuotes(s)
	return controlChars.ReplaceAllString(s, "")
}

// singleToDoubleQuotes swaps single quotes that delimit values outside
// double-quoted strings. Apostrophes inside words are left alone.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inDouble := false
	inSingle := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '\'' && !inDouble:
			if inSingle || opensValue(s, i) {
				inSingle = !inSingle
				b.WriteByte('"')
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func opensValue(s string, i int) bool {
	j := i - 1
	for j >= 0 && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
		j--
	}
	if j < 0 {
		return true
	}
	switch s[j] {
	case ':', ',', '[', '{':
		return true
	}
	return false
}

// Truncate shortens s to at most maxLen bytes for log fields.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
