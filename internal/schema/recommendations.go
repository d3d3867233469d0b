package schema

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// markerPattern matches a leading list marker: "1.", "2)", "-", "*" or "•"
// followed by whitespace. "24/7 ..." and "3 reviewers ..." do not match.
var markerPattern = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)

// Recommendations is the normalized list of control recommendations.
//
// Models return recommendations in several shapes: a JSON list, a single
// newline-delimited (often numbered) string, or occasionally an object keyed
// by "0", "1", ... UnmarshalJSON accepts all three and always produces a
// clean list. Only the string form has list markers stripped; list items are
// taken as written apart from surrounding whitespace. Input it cannot use
// becomes an empty list, never an error.
type Recommendations []string

// NewRecommendations builds a list from items that are already one
// recommendation each. Items are trimmed and blank ones dropped.
func NewRecommendations(items ...string) Recommendations {
	out := Recommendations{}
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// ParseRecommendations splits a newline-delimited block into recommendations,
// stripping list markers and dropping empty lines.
func ParseRecommendations(s string) Recommendations {
	out := Recommendations{}
	for _, line := range strings.Split(s, "\n") {
		if cleaned := cleanLine(line); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// Normalize trims items and drops blank ones. It is a no-op on an already
// normalized list.
func (r Recommendations) Normalize() Recommendations {
	return NewRecommendations(r...)
}

// Joined returns the recommendations separated by single spaces.
func (r Recommendations) Joined() string {
	return strings.Join(r, " ")
}

func (r *Recommendations) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = ParseRecommendations(s)
		return nil
	}

	var items []any
	if err := json.Unmarshal(data, &items); err == nil {
		*r = NewRecommendations(stringsOf(items)...)
		return nil
	}

	var keyed map[string]any
	if err := json.Unmarshal(data, &keyed); err == nil {
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
		values := make([]any, 0, len(keys))
		for _, k := range keys {
			values = append(values, keyed[k])
		}
		*r = NewRecommendations(stringsOf(values)...)
		return nil
	}

	*r = Recommendations{}
	return nil
}

func (r Recommendations) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(r))
}

func stringsOf(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// keyLess orders numeric keys numerically so "10" follows "9".
func keyLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

// cleanLine strips one leading list marker and surrounding whitespace.
func cleanLine(line string) string {
	return strings.TrimSpace(markerPattern.ReplaceAllString(line, ""))
}
