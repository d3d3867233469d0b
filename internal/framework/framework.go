// Package framework maps a risk classification onto compliance frameworks.
//
// Each framework is a table of keyword rules evaluated against text derived
// from the classification. Matching is case-insensitive substring
// containment: "frauds" matches the keyword "fraud".
package framework

import (
	"errors"
	"sort"
	"strings"

	"github.com/dshills/riskloggr/internal/schema"
)

// Framework names, in the order the Router reports them.
const (
	NameCOSO     = "COSO"
	NameISO31000 = "ISO 31000"
	NameSOX      = "SOX"
	NameGDPR     = "GDPR"
)

// Field identifies a lower-cased text field derived from a classification.
type Field int

const (
	Description Field = iota
	RootCause
	Recommendations
	Category
	numFields
)

// anyText is the scope of the keyword rules: the incident description, the
// root cause and the space-joined recommendations.
var anyText = []Field{Description, RootCause, Recommendations}

// Clause fires when any keyword appears in any of its fields.
type Clause struct {
	Keywords []string
	Fields   []Field
}

// Rule adds Tags when any of its clauses fires.
type Rule struct {
	Clauses []Clause
	Tags    []string
}

// Matcher derives the tags one framework assigns to a classification.
// Implementations must be stateless and safe for concurrent use.
type Matcher interface {
	Name() string
	Match(c *schema.Classification) ([]string, error)
}

// RuleMatcher is a Matcher driven by a fixed rule table.
type RuleMatcher struct {
	name  string
	rules []Rule
}

// NewRuleMatcher returns a matcher for the named framework.
func NewRuleMatcher(name string, rules []Rule) *RuleMatcher {
	return &RuleMatcher{name: name, rules: rules}
}

func (m *RuleMatcher) Name() string { return m.name }

// Rules returns the matcher's rule table.
func (m *RuleMatcher) Rules() []Rule { return m.rules }

// Match returns the deduplicated tags whose rules fire, sorted.
func (m *RuleMatcher) Match(c *schema.Classification) ([]string, error) {
	if c == nil {
		return nil, errors.New("nil classification")
	}
	text := derive(c)
	set := make(map[string]struct{})
	for _, r := range m.rules {
		if !r.fires(&text) {
			continue
		}
		for _, tag := range r.Tags {
			set[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

type derived [numFields]string

func derive(c *schema.Classification) derived {
	var d derived
	d[Description] = strings.ToLower(c.IncidentDescription)
	d[RootCause] = strings.ToLower(c.RootCause)
	d[Recommendations] = strings.ToLower(c.ControlRecommendations.Joined())
	d[Category] = strings.ToLower(c.BaselCategory)
	return d
}

func (r Rule) fires(text *derived) bool {
	for _, cl := range r.Clauses {
		for _, f := range cl.Fields {
			for _, kw := range cl.Keywords {
				if strings.Contains(text[f], kw) {
					return true
				}
			}
		}
	}
	return false
}

// keywords is shorthand for a clause over the description, root cause and
// recommendations.
func keywords(kw ...string) Clause {
	return Clause{Keywords: kw, Fields: anyText}
}

// in is shorthand for a clause over explicitly named fields.
func in(kw string, fields ...Field) Clause {
	return Clause{Keywords: []string{kw}, Fields: fields}
}
