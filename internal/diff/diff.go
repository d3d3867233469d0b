package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/riskloggr/internal/schema"
)

// Classifications returns a line diff between two versions of a
// classification, one "-" or "+" line per changed field value. It returns
// "" when nothing changed. The incident description is not compared; it is
// never edited after classification.
func Classifications(before, after *schema.Classification) string {
	a, b := Text(before), Text(after)
	if a == b {
		return ""
	}

	dmp := diffmatchpatch.New()
	charsA, charsB, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(charsA, charsB, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line != "" {
				out.WriteString(prefix + line)
			}
		}
	}
	return out.String()
}

// Text renders c as "field: value" lines in a fixed order, one line per
// list element. A nil classification renders as "".
func Text(c *schema.Classification) string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	line := func(key, value string) {
		fmt.Fprintf(&sb, "%s: %s\n", key, normalize(value))
	}
	list := func(key string, values []string) {
		if len(values) == 0 {
			line(key, "")
			return
		}
		for i, v := range values {
			line(fmt.Sprintf("%s[%d]", key, i+1), v)
		}
	}

	line("basel_ii_category", c.BaselCategory)
	line("severity_score", fmt.Sprint(c.SeverityScore))
	line("root_cause", c.RootCause)
	list("control_recommendations", c.ControlRecommendations)
	line("inherent_risk", string(c.InherentRisk))
	line("residual_risk", string(c.ResidualRisk))
	line("likelihood", string(c.Likelihood))
	impacts := make([]string, len(c.ImpactType))
	for i, it := range c.ImpactType {
		impacts[i] = string(it)
	}
	line("impact_type", strings.Join(impacts, ", "))
	list("framework_tags", c.FrameworkTags)
	return sb.String()
}

// normalize flattens a value onto one line and trims trailing whitespace so
// that CRLF or stray spaces never show up as a change.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimRight(s, " \t")
}
