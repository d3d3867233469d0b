package framework

// Sarbanes-Oxley sections.
const (
	SOXSection302 = "Section 302"
	SOXSection404 = "Section 404"
	SOXSection906 = "Section 906"
)

var soxRules = []Rule{
	{
		Clauses: []Clause{keywords("disclosure control", "unauthorized access", "data leak")},
		Tags:    []string{SOXSection302},
	},
	{
		Clauses: []Clause{keywords("financial control failure", "lack of testing", "control weakness", "audit finding")},
		Tags:    []string{SOXSection404},
	},
	{
		Clauses: []Clause{in("financial", Description, Category)},
		Tags:    []string{SOXSection302, SOXSection404},
	},
	{
		// 906: corporate responsibility for financial reports
		Clauses: []Clause{in("reporting", Description)},
		Tags:    []string{SOXSection906},
	},
}

// SOX returns the matcher for the Sarbanes-Oxley Act.
func SOX() *RuleMatcher {
	return NewRuleMatcher(NameSOX, soxRules)
}
