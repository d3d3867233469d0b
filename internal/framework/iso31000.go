package framework

// ISO 31000 processes, clauses and principles.
const (
	ISORiskIdentification  = "Risk Identification"
	ISORiskCommunication   = "Risk Communication"
	ISOMonitoringAndReview = "Monitoring and Review"
	ISOClause6Process      = "Clause 6: Process"
	ISOPrinciple4          = "Principle 4: Be part of decision making"
	ISOPrinciple6          = "Principle 6: Be dynamic iterative and responsive to change"
)

var isoRules = []Rule{
	{
		Clauses: []Clause{keywords("missed risk", "ignored risk", "failed to identify")},
		Tags:    []string{ISORiskIdentification},
	},
	{
		Clauses: []Clause{keywords("poor escalation", "reporting failure", "lack of communication", "information sharing failure")},
		Tags:    []string{ISORiskCommunication},
	},
	{
		Clauses: []Clause{keywords("control outdated", "unmanaged control", "review failure", "monitoring failure")},
		Tags:    []string{ISOMonitoringAndReview},
	},
	{
		Clauses: []Clause{in("compliance", Description), in("legal", Category)},
		Tags:    []string{ISOClause6Process, ISOPrinciple4},
	},
	{
		Clauses: []Clause{in("security", Description), in("technology", Category)},
		Tags:    []string{ISOPrinciple6},
	},
}

// ISO31000 returns the matcher for the ISO 31000 risk management standard.
func ISO31000() *RuleMatcher {
	return NewRuleMatcher(NameISO31000, isoRules)
}
