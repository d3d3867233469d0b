package framework

// COSO internal control components.
const (
	COSORiskAssessment           = "Risk Assessment"
	COSOControlActivities        = "Control Activities"
	COSOMonitoringActivities     = "Monitoring Activities"
	COSOControlEnvironment       = "Control Environment"
	COSOInformationCommunication = "Information & Communication"
)

var cosoRules = []Rule{
	{
		Clauses: []Clause{keywords("incomplete analysis", "missing analysis", "inadequate assessment")},
		Tags:    []string{COSORiskAssessment},
	},
	{
		Clauses: []Clause{keywords("control not followed", "misconfigured control", "control failure", "policy violation")},
		Tags:    []string{COSOControlActivities},
	},
	{
		Clauses: []Clause{keywords("not detected", "issue missed", "monitoring failure", "untimely detection")},
		Tags:    []string{COSOMonitoringActivities},
	},
	{
		// fraud usually implies an assessment failure as well
		Clauses: []Clause{in("fraud", Description, Category)},
		Tags:    []string{COSOControlEnvironment, COSORiskAssessment},
	},
	{
		Clauses: []Clause{in("system", Description), in("technology", Category)},
		Tags:    []string{COSOInformationCommunication, COSOMonitoringActivities},
	},
}

// COSO returns the matcher for the COSO internal control framework.
func COSO() *RuleMatcher {
	return NewRuleMatcher(NameCOSO, cosoRules)
}
