package framework

// GDPR articles.
const (
	GDPRArticle5Integrity  = "Article 5: Integrity & Confidentiality"
	GDPRArticle5Principles = "Article 5: Principles relating to processing of personal data"
	GDPRArticle6           = "Article 6: Lawful Basis"
	GDPRArticle32          = "Article 32: Security of Processing"
	GDPRArticle33          = "Article 33: Notification of a personal data breach to the supervisory authority"
	GDPRArticle34          = "Article 34: Communication of a personal data breach to the data subject"
)

var gdprRules = []Rule{
	{
		Clauses: []Clause{keywords("access breach", "confidentiality breach", "data leak", "unauthorized access")},
		Tags:    []string{GDPRArticle5Integrity},
	},
	{
		Clauses: []Clause{keywords("unauthorized processing", "lack of consent", "non-compliant processing")},
		Tags:    []string{GDPRArticle6},
	},
	{
		Clauses: []Clause{keywords("security failure", "no encryption", "inadequate security measures")},
		Tags:    []string{GDPRArticle32},
	},
	{
		Clauses: []Clause{in("data breach", Description), in("privacy", Category)},
		Tags:    []string{GDPRArticle33, GDPRArticle34},
	},
	{
		Clauses: []Clause{in("personal data", Description)},
		Tags:    []string{GDPRArticle5Principles},
	},
}

// GDPR returns the matcher for the EU General Data Protection Regulation.
func GDPR() *RuleMatcher {
	return NewRuleMatcher(NameGDPR, gdprRules)
}
