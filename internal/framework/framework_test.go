package framework

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/dshills/riskloggr/internal/schema"
)

func scenario() *schema.Classification {
	return &schema.Classification{
		IncidentDescription:    "Unauthorized access to customer records due to a control failure; fraud suspected in the finance system",
		BaselCategory:          "Internal Fraud",
		SeverityScore:          4,
		RootCause:              "Lack of oversight",
		ControlRecommendations: schema.Recommendations{"Implement stricter access controls"},
	}
}

func asSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}

func assertTags(t *testing.T, m Matcher, c *schema.Classification, want ...string) {
	t.Helper()
	got, err := m.Match(c)
	if err != nil {
		t.Fatalf("%s.Match: %v", m.Name(), err)
	}
	if !reflect.DeepEqual(asSet(got), asSet(want)) {
		t.Errorf("%s tags = %v, want %v", m.Name(), got, want)
	}
	if len(got) != len(asSet(got)) {
		t.Errorf("%s returned duplicate tags: %v", m.Name(), got)
	}
}

func TestScenario_AllFrameworks(t *testing.T) {
	c := scenario()
	assertTags(t, COSO(), c,
		COSOControlActivities, COSOControlEnvironment, COSORiskAssessment,
		COSOInformationCommunication, COSOMonitoringActivities)
	assertTags(t, GDPR(), c, GDPRArticle5Integrity)
	// "finance" is not "financial", so Section 404 stays off.
	assertTags(t, SOX(), c, SOXSection302)
	assertTags(t, ISO31000(), c)
}

func TestScenario_FinancialAddsSection404(t *testing.T) {
	c := scenario()
	c.IncidentDescription += " affecting financial statements"
	assertTags(t, SOX(), c, SOXSection302, SOXSection404)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	upper := &schema.Classification{IncidentDescription: "MONITORING FAILURE in batch jobs"}
	lower := &schema.Classification{IncidentDescription: "monitoring failure in batch jobs"}
	for _, m := range []Matcher{COSO(), ISO31000()} {
		a, _ := m.Match(upper)
		b, _ := m.Match(lower)
		if !reflect.DeepEqual(asSet(a), asSet(b)) {
			t.Errorf("%s: upper %v != lower %v", m.Name(), a, b)
		}
		if len(a) == 0 {
			t.Errorf("%s: expected monitoring failure to match", m.Name())
		}
	}
}

func TestMatch_SubstringInsideLongerWord(t *testing.T) {
	c := &schema.Classification{IncidentDescription: "A string of frauds went unnoticed"}
	assertTags(t, COSO(), c, COSOControlEnvironment, COSORiskAssessment)
}

func TestMatch_FraudInCategoryOnly(t *testing.T) {
	c := &schema.Classification{BaselCategory: "External Fraud", IncidentDescription: "Cheque was altered"}
	assertTags(t, COSO(), c, COSOControlEnvironment, COSORiskAssessment)
}

func TestMatch_KeywordInRecommendations(t *testing.T) {
	c := &schema.Classification{
		IncidentDescription:    "Wire sent twice",
		ControlRecommendations: schema.Recommendations{"Address the policy violation in payments"},
	}
	assertTags(t, COSO(), c, COSOControlActivities)
}

func TestMatch_KeywordInRootCause(t *testing.T) {
	c := &schema.Classification{RootCause: "The team failed to identify the vendor risk"}
	assertTags(t, ISO31000(), c, ISORiskIdentification)
}

func TestMatch_CategoryScopedLiteralIgnoresDescription(t *testing.T) {
	// "technology" is only checked against the category.
	c := &schema.Classification{IncidentDescription: "technology outage", BaselCategory: "Execution"}
	assertTags(t, ISO31000(), c)

	c.BaselCategory = "Business Disruption and System Failures / Technology"
	assertTags(t, ISO31000(), c, ISOPrinciple6)
}

func TestISO31000_LegalCategory(t *testing.T) {
	c := &schema.Classification{BaselCategory: "Legal Risk", IncidentDescription: "Contract dispute"}
	assertTags(t, ISO31000(), c, ISOClause6Process, ISOPrinciple4)
}

func TestISO31000_CompliancePoorEscalation(t *testing.T) {
	c := &schema.Classification{IncidentDescription: "Compliance issue with poor escalation to the board"}
	assertTags(t, ISO31000(), c, ISOClause6Process, ISOPrinciple4, ISORiskCommunication)
}

func TestSOX_ReportingAndAuditFinding(t *testing.T) {
	c := &schema.Classification{
		IncidentDescription: "Quarterly reporting delayed",
		RootCause:           "Audit finding on reconciliations",
	}
	assertTags(t, SOX(), c, SOXSection906, SOXSection404)
}

func TestGDPR_DataBreachAndPersonalData(t *testing.T) {
	c := &schema.Classification{
		IncidentDescription: "Data breach exposing personal data; no encryption at rest",
	}
	assertTags(t, GDPR(), c,
		GDPRArticle33, GDPRArticle34, GDPRArticle5Principles, GDPRArticle32)
}

func TestGDPR_PrivacyCategoryAndConsent(t *testing.T) {
	c := &schema.Classification{
		BaselCategory: "Clients, Products & Business Practices - Privacy",
		RootCause:     "Lack of consent for marketing emails",
	}
	assertTags(t, GDPR(), c, GDPRArticle33, GDPRArticle34, GDPRArticle6)
}

func TestMatch_NoKeywords(t *testing.T) {
	c := &schema.Classification{IncidentDescription: "Coffee machine broke", BaselCategory: "Damage to Physical Assets"}
	for _, m := range []Matcher{COSO(), ISO31000(), SOX(), GDPR()} {
		assertTags(t, m, c)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	c := scenario()
	for _, m := range []Matcher{COSO(), ISO31000(), SOX(), GDPR()} {
		a, _ := m.Match(c)
		b, _ := m.Match(c)
		if !reflect.DeepEqual(asSet(a), asSet(b)) {
			t.Errorf("%s not deterministic: %v vs %v", m.Name(), a, b)
		}
	}
}

func TestMatch_NilClassification(t *testing.T) {
	if _, err := COSO().Match(nil); err == nil {
		t.Error("expected error for nil classification")
	}
}

func TestTagsContainNoCommas(t *testing.T) {
	for _, m := range []*RuleMatcher{COSO(), ISO31000(), SOX(), GDPR()} {
		for _, r := range m.Rules() {
			for _, tag := range r.Tags {
				for _, ch := range tag {
					if ch == ',' {
						t.Errorf("%s tag %q contains a comma and would not round-trip", m.Name(), tag)
					}
				}
			}
		}
	}
}

func TestDataBreachTagsKeepRecordedTitles(t *testing.T) {
	c := &schema.Classification{
		IncidentDescription: "A data breach exposed personal data; legal escalation followed",
		BaselCategory:       "Legal",
		RootCause:           "Misconfigured bucket",
	}
	result := DefaultRouter(nil).Route(c).Rendered()
	want := []string{
		"ISO 31000: Clause 6: Process, Principle 4: Be part of decision making",
		"GDPR: Article 33: Notification of a personal data breach to the supervisory authority, " +
			"Article 34: Communication of a personal data breach to the data subject, " +
			"Article 5: Principles relating to processing of personal data",
	}
	for _, w := range want {
		found := false
		for _, got := range result {
			if got == w {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %q in %q", w, result)
		}
	}
}

// --- Router ---

type failingMatcher struct{ name string }

func (f failingMatcher) Name() string { return f.name }
func (f failingMatcher) Match(*schema.Classification) ([]string, error) {
	return nil, errors.New("boom")
}

type panickingMatcher struct{}

func (panickingMatcher) Name() string { return "Panics" }
func (panickingMatcher) Match(c *schema.Classification) ([]string, error) {
	var m map[string]int
	m[c.RootCause] = 1 // nil map write
	return nil, nil
}

func TestRouter_FixedFrameworkOrder(t *testing.T) {
	result := DefaultRouter(nil).Route(scenario())
	var names []string
	for _, m := range result {
		names = append(names, m.Framework)
	}
	want := []string{NameCOSO, NameISO31000, NameSOX, NameGDPR}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("framework order = %v, want %v", names, want)
	}
}

func TestRouter_RenderedSkipsEmptyFrameworks(t *testing.T) {
	rendered := DefaultRouter(nil).Route(scenario()).Rendered()
	if len(rendered) != 3 {
		t.Fatalf("expected 3 rendered frameworks (ISO 31000 empty), got %v", rendered)
	}
	wantPrefixes := []string{"COSO: ", "SOX: ", "GDPR: "}
	for i, p := range wantPrefixes {
		if len(rendered[i]) < len(p) || rendered[i][:len(p)] != p {
			t.Errorf("rendered[%d] = %q, want prefix %q", i, rendered[i], p)
		}
	}
}

func TestRouter_IsolatesFailingMatchers(t *testing.T) {
	r := NewRouter(nil, COSO(), failingMatcher{name: "Broken"}, panickingMatcher{}, GDPR())
	result := r.Route(scenario())
	if len(result) != 4 {
		t.Fatalf("expected 4 mappings, got %d", len(result))
	}
	if result[1].Err == nil || len(result[1].Tags) != 0 {
		t.Errorf("failing matcher should contribute no tags and carry its error: %+v", result[1])
	}
	if result[2].Err == nil || len(result[2].Tags) != 0 {
		t.Errorf("panicking matcher should be isolated: %+v", result[2])
	}
	if len(result[0].Tags) == 0 || len(result[3].Tags) == 0 {
		t.Errorf("healthy matchers must still contribute: %+v", result)
	}
	if got := len(result.Rendered()); got != 2 {
		t.Errorf("expected 2 rendered frameworks, got %d", got)
	}
}

// --- Rendering round trip ---

func TestRenderParse_RoundTrip(t *testing.T) {
	result := DefaultRouter(nil).Route(&schema.Classification{
		IncidentDescription: "Data breach of personal data after a control failure in the financial reporting system; compliance review failure",
		BaselCategory:       "Technology / Legal",
		RootCause:           "Failed to identify outdated controls",
	})
	parsed, err := ParseTags(result.Rendered())
	if err != nil {
		t.Fatalf("ParseTags: %v", err)
	}
	for _, m := range result {
		if len(m.Tags) == 0 {
			if _, ok := parsed[m.Framework]; ok {
				t.Errorf("%s had no tags but was rendered", m.Framework)
			}
			continue
		}
		got := append([]string{}, parsed[m.Framework]...)
		want := append([]string{}, m.Tags...)
		sort.Strings(got)
		sort.Strings(want)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: round trip %v, want %v", m.Framework, got, want)
		}
	}
}

func TestParseTag_SplitsOnFirstColon(t *testing.T) {
	name, tags, err := ParseTag("GDPR: Article 5: Integrity & Confidentiality, Article 6: Lawful Basis")
	if err != nil {
		t.Fatalf("ParseTag: %v", err)
	}
	if name != "GDPR" {
		t.Errorf("name = %q, want GDPR", name)
	}
	want := []string{"Article 5: Integrity & Confidentiality", "Article 6: Lawful Basis"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %q, want %q", tags, want)
	}
}

func TestParseTag_Invalid(t *testing.T) {
	for _, s := range []string{"no colon here", ": orphan", "COSO:", "COSO: , "} {
		if _, _, err := ParseTag(s); err == nil {
			t.Errorf("ParseTag(%q): expected error", s)
		}
	}
}
