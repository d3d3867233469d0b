package schema

import "strings"

// Classification is the structured risk record derived from one incident
// description. It is built once per classification request, has its
// FrameworkTags attached after routing, and is then treated as immutable.
type Classification struct {
	IncidentDescription    string          `json:"incident_description"`
	BaselCategory          string          `json:"basel_ii_category" validate:"required"`
	SeverityScore          int             `json:"severity_score" validate:"min=1,max=5"`
	RootCause              string          `json:"root_cause" validate:"required"`
	ControlRecommendations Recommendations `json:"control_recommendations"`
	FrameworkTags          []string        `json:"framework_tags"`
	InherentRisk           RiskLevel       `json:"inherent_risk,omitempty" validate:"omitempty,risk_level"`
	ResidualRisk           RiskLevel       `json:"residual_risk,omitempty" validate:"omitempty,risk_level"`
	Likelihood             Likelihood      `json:"likelihood,omitempty" validate:"omitempty,likelihood"`
	ImpactType             []ImpactType    `json:"impact_type" validate:"dive,impact_type"`
}

// Clone returns a deep copy of c.
func (c *Classification) Clone() *Classification {
	out := *c
	out.ControlRecommendations = append(Recommendations{}, c.ControlRecommendations...)
	out.FrameworkTags = append([]string{}, c.FrameworkTags...)
	out.ImpactType = append([]ImpactType{}, c.ImpactType...)
	return &out
}

// Normalize trims the required text fields, cleans the recommendations,
// deduplicates impact types and replaces nil lists with empty ones. It is
// idempotent.
func (c *Classification) Normalize() {
	c.BaselCategory = strings.TrimSpace(c.BaselCategory)
	c.RootCause = strings.TrimSpace(c.RootCause)
	c.ControlRecommendations = c.ControlRecommendations.Normalize()
	if c.FrameworkTags == nil {
		c.FrameworkTags = []string{}
	}
	c.ImpactType = DedupImpactTypes(c.ImpactType)
}

// RiskLevel grades inherent and residual risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
)

// RiskLevels lists the valid risk levels in ascending order.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskVeryHigh}

// IsValidRiskLevel reports whether r is one of the four defined levels.
func IsValidRiskLevel(r RiskLevel) bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskVeryHigh:
		return true
	}
	return false
}

// Likelihood is the estimated probability of recurrence.
type Likelihood string

const (
	LikelihoodRare     Likelihood = "Rare"
	LikelihoodUnlikely Likelihood = "Unlikely"
	LikelihoodPossible Likelihood = "Possible"
	LikelihoodLikely   Likelihood = "Likely"
	LikelihoodCertain  Likelihood = "Certain"
)

// Likelihoods lists the valid likelihoods in ascending order.
var Likelihoods = []Likelihood{
	LikelihoodRare, LikelihoodUnlikely, LikelihoodPossible, LikelihoodLikely, LikelihoodCertain,
}

// IsValidLikelihood reports whether l is on the five-point scale.
func IsValidLikelihood(l Likelihood) bool {
	return LikelihoodOrdinal(l) > 0
}

// LikelihoodOrdinal returns 1 (Rare) through 5 (Certain), or 0 for an
// unrecognised value.
func LikelihoodOrdinal(l Likelihood) int {
	for i, v := range Likelihoods {
		if v == l {
			return i + 1
		}
	}
	return 0
}

// ImpactType is a category of harm an incident can cause.
type ImpactType string

const (
	ImpactFinancial    ImpactType = "Financial"
	ImpactLegal        ImpactType = "Legal"
	ImpactReputational ImpactType = "Reputational"
	ImpactOperational  ImpactType = "Operational"
)

// ImpactTypes lists the valid impact types.
var ImpactTypes = []ImpactType{ImpactFinancial, ImpactLegal, ImpactReputational, ImpactOperational}

// IsValidImpactType reports whether t is one of the four impact types.
func IsValidImpactType(t ImpactType) bool {
	switch t {
	case ImpactFinancial, ImpactLegal, ImpactReputational, ImpactOperational:
		return true
	}
	return false
}

// DedupImpactTypes removes repeated entries, keeping the first occurrence.
// The result is never nil.
func DedupImpactTypes(types []ImpactType) []ImpactType {
	out := make([]ImpactType, 0, len(types))
	seen := make(map[ImpactType]bool, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
