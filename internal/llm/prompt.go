package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert in operational risk classification. Provide output strictly as a JSON object.

Output rules:
- Return JSON only: no prose, no markdown fences, no explanation
- JSON must contain exactly the keys in the provided structure
- Do not include framework mappings; those are computed externally`

const instructions = `Classify the following operational risk incident, executive summary style.
Additionally, estimate the inherent risk, residual risk (assuming control recommendations are implemented), likelihood, and impact type.
Return the result as valid JSON with the following keys:
- basel_ii_category: string (based on the Basel II operational risk event types)
- severity_score: integer (1-5, 1=Low, 5=High)
- root_cause: string (natural, plain English)
- control_recommendations: list of clearly written, full-sentence recommendations in natural language. DO NOT number them or return an object with keys like 0, 1, 2. Just return a clean JSON list of strings.
- inherent_risk: string (risk level before controls: "Low", "Medium", "High", "Very High")
- residual_risk: string (risk level after implementing the control recommendations: "Low", "Medium", "High", "Very High")
- likelihood: string (one of "Rare", "Unlikely", "Possible", "Likely", "Certain")
- impact_type: list of strings (any of "Financial", "Legal", "Reputational", "Operational"; no duplicates)
Respond only with valid JSON.`

const schemaExample = `{
  "basel_ii_category": "Internal Fraud",
  "severity_score": 4,
  "root_cause": "Plain-English explanation of why the incident happened",
  "control_recommendations": ["First full-sentence recommendation.", "Second full-sentence recommendation."],
  "inherent_risk": "High",
  "residual_risk": "Medium",
  "likelihood": "Possible",
  "impact_type": ["Financial", "Reputational"]
}`

// BuildSystemPrompt returns the fixed system prompt for incident classification.
func BuildSystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt wraps the incident text with the classification
// instructions and the expected JSON structure.
func BuildUserPrompt(incident string) string {
	var sb strings.Builder

	sb.WriteString(instructions)
	sb.WriteString("\n\n<incident>\n")
	sb.WriteString(incident)
	if !strings.HasSuffix(incident, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("</incident>\n")

	sb.WriteString(fmt.Sprintf("\nReturn your classification as JSON with this structure:\n%s", schemaExample))

	return sb.String()
}
