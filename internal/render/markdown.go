package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

type markdownRenderer struct{}

var mdFuncs = template.FuncMap{
	// quote keeps every line of a multi-line description inside the blockquote.
	"quote": func(s string) string { return strings.ReplaceAll(s, "\n", "\n> ") },
}

var mdTemplate = template.Must(template.New("classification").Funcs(mdFuncs).Parse(`# Incident Classification
{{ if .ID }}
**ID:** {{ .ID }}
{{ end }}
> {{ quote .IncidentDescription }}

**Basel II Category:** {{ .BaselCategory }}
**Severity:** {{ .SeverityScore }}/5
**Inherent Risk:** {{ or .InherentRisk "n/a" }} | **Residual Risk:** {{ or .ResidualRisk "n/a" }}
**Likelihood:** {{ or .Likelihood "n/a" }}
**Impact:** {{ if .ImpactType }}{{ range $i, $t := .ImpactType }}{{ if $i }}, {{ end }}{{ $t }}{{ end }}{{ else }}n/a{{ end }}

## Root Cause

{{ .RootCause }}
{{ if .ControlRecommendations }}
## Control Recommendations
{{ range .ControlRecommendations }}
- {{ . }}{{ end }}
{{ end }}{{ if .FrameworkTags }}
## Framework Mappings
{{ range .FrameworkTags }}
- {{ . }}{{ end }}
{{ end }}`))

func (r *markdownRenderer) Render(doc *Document) ([]byte, error) {
	if doc == nil || doc.Classification == nil {
		return nil, fmt.Errorf("rendering markdown: no classification")
	}
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
