package render

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/riskloggr/internal/schema"
	"github.com/dshills/riskloggr/internal/schema/validate"
	"github.com/dshills/riskloggr/internal/store"
)

// Separators used when a list column is flattened into one CSV cell.
const (
	impactSep = ", "
	tagSep    = "; "
	recSep    = "\n"
)

// csvColumns is the export header. Import requires only the first group.
var csvColumns = []string{
	"incident_description",
	"basel_ii_category",
	"severity_score",
	"root_cause",
	"control_recommendations",
	"id",
	"timestamp",
	"framework_tags",
	"inherent_risk",
	"residual_risk",
	"likelihood",
	"impact_type",
}

var requiredImportColumns = csvColumns[:5]

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []store.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, rec := range records {
		c := rec.Classification
		impacts := make([]string, len(c.ImpactType))
		for i, it := range c.ImpactType {
			impacts[i] = string(it)
		}
		err := cw.Write([]string{
			c.IncidentDescription,
			c.BaselCategory,
			strconv.Itoa(c.SeverityScore),
			c.RootCause,
			strings.Join(c.ControlRecommendations, recSep),
			rec.ID,
			rec.Timestamp.UTC().Format(time.RFC3339),
			strings.Join(c.FrameworkTags, tagSep),
			string(c.InherentRisk),
			string(c.ResidualRisk),
			string(c.Likelihood),
			strings.Join(impacts, impactSep),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type exportRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	*schema.Classification
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []store.Record) error {
	out := make([]exportRecord, len(records))
	for i, rec := range records {
		out[i] = exportRecord{ID: rec.ID, Timestamp: rec.Timestamp, Classification: rec.Classification}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ImportRow is one data row of an imported CSV.
type ImportRow struct {
	Line           int // 1-based line of the row's first field
	Classification *schema.Classification
	Err            error // row-level problem; Classification is nil when set
}

// ReadCSV parses a legacy classification CSV. The header must name the
// required columns; inherent_risk, residual_risk, likelihood and
// impact_type are read when present and anything else is ignored. Each
// returned row is normalized and validated on its own, so one bad row does
// not stop the rest.
func ReadCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("CSV is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range requiredImportColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV must contain the following columns: %s (missing %s)",
			strings.Join(requiredImportColumns, ", "), strings.Join(missing, ", "))
	}

	var rows []ImportRow
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		c, rowErr := importRow(index, fields)
		rows = append(rows, ImportRow{Line: line, Classification: c, Err: rowErr})
	}
	return rows, nil
}

func importRow(index map[string]int, fields []string) (*schema.Classification, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	severity, err := strconv.Atoi(cell("severity_score"))
	if err != nil {
		return nil, fmt.Errorf("severity_score %q is not an integer", cell("severity_score"))
	}

	var impacts []schema.ImpactType
	for _, part := range strings.Split(cell("impact_type"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			impacts = append(impacts, schema.ImpactType(part))
		}
	}

	c := &schema.Classification{
		IncidentDescription:    cell("incident_description"),
		BaselCategory:          cell("basel_ii_category"),
		SeverityScore:          severity,
		RootCause:              cell("root_cause"),
		ControlRecommendations: schema.ParseRecommendations(cell("control_recommendations")),
		InherentRisk:           schema.RiskLevel(cell("inherent_risk")),
		ResidualRisk:           schema.RiskLevel(cell("residual_risk")),
		Likelihood:             schema.Likelihood(cell("likelihood")),
		ImpactType:             impacts,
	}
	c.Normalize()
	if c.IncidentDescription == "" {
		return nil, fmt.Errorf("%w: incident_description is required", validate.ErrValidation)
	}
	if err := validate.Classification(c); err != nil {
		return nil, err
	}
	return c, nil
}
