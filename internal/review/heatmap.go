package review

import "github.com/dshills/riskloggr/internal/schema"

// Heatmap counts classifications by likelihood and impact type. A
// classification flagged with several impact types lands in several cells.
type Heatmap struct {
	cells map[schema.Likelihood]map[schema.ImpactType]int
	// Unplotted counts classifications with no likelihood or no impact type.
	Unplotted int
}

// BuildHeatmap tallies cs into a Heatmap. Unknown likelihoods and impact
// types are not plotted.
func BuildHeatmap(cs []*schema.Classification) *Heatmap {
	h := &Heatmap{cells: make(map[schema.Likelihood]map[schema.ImpactType]int)}
	for _, c := range cs {
		if c == nil {
			continue
		}
		plotted := false
		if schema.IsValidLikelihood(c.Likelihood) {
			for _, it := range schema.DedupImpactTypes(c.ImpactType) {
				if !schema.IsValidImpactType(it) {
					continue
				}
				row := h.cells[c.Likelihood]
				if row == nil {
					row = make(map[schema.ImpactType]int)
					h.cells[c.Likelihood] = row
				}
				row[it]++
				plotted = true
			}
		}
		if !plotted {
			h.Unplotted++
		}
	}
	return h
}

// Count returns the number of classifications in one cell.
func (h *Heatmap) Count(l schema.Likelihood, it schema.ImpactType) int {
	return h.cells[l][it]
}

// Total returns the sum over all cells.
func (h *Heatmap) Total() int {
	n := 0
	for _, row := range h.cells {
		for _, v := range row {
			n += v
		}
	}
	return n
}

// Max returns the largest cell count, or 0 for an empty heatmap.
func (h *Heatmap) Max() int {
	m := 0
	for _, row := range h.cells {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// SeverityCounts returns how many classifications carry each score 1-5.
// Index 0 holds out-of-range scores.
func SeverityCounts(cs []*schema.Classification) [6]int {
	var counts [6]int
	for _, c := range cs {
		if c == nil {
			continue
		}
		if c.SeverityScore >= 1 && c.SeverityScore <= 5 {
			counts[c.SeverityScore]++
		} else {
			counts[0]++
		}
	}
	return counts
}

// FilterBySeverity returns only classifications scored at or above min.
func FilterBySeverity(cs []*schema.Classification, min int) []*schema.Classification {
	if min <= 1 {
		return cs
	}
	out := make([]*schema.Classification, 0, len(cs))
	for _, c := range cs {
		if c != nil && c.SeverityScore >= min {
			out = append(out, c)
		}
	}
	return out
}
