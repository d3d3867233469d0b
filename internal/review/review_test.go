package review

import (
	"testing"

	"github.com/dshills/riskloggr/internal/schema"
)

func rated(l schema.Likelihood, severity int, impacts ...schema.ImpactType) *schema.Classification {
	return &schema.Classification{SeverityScore: severity, Likelihood: l, ImpactType: impacts}
}

// --- Heatmap tests ---

func TestBuildHeatmap_CountsEachImpactType(t *testing.T) {
	h := BuildHeatmap([]*schema.Classification{
		rated(schema.LikelihoodLikely, 3, schema.ImpactFinancial, schema.ImpactReputational),
		rated(schema.LikelihoodLikely, 4, schema.ImpactFinancial),
		rated(schema.LikelihoodRare, 2, schema.ImpactLegal),
	})
	if got := h.Count(schema.LikelihoodLikely, schema.ImpactFinancial); got != 2 {
		t.Errorf("Likely/Financial = %d, want 2", got)
	}
	if got := h.Count(schema.LikelihoodLikely, schema.ImpactReputational); got != 1 {
		t.Errorf("Likely/Reputational = %d, want 1", got)
	}
	if got := h.Count(schema.LikelihoodRare, schema.ImpactLegal); got != 1 {
		t.Errorf("Rare/Legal = %d, want 1", got)
	}
	if got := h.Count(schema.LikelihoodCertain, schema.ImpactOperational); got != 0 {
		t.Errorf("empty cell = %d, want 0", got)
	}
	if h.Total() != 4 {
		t.Errorf("Total = %d, want 4", h.Total())
	}
	if h.Max() != 2 {
		t.Errorf("Max = %d, want 2", h.Max())
	}
	if h.Unplotted != 0 {
		t.Errorf("Unplotted = %d, want 0", h.Unplotted)
	}
}

func TestBuildHeatmap_DuplicateImpactCountedOnce(t *testing.T) {
	h := BuildHeatmap([]*schema.Classification{
		rated(schema.LikelihoodPossible, 3, schema.ImpactLegal, schema.ImpactLegal),
	})
	if got := h.Count(schema.LikelihoodPossible, schema.ImpactLegal); got != 1 {
		t.Errorf("Possible/Legal = %d, want 1", got)
	}
}

func TestBuildHeatmap_Unplotted(t *testing.T) {
	h := BuildHeatmap([]*schema.Classification{
		rated("", 3, schema.ImpactFinancial),
		rated(schema.LikelihoodLikely, 3),
		rated("Sometimes", 3, schema.ImpactFinancial),
		rated(schema.LikelihoodLikely, 3, "Environmental"),
		nil,
	})
	if h.Total() != 0 {
		t.Errorf("Total = %d, want 0", h.Total())
	}
	if h.Unplotted != 4 {
		t.Errorf("Unplotted = %d, want 4", h.Unplotted)
	}
}

func TestBuildHeatmap_Empty(t *testing.T) {
	h := BuildHeatmap(nil)
	if h.Total() != 0 || h.Max() != 0 || h.Unplotted != 0 {
		t.Errorf("empty heatmap not zero: %+v", h)
	}
}

// --- Severity tests ---

func TestSeverityCounts(t *testing.T) {
	counts := SeverityCounts([]*schema.Classification{
		rated("", 5), rated("", 5), rated("", 1), rated("", 9),
	})
	if counts[5] != 2 || counts[1] != 1 || counts[0] != 1 {
		t.Errorf("SeverityCounts = %v", counts)
	}
}

func TestFilterBySeverity_Threshold(t *testing.T) {
	cs := []*schema.Classification{rated("", 2), rated("", 4), rated("", 5)}
	got := FilterBySeverity(cs, 4)
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	for _, c := range got {
		if c.SeverityScore < 4 {
			t.Errorf("unexpected severity %d", c.SeverityScore)
		}
	}
}

func TestFilterBySeverity_OneReturnsAll(t *testing.T) {
	cs := []*schema.Classification{rated("", 1), rated("", 3)}
	if got := FilterBySeverity(cs, 1); len(got) != 2 {
		t.Errorf("expected all items, got %d", len(got))
	}
}
