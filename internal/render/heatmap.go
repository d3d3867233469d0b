package render

import (
	"fmt"
	"strings"

	"github.com/dshills/riskloggr/internal/review"
	"github.com/dshills/riskloggr/internal/schema"
)

// Heatmap renders h as a markdown table: likelihood rows from Certain down
// to Rare, one column per impact type.
func Heatmap(h *review.Heatmap) []byte {
	var sb strings.Builder
	sb.WriteString("# Risk Heatmap (Likelihood vs. Impact)\n\n")
	if h.Total() == 0 {
		sb.WriteString("No data available to generate heatmap.\n")
		if h.Unplotted > 0 {
			fmt.Fprintf(&sb, "\n%d classification(s) lack a likelihood or impact type.\n", h.Unplotted)
		}
		return []byte(sb.String())
	}

	sb.WriteString("| Likelihood |")
	for _, it := range schema.ImpactTypes {
		fmt.Fprintf(&sb, " %s |", it)
	}
	sb.WriteString("\n|---|")
	for range schema.ImpactTypes {
		sb.WriteString("---:|")
	}
	sb.WriteString("\n")

	hottest := h.Max()
	for i := len(schema.Likelihoods) - 1; i >= 0; i-- {
		l := schema.Likelihoods[i]
		fmt.Fprintf(&sb, "| %s |", l)
		for _, it := range schema.ImpactTypes {
			n := h.Count(l, it)
			if n == hottest {
				fmt.Fprintf(&sb, " **%d** |", n)
			} else {
				fmt.Fprintf(&sb, " %d |", n)
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nBold cells hold the highest count (%d).\n", hottest)

	fmt.Fprintf(&sb, "\nPlotted: %d", h.Total())
	if h.Unplotted > 0 {
		fmt.Fprintf(&sb, " | Not plotted (no likelihood or impact type): %d", h.Unplotted)
	}
	sb.WriteString("\n")
	return []byte(sb.String())
}
