package render

import (
	"fmt"

	"github.com/dshills/riskloggr/internal/schema"
)

// Document is a single classification as shown to the user. ID is empty
// for a classification that was not saved.
type Document struct {
	ID string `json:"id,omitempty"`
	*schema.Classification
}

// Renderer formats a Document into bytes for output.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json" (default), "md".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are json, md", format)
	}
}
