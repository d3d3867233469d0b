package render

import (
	"encoding/json"
)

type jsonRenderer struct{}

func (r *jsonRenderer) Render(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
