package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// CatalogJSONReporter renders the check catalog as a single JSON document.
// HTML escaping is off so descriptions keep their literal "<", ">" and "&".
type CatalogJSONReporter struct {
	enc *json.Encoder
}

// NewCatalogJSONReporter indents nested fields by two spaces when indent is set.
func NewCatalogJSONReporter(w io.Writer, indent bool) *CatalogJSONReporter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return &CatalogJSONReporter{enc: enc}
}

// GenerateCatalog writes the catalog followed by a newline. A nil catalog is
// written as an empty one, so "checks" is always an array.
func (r *CatalogJSONReporter) GenerateCatalog(ctx context.Context, catalog *CheckCatalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if catalog == nil {
		catalog = NewCheckCatalog(nil)
	}
	if err := r.enc.Encode(catalog); err != nil {
		return fmt.Errorf("encode check catalog: %w", err)
	}
	return nil
}
