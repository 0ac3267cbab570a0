package reporter

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

// CatalogTextReporter writes the check catalog in human-readable text.
type CatalogTextReporter struct {
	writer io.Writer
}

// NewCatalogTextReporter creates a text reporter for the check catalog.
func NewCatalogTextReporter(w io.Writer) *CatalogTextReporter {
	return &CatalogTextReporter{writer: w}
}

// GenerateCatalog lists checks grouped by importance, most severe first.
func (r *CatalogTextReporter) GenerateCatalog(ctx context.Context, catalog *CheckCatalog) error {
	var writeErr error
	writef := func(format string, args ...any) {
		if writeErr != nil {
			return
		}
		_, writeErr = fmt.Fprintf(r.writer, format, args...)
	}

	writef("NWBInspector Checks\n")
	writef("===================\n\n")
	writef("Total: %d\n\n", catalog.Total)

	if len(catalog.Checks) == 0 {
		writef("No checks selected.\n")
		return writeErr
	}

	levels := message.AssignableImportances()
	slices.Reverse(levels)
	for _, imp := range levels {
		group := filterChecksByImportance(catalog.Checks, imp)
		if len(group) == 0 {
			continue
		}

		name := imp.String()
		writef("%s (%d)\n", name, len(group))
		writef("%s\n\n", strings.Repeat("-", len(name)+5))

		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Name < group[j].Name
		})

		for _, entry := range group {
			writef("[%s] %s\n", entry.TargetType, entry.Name)
			if entry.Description != "" {
				writef("  %s\n", entry.Description)
			}
			if len(entry.Params) > 0 {
				keys := make([]string, 0, len(entry.Params))
				for key := range entry.Params {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					writef("  %s = %g\n", key, entry.Params[key])
				}
			}
		}
		writef("\n")
	}

	return writeErr
}

func filterChecksByImportance(entries []*CheckEntry, imp message.Importance) []*CheckEntry {
	out := make([]*CheckEntry, 0)
	for _, entry := range entries {
		if entry.Importance == imp {
			out = append(out, entry)
		}
	}
	return out
}
