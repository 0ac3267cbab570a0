package reporter

import (
	"context"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

// CheckEntry describes one check as configured for a run.
type CheckEntry struct {
	Name        string             `json:"name"`
	Importance  message.Importance `json:"importance"`
	TargetType  string             `json:"target_type"`
	Description string             `json:"description,omitempty"`
	Params      registry.Params    `json:"params,omitempty"`
}

// CheckCatalog is the output model for the checks command.
type CheckCatalog struct {
	Total  int           `json:"total"`
	Checks []*CheckEntry `json:"checks"`
}

// NewCheckCatalog lists checks in their configured order.
func NewCheckCatalog(checks []registry.Check) *CheckCatalog {
	catalog := &CheckCatalog{Total: len(checks), Checks: make([]*CheckEntry, 0, len(checks))}
	for _, c := range checks {
		target := c.TargetType()
		if target == registry.AnyType {
			target = "*"
		}
		catalog.Checks = append(catalog.Checks, &CheckEntry{
			Name:        c.Name(),
			Importance:  c.Importance(),
			TargetType:  target,
			Description: c.Description(),
			Params:      c.Params(),
		})
	}
	return catalog
}

// CatalogReporter renders a check catalog.
type CatalogReporter interface {
	GenerateCatalog(ctx context.Context, catalog *CheckCatalog) error
}
