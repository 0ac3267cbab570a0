package nwb

import (
	"fmt"
	"sort"
	"sync"
)

// Type is a neurodata type and the type it extends.
type Type struct {
	Name   string
	Parent *Type
}

// Lineage returns the type names from t up to its root.
func (t *Type) Lineage() []string {
	var names []string
	for cur := t; cur != nil; cur = cur.Parent {
		names = append(names, cur.Name)
	}
	return names
}

// Is reports whether t is name or extends it.
func (t *Type) Is(name string) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur.Name == name {
			return true
		}
	}
	return false
}

// coreTypes is the hdmf/pynwb hierarchy, parents before children.
var coreTypes = [][2]string{
	{"Container", ""},
	{"Data", ""},
	{"NWBContainer", "Container"},
	{"NWBDataInterface", "NWBContainer"},
	{"MultiContainerInterface", "NWBDataInterface"},
	{"NWBFile", "MultiContainerInterface"},
	{"ProcessingModule", "MultiContainerInterface"},
	{"Subject", "NWBContainer"},
	{"Device", "NWBContainer"},
	{"ElectrodeGroup", "NWBContainer"},
	{"IntracellularElectrode", "NWBContainer"},
	{"OptogeneticStimulusSite", "NWBContainer"},
	{"ImagingPlane", "NWBContainer"},
	{"LabMetaData", "NWBContainer"},
	{"TimeSeries", "NWBDataInterface"},
	{"ElectricalSeries", "TimeSeries"},
	{"SpikeEventSeries", "ElectricalSeries"},
	{"SpatialSeries", "TimeSeries"},
	{"RoiResponseSeries", "TimeSeries"},
	{"ImageSeries", "TimeSeries"},
	{"ImageMaskSeries", "ImageSeries"},
	{"OpticalSeries", "ImageSeries"},
	{"TwoPhotonSeries", "ImageSeries"},
	{"IndexSeries", "TimeSeries"},
	{"OptogeneticSeries", "TimeSeries"},
	{"AnnotationSeries", "TimeSeries"},
	{"IntervalSeries", "TimeSeries"},
	{"PatchClampSeries", "TimeSeries"},
	{"CurrentClampSeries", "PatchClampSeries"},
	{"VoltageClampSeries", "PatchClampSeries"},
	{"Position", "MultiContainerInterface"},
	{"CompassDirection", "MultiContainerInterface"},
	{"BehavioralTimeSeries", "MultiContainerInterface"},
	{"LFP", "MultiContainerInterface"},
	{"Fluorescence", "MultiContainerInterface"},
	{"DfOverF", "MultiContainerInterface"},
	{"ImageSegmentation", "MultiContainerInterface"},
	{"Images", "NWBDataInterface"},
	{"DynamicTable", "Container"},
	{"TimeIntervals", "DynamicTable"},
	{"Units", "DynamicTable"},
	{"PlaneSegmentation", "DynamicTable"},
	{"VectorData", "Data"},
	{"VectorIndex", "VectorData"},
	{"DynamicTableRegion", "VectorData"},
	{"ElementIdentifiers", "Data"},
	{"NWBData", "Data"},
	{"Image", "NWBData"},
	{"GrayscaleImage", "Image"},
	{"RGBImage", "Image"},
	{"RGBAImage", "Image"},
}

// FallbackParent is used for undeclared extension types.
const FallbackParent = "Container"

// TypeRegistry resolves type names to their lineage.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewTypeRegistry returns a registry holding the core hierarchy.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]*Type, len(coreTypes))}
	for _, pair := range coreTypes {
		if _, err := r.Define(pair[0], pair[1]); err != nil {
			panic(err)
		}
	}
	return r
}

// Define adds name as a subtype of parent. Redefining with the same parent is a no-op.
func (r *TypeRegistry) Define(name, parent string) (*Type, error) {
	if name == "" {
		return nil, fmt.Errorf("define type: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var parentType *Type
	if parent != "" {
		p, ok := r.types[parent]
		if !ok {
			return nil, fmt.Errorf("define type %q: unknown parent %q", name, parent)
		}
		parentType = p
	}

	if existing, ok := r.types[name]; ok {
		if existing.Parent == parentType {
			return existing, nil
		}
		return nil, fmt.Errorf("define type %q: already defined with a different parent", name)
	}

	t := &Type{Name: name, Parent: parentType}
	r.types[name] = t
	return t, nil
}

// Lookup returns the named type.
func (r *TypeRegistry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Clone returns an independent copy that can be extended per file.
func (r *TypeRegistry) Clone() *TypeRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := &TypeRegistry{types: make(map[string]*Type, len(r.types))}
	for name, t := range r.types {
		out.types[name] = t
	}
	return out
}

// DefineAll adds extension types given as name -> parent, resolving
// parents declared in the same set regardless of order.
func (r *TypeRegistry) DefineAll(decls map[string]string) error {
	pending := make([]string, 0, len(decls))
	for name := range decls {
		pending = append(pending, name)
	}
	sort.Strings(pending)

	for len(pending) > 0 {
		progressed := false
		next := pending[:0]
		for _, name := range pending {
			parent := decls[name]
			if _, ok := r.Lookup(parent); !ok && parent != "" {
				next = append(next, name)
				continue
			}
			if _, err := r.Define(name, parent); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			return fmt.Errorf("unresolvable type declarations: %v", next)
		}
		pending = next
	}

	return nil
}
