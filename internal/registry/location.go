package registry

import (
	"path"
	"slices"
	"strings"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
)

// linkFields reference data owned elsewhere and never describe placement.
var linkFields = map[string]bool{
	"timestamps":     true,
	"timestamp_link": true,
}

// Location derives the in-file path of obj. It never fails; an object that
// cannot be placed yields "".
func Location(obj *nwb.Object) (loc string) {
	defer func() {
		if recover() != nil {
			loc = ""
		}
	}()

	if obj == nil {
		return ""
	}
	if root, ok := knownRoot(obj); ok {
		return root
	}
	if obj.Parent == nil {
		return "/"
	}

	if obj.Is("Data") {
		if d := obj.Dataset("data"); d != nil && strings.HasPrefix(d.Path, "/") {
			return d.Path
		}
	}
	for _, name := range obj.DatasetFields() {
		if d := obj.Dataset(name); strings.HasPrefix(d.Path, "/") {
			return path.Dir(d.Path)
		}
	}

	prefix := "/"
	var segments []string
	cur := obj
	for cur.Parent != nil {
		if root, ok := knownRoot(cur); ok {
			prefix = root
			break
		}
		segments = append(segments, segmentsWithin(cur.Parent, cur)...)
		cur = cur.Parent
	}
	if cur.Parent == nil {
		if root, ok := knownRoot(cur); ok {
			prefix = root
		}
	}

	slices.Reverse(segments)
	return path.Join(append([]string{prefix}, segments...)...)
}

// knownRoot places objects whose path is fixed by the file layout.
func knownRoot(obj *nwb.Object) (string, bool) {
	switch {
	case obj.Is("NWBFile"):
		return "/", true
	case obj.Is("Subject"):
		return "/general/subject", true
	case obj.Is("Device"):
		return "/general/devices/" + obj.Name, true
	case obj.Is("ElectrodeGroup"):
		return "/general/extracellular_ephys/" + obj.Name, true
	default:
		return "", false
	}
}

// segmentsWithin returns the path steps from parent down to child, in reverse
// order so the caller can accumulate them while walking up.
func segmentsWithin(parent, child *nwb.Object) []string {
	for _, field := range parent.FieldNames() {
		if linkFields[field] {
			continue
		}
		v, _ := parent.Field(field)
		switch ref := v.(type) {
		case *nwb.Object:
			if ref == child {
				return []string{field}
			}
		case []*nwb.Object:
			if !slices.Contains(ref, child) {
				continue
			}
			if parent.Parent == nil {
				return []string{child.Name, field}
			}
			return []string{child.Name}
		}
	}
	return []string{child.Name}
}
