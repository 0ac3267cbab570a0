package registry

import (
	"testing"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
)

const locationSnapshot = `{
  "objects": [
    {"id": "f", "type": "NWBFile", "name": "root", "fields": {
      "acquisition": {"$refs": ["raw"]},
      "processing": {"$refs": ["behavior"]},
      "subject": {"$ref": "subj"},
      "devices": {"$refs": ["dev"]}
    }},
    {"id": "raw", "type": "TimeSeries", "name": "raw", "parent": "f", "fields": {
      "data": {"$dataset": {"path": "/acquisition/raw/data", "shape": [4]}}
    }},
    {"id": "behavior", "type": "ProcessingModule", "name": "behavior", "parent": "f", "fields": {
      "data_interfaces": {"$refs": ["pos"]}
    }},
    {"id": "pos", "type": "Position", "name": "Position", "parent": "behavior", "fields": {
      "spatial_series": {"$refs": ["xy"]}
    }},
    {"id": "xy", "type": "SpatialSeries", "name": "xy", "parent": "pos", "fields": {
      "timestamps": {"$ref": "raw"}
    }},
    {"id": "col", "type": "VectorData", "name": "col", "parent": "behavior", "fields": {
      "data": {"$dataset": {"path": "/processing/behavior/trials/col", "shape": [3]}}
    }},
    {"id": "subj", "type": "Subject", "name": "subject", "parent": "f", "fields": {}},
    {"id": "dev", "type": "Device", "name": "electrode_array", "parent": "f", "fields": {}},
    {"id": "ref", "type": "Container", "name": "meta", "parent": "dev", "fields": {}}
  ]
}`

func TestLocation(t *testing.T) {
	snap, err := nwb.Decode([]byte(locationSnapshot), nwb.FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	file, err := nwb.Materialize("loc.nwb", snap, nil)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	cases := []struct {
		id   string
		want string
	}{
		{id: "f", want: "/"},
		{id: "raw", want: "/acquisition/raw"},
		{id: "behavior", want: "/processing/behavior"},
		{id: "pos", want: "/processing/behavior/Position"},
		{id: "xy", want: "/processing/behavior/Position/xy"},
		{id: "col", want: "/processing/behavior/trials/col"},
		{id: "subj", want: "/general/subject"},
		{id: "dev", want: "/general/devices/electrode_array"},
		{id: "ref", want: "/general/devices/electrode_array/meta"},
	}

	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			obj := objectByID(t, file, tc.id)
			if got := Location(obj); got != tc.want {
				t.Fatalf("Location(%s) = %q, want %q", tc.id, got, tc.want)
			}
		})
	}
}

func TestLocationDetachedObject(t *testing.T) {
	obj := nwb.NewObject("1", "ts1", mustType(t, "TimeSeries"), nil)
	if got := Location(obj); got != "/" {
		t.Fatalf("Location() = %q, want /", got)
	}
	if got := Location(nil); got != "" {
		t.Fatalf("Location(nil) = %q, want empty", got)
	}
}

func objectByID(t *testing.T, file *nwb.File, id string) *nwb.Object {
	t.Helper()
	for _, obj := range file.Objects() {
		if obj.ID == id {
			return obj
		}
	}
	t.Fatalf("object %q not found", id)
	return nil
}
