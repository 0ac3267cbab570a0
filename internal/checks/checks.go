// Package checks holds the built-in best-practice checks.
package checks

import (
	"math"
	"strconv"
	"time"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

// defaultNElems bounds how many values array checks read.
const defaultNElems = 200

// SubjectCheckNames are the checks that only make sense for in vivo subjects.
var SubjectCheckNames = []string{
	"check_subject_exists",
	"check_subject_id_exists",
	"check_subject_sex",
	"check_subject_species_exists",
	"check_subject_species_form",
	"check_subject_age",
	"check_subject_proper_age_range",
}

// now is swapped in tests.
var now = time.Now

// NewRegistry builds the registry of every built-in check in its canonical order.
func NewRegistry() *registry.Registry {
	reg := registry.New()
	registerGeneral(reg)
	registerContainers(reg)
	registerTimeSeries(reg)
	registerTables(reg)
	registerEcephys(reg)
	registerBehavior(reg)
	registerMetadata(reg)
	registerSubject(reg)
	return reg
}

func found(text string) ([]message.Message, error) {
	return []message.Message{message.New(text)}, nil
}

// formatFloat prints v the way numeric values appear in report text: integral
// values keep a trailing ".0".
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatTime prints a timestamp as "YYYY-MM-DD HH:MM:SS[.ffffff]+hh:mm".
func formatTime(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02 15:04:05.000000-07:00")
	}
	return t.Format("2006-01-02 15:04:05-07:00")
}

// timestampsOf returns the explicit timestamps of a series, following a link
// to another series when the timestamps are shared.
func timestampsOf(obj *nwb.Object) *nwb.Dataset {
	for hops := 0; obj != nil && hops < 8; hops++ {
		if d := obj.Dataset("timestamps"); d != nil {
			return d
		}
		obj = obj.Ref("timestamps")
	}
	return nil
}

// column finds a table column's data by name.
func column(table *nwb.Object, name string) *nwb.Dataset {
	for _, col := range table.Refs("columns") {
		if col.Name == name {
			return col.Dataset("data")
		}
	}
	return table.Dataset(name)
}

// columnNames lists a table's columns, preferring the declared colnames order.
func columnNames(table *nwb.Object) []string {
	if names := table.Strings("colnames"); len(names) > 0 {
		return names
	}
	var names []string
	for _, col := range table.Refs("columns") {
		names = append(names, col.Name)
	}
	return names
}
