package checks

import (
	"fmt"
	"path"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

// optionalTextAttributes are the string attributes each type leaves unset by default.
var optionalTextAttributes = map[string][]string{
	"NWBFile": {
		"experiment_description", "session_id", "institution", "notes", "pharmacology", "protocol",
		"related_publications", "slices", "source_script", "data_collection", "surgery", "virus",
		"stimulus_notes", "lab",
	},
	"Subject":                {"age", "description", "genotype", "sex", "species", "subject_id", "weight", "strain"},
	"Device":                 {"description", "manufacturer"},
	"ElectrodeGroup":         {"position"},
	"IntracellularElectrode": {"slice", "seal", "initial_access_resistance", "resistance", "filtering", "cell_id"},
	"ImagingPlane":           {"reference_frame"},
}

func registerContainers(reg *registry.Registry) {
	reg.MustRegister(message.BestPracticeViolation, "NWBContainer", "check_large_dataset_compression", checkLargeDatasetCompression,
		registry.WithDescription("Large datasets should be compressed."),
		registry.WithDefaults(registry.Params{"gb_lower_bound": 20}))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBContainer", "check_small_dataset_compression", checkSmallDatasetCompression,
		registry.WithDescription("Mid-sized datasets should be compressed."),
		registry.WithDefaults(registry.Params{"gb_severity_threshold": 10, "mb_lower_bound": 50, "gb_upper_bound": 20}))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBContainer", "check_empty_string_for_optional_attribute", checkEmptyStringForOptionalAttribute,
		registry.WithDescription("Optional attributes should be omitted rather than empty."))
}

func datasetName(field string, d *nwb.Dataset) string {
	if d.Path != "" {
		return path.Base(d.Path)
	}
	return field
}

func checkLargeDatasetCompression(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	lowerBound := p.Float("gb_lower_bound", 20) * 1e9
	for _, field := range obj.DatasetFields() {
		d := obj.Dataset(field)
		if d.Compressed() || float64(d.NBytes()) <= lowerBound {
			continue
		}
		msg := message.New(fmt.Sprintf("%s is a large uncompressed dataset! Please enable compression.", datasetName(field, d)))
		return []message.Message{msg.WithSeverity(message.SeverityHigh)}, nil
	}
	return nil, nil
}

func checkSmallDatasetCompression(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	lowerBound := p.Float("mb_lower_bound", 50) * 1e6
	upperBound := p.Float("gb_upper_bound", 20) * 1e9
	severityThreshold := p.Float("gb_severity_threshold", 10) * 1e9

	for _, field := range obj.DatasetFields() {
		d := obj.Dataset(field)
		nbytes := float64(d.NBytes())
		if d.Compressed() || nbytes <= lowerBound || nbytes >= upperBound {
			continue
		}
		severity := message.SeverityLow
		if nbytes > severityThreshold {
			severity = message.SeverityHigh
		}
		msg := message.New(fmt.Sprintf("%s is not compressed. Consider enabling compression when writing a dataset.", datasetName(field, d)))
		return []message.Message{msg.WithSeverity(severity)}, nil
	}
	return nil, nil
}

func checkEmptyStringForOptionalAttribute(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if obj.Type == nil {
		return nil, nil
	}

	var out []message.Message
	seen := make(map[string]bool)
	for _, typeName := range obj.Type.Lineage() {
		for _, attr := range optionalTextAttributes[typeName] {
			if seen[attr] {
				continue
			}
			seen[attr] = true
			if value, ok := obj.String(attr); ok && value == "" {
				out = append(out, message.New(fmt.Sprintf(
					"The attribute %q is optional and you have supplied an empty string. Improve my omitting this attribute (in MatNWB or PyNWB) or entering as None (in PyNWB)",
					attr)))
			}
		}
	}
	return out, nil
}
