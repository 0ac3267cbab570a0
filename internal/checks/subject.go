package checks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

var (
	durationPattern = regexp.MustCompile(`^P(\d+(?:\.\d+)?Y)?(\d+(?:\.\d+)?M)?(\d+(?:\.\d+)?W)?(\d+(?:\.\d+)?D)?(T(\d+(?:\.\d+)?H)?(\d+(?:\.\d+)?M)?(\d+(?:\.\d+)?S)?)?$`)
	speciesPattern  = regexp.MustCompile(`^(?:[A-Z][a-z]* [a-z]+|http://purl\.obolibrary\.org/obo/NCBITaxon_\d+)$`)
	validSexes      = map[string]bool{"M": true, "F": true, "O": true, "U": true}
)

// durationUnitSeconds approximates calendar units: a year is 365 days and a month 30.
var durationUnitSeconds = []float64{
	365 * 86400, // Y
	30 * 86400,  // M
	7 * 86400,   // W
	86400,       // D
	0,           // T
	3600,        // H
	60,          // M
	1,           // S
}

func registerSubject(reg *registry.Registry) {
	reg.MustRegister(message.BestPracticeSuggestion, "Subject", "check_subject_age", checkSubjectAge,
		registry.WithDescription("Subject age should be an ISO 8601 duration or range."))
	reg.MustRegister(message.BestPracticeSuggestion, "Subject", "check_subject_proper_age_range", checkSubjectProperAgeRange,
		registry.WithDescription("Age ranges should have increasing bounds."))
	reg.MustRegister(message.BestPracticeSuggestion, "Subject", "check_subject_id_exists", checkSubjectIDExists,
		registry.WithDescription("subject_id should be present."))
	reg.MustRegister(message.BestPracticeSuggestion, "Subject", "check_subject_sex", checkSubjectSex,
		registry.WithDescription("Subject sex should be one of M, F, O or U."))
	reg.MustRegister(message.BestPracticeViolation, "Subject", "check_subject_species_exists", checkSubjectSpeciesExists,
		registry.WithDescription("Subject species should be present."))
	reg.MustRegister(message.BestPracticeViolation, "Subject", "check_subject_species_form", checkSubjectSpeciesForm,
		registry.WithDescription("Species should be a latin binomial or an NCBI taxonomy link."))
}

// isDuration reports whether s is an ISO 8601 duration such as P2Y or PT3H.
func isDuration(s string) bool {
	match := durationPattern.FindStringSubmatch(s)
	if match == nil || s == "P" {
		return false
	}
	return match[5] != "T"
}

// durationSeconds converts an ISO 8601 duration to approximate seconds.
func durationSeconds(s string) (float64, bool) {
	match := durationPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, false
	}
	total := 0.0
	for i, unit := range durationUnitSeconds {
		part := match[i+1]
		if unit == 0 || part == "" {
			continue
		}
		value, err := strconv.ParseFloat(part[:len(part)-1], 64)
		if err != nil {
			return 0, false
		}
		total += value * unit
	}
	return total, true
}

func checkSubjectAge(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	age, ok := obj.String("age")
	if !ok {
		if !obj.Has("date_of_birth") {
			return found("Subject is missing age and date_of_birth.")
		}
		return nil, nil
	}
	if isDuration(age) {
		return nil, nil
	}
	if lower, upper, isRange := strings.Cut(age, "/"); isRange && !strings.Contains(upper, "/") {
		if isDuration(lower) && (isDuration(upper) || upper == "") {
			return nil, nil
		}
	}
	return found(fmt.Sprintf(
		"Subject age, '%s', does not follow ISO 8601 duration format, e.g. 'P2Y' for 2 years or 'P23W' for 23 weeks. You may also specify a range using a '/' separator, e.g., 'P1D/P3D' for an age range somewhere from 1 to 3 days. If you cannot specify the upper bound of the range, you may leave the right side blank, e.g., 'P90Y/' means 90 years old or older.",
		age))
}

func checkSubjectProperAgeRange(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	age, ok := obj.String("age")
	if !ok {
		return nil, nil
	}
	lower, upper, isRange := strings.Cut(age, "/")
	if !isRange || !isDuration(lower) || !isDuration(upper) {
		return nil, nil
	}
	lowerSeconds, _ := durationSeconds(lower)
	upperSeconds, _ := durationSeconds(upper)
	if lowerSeconds >= upperSeconds {
		return found(fmt.Sprintf(
			"The durations of the Subject age range, '%s', are not strictly increasing. The upper (right) bound should be a longer duration than the lower (left) bound.",
			age))
	}
	return nil, nil
}

func checkSubjectIDExists(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if !obj.Has("subject_id") {
		return found("subject_id is missing.")
	}
	return nil, nil
}

func checkSubjectSex(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	sex, _ := obj.String("sex")
	if sex == "" {
		return found("Subject.sex is missing.")
	}
	if !validSexes[sex] {
		return found("Subject.sex should be one of: 'M' (male), 'F' (female), 'O' (other), or 'U' (unknown).")
	}
	return nil, nil
}

func checkSubjectSpeciesExists(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if species, _ := obj.String("species"); species == "" {
		return found("Subject species is missing.")
	}
	return nil, nil
}

func checkSubjectSpeciesForm(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	species, _ := obj.String("species")
	if species != "" && !speciesPattern.MatchString(species) {
		return found(fmt.Sprintf("Subject species '%s' should be in latin binomial form, e.g. 'Mus musculus' and 'Homo sapiens'", species))
	}
	return nil, nil
}
