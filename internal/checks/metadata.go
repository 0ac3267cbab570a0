package checks

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

var (
	experimenterNamePattern = regexp.MustCompile(`^([\p{L}\p{N}_\s\-\.']+),\s+([\p{L}\p{N}_\s\-\.']+)$`)
	doiPrefixes             = []string{"doi:", "http://dx.doi.org/", "https://doi.org/"}
	processingModuleNames   = []string{"ophys", "ecephys", "icephys", "behavior", "misc", "ogen", "retinotopy"}
	oldSessionCutoff        = time.Date(1980, 1, 1, 0, 0, 0, 0, time.Local)
)

func registerMetadata(reg *registry.Registry) {
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_session_start_time_old_date", checkSessionStartTimeOldDate,
		registry.WithDescription("session_start_time should be a real recording date."))
	reg.MustRegister(message.Critical, "NWBFile", "check_session_start_time_future_date", checkSessionStartTimeFutureDate,
		registry.WithDescription("session_start_time must not be in the future."))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_experimenter_exists", checkExperimenterExists,
		registry.WithDescription("An experimenter should be listed."))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_experimenter_form", checkExperimenterForm,
		registry.WithDescription("Experimenter names should follow 'LastName, FirstName'."))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_experiment_description", checkExperimentDescription,
		registry.WithDescription("An experiment description should be present."))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_institution", checkInstitution,
		registry.WithDescription("The institution should be present."))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_keywords", checkKeywords,
		registry.WithDescription("Keywords should be present."))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_subject_exists", checkSubjectExists,
		registry.WithDescription("A subject should be present."))
	reg.MustRegister(message.BestPracticeSuggestion, "NWBFile", "check_doi_publications", checkDOIPublications,
		registry.WithDescription("Related publications should be DOIs."))
	reg.MustRegister(message.BestPracticeSuggestion, "ProcessingModule", "check_processing_module_name", checkProcessingModuleName,
		registry.WithDescription("Processing modules should use a standard modality name."))
}

func sessionStartTime(obj *nwb.Object) (time.Time, bool, error) {
	return obj.Time("session_start_time")
}

func checkSessionStartTimeOldDate(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	start, ok, err := sessionStartTime(obj)
	if err != nil || !ok {
		return nil, err
	}
	if !start.After(oldSessionCutoff) {
		return found(fmt.Sprintf("The session_start_time (%s) may not be set to the true date of the recording.", formatTime(start)))
	}
	return nil, nil
}

func checkSessionStartTimeFutureDate(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	start, ok, err := sessionStartTime(obj)
	if err != nil || !ok {
		return nil, err
	}
	if !start.Before(now()) {
		return found(fmt.Sprintf("The session_start_time (%s) is set to a future date and time.", formatTime(start)))
	}
	return nil, nil
}

func checkExperimenterExists(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if len(obj.Strings("experimenter")) == 0 {
		return found("Experimenter is missing.")
	}
	return nil, nil
}

func checkExperimenterForm(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	var out []message.Message
	for _, experimenter := range obj.Strings("experimenter") {
		if experimenterNamePattern.MatchString(experimenter) {
			continue
		}
		out = append(out, message.New(fmt.Sprintf(
			"The name of experimenter '%s' does not match any of the accepted DANDI forms: 'LastName, Firstname', 'LastName, FirstName MiddleInitial.' or 'LastName, FirstName, MiddleName'.",
			experimenter)))
	}
	return out, nil
}

func checkExperimentDescription(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if value, _ := obj.String("experiment_description"); value == "" {
		return found("Experiment description is missing.")
	}
	return nil, nil
}

func checkInstitution(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if value, _ := obj.String("institution"); value == "" {
		return found("Metadata /general/institution is missing.")
	}
	return nil, nil
}

func checkKeywords(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if len(obj.Strings("keywords")) == 0 {
		return found("Metadata /general/keywords is missing.")
	}
	return nil, nil
}

func checkSubjectExists(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if obj.Ref("subject") == nil {
		return found("Subject is missing.")
	}
	return nil, nil
}

func checkDOIPublications(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	var out []message.Message
	for _, publication := range obj.Strings("related_publications") {
		valid := slices.ContainsFunc(doiPrefixes, func(prefix string) bool {
			return strings.HasPrefix(publication, prefix)
		})
		if valid {
			continue
		}
		out = append(out, message.New(fmt.Sprintf(
			"Metadata /general/related_publications '%s' does not start with 'doi: ###' and is not an external 'doi' link.",
			publication)))
	}
	return out, nil
}

func checkProcessingModuleName(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if slices.Contains(processingModuleNames, obj.Name) {
		return nil, nil
	}
	return found(fmt.Sprintf(
		"Processing module is named %s. It is recommended to use the schema module names: %s",
		obj.Name, strings.Join(processingModuleNames, ", ")))
}
