package checks

import (
	"fmt"
	"strings"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

var descriptionPlaceholders = map[string]bool{
	"no description": true,
	"no desc":        true,
	"none":           true,
	"placeholder":    true,
}

func registerGeneral(reg *registry.Registry) {
	reg.MustRegister(message.Critical, registry.AnyType, "check_name_slashes", checkNameSlashes,
		registry.WithDescription("Object names must not contain slashes."))
	reg.MustRegister(message.BestPracticeSuggestion, registry.AnyType, "check_description", checkDescription,
		registry.WithDescription("Descriptions should be present and not a placeholder."))
}

func checkNameSlashes(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if strings.ContainsAny(obj.Name, `/\`) {
		return found("Object name contains slashes.")
	}
	return nil, nil
}

func checkDescription(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	raw, present := obj.Field("description")
	if !present {
		return nil, nil
	}
	description, _ := raw.(string)
	if strings.Trim(description, " ") == "" {
		return found("Description is missing.")
	}
	if descriptionPlaceholders[strings.ToLower(strings.Trim(description, "."))] {
		return found(fmt.Sprintf("Description ('%s') is a placeholder.", description))
	}
	return nil, nil
}
