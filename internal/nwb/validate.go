package nwb

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ValidationError is one structural violation found by a Validator.
type ValidationError struct {
	Name     string
	Reason   string
	DataType string
	Location string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.DataType, e.Location, e.Reason)
}

// Validator checks a decoded snapshot against the format's schema.
type Validator interface {
	Validate(ctx context.Context, snap *Snapshot) ([]ValidationError, error)
}

// SchemaValidator validates each object's fields against per-type JSON Schemas,
// applying every schema found along the object's type lineage.
type SchemaValidator struct {
	types   *TypeRegistry
	schemas map[string]*jsonschema.Schema
}

// NewSchemaValidator compiles the embedded schemas.
func NewSchemaValidator(types *TypeRegistry) (*SchemaValidator, error) {
	if types == nil {
		types = NewTypeRegistry()
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		data, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, fmt.Errorf("read schema %q: %w", name, err)
		}
		if err := compiler.AddResource(schemaURL(name), strings.NewReader(string(data))); err != nil {
			return nil, fmt.Errorf("add schema %q: %w", name, err)
		}
		names = append(names, name)
	}

	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		compiled, err := compiler.Compile(schemaURL(name))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
		schemas[strings.TrimSuffix(name, ".json")] = compiled
	}

	return &SchemaValidator{types: types, schemas: schemas}, nil
}

// Validate returns violations in object order; the error is reserved for
// failures of the validator itself.
func (v *SchemaValidator) Validate(ctx context.Context, snap *Snapshot) ([]ValidationError, error) {
	types := v.types.Clone()
	if err := types.DefineAll(snap.Types); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	var out []ValidationError
	for _, raw := range snap.Objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lineage := []string{raw.Type}
		if typ, ok := types.Lookup(raw.Type); ok {
			lineage = typ.Lineage()
		}

		instance := normalizeForSchema(raw.Fields)
		if instance == nil {
			instance = map[string]any{}
		}

		location := snap.PathOf(raw.ID)
		for i := len(lineage) - 1; i >= 0; i-- {
			schema, ok := v.schemas[lineage[i]]
			if !ok {
				continue
			}

			err := schema.Validate(instance)
			if err == nil {
				continue
			}

			var verr *jsonschema.ValidationError
			if !errors.As(err, &verr) {
				return nil, fmt.Errorf("validate object %q: %w", raw.ID, err)
			}
			for _, leaf := range leafCauses(verr) {
				out = append(out, ValidationError{
					Name:     errorName(leaf.KeywordLocation),
					Reason:   reasonText(leaf),
					DataType: raw.Type,
					Location: location,
				})
			}
		}
	}

	return out, nil
}

func schemaURL(name string) string {
	return "mem://nwb/schemas/" + name
}

func leafCauses(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		leaves = append(leaves, leafCauses(cause)...)
	}
	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].InstanceLocation < leaves[j].InstanceLocation
	})
	return leaves
}

func errorName(keywordLocation string) string {
	keyword := keywordLocation
	if idx := strings.LastIndex(keywordLocation, "/"); idx >= 0 {
		keyword = keywordLocation[idx+1:]
	}

	switch keyword {
	case "required":
		return "MissingRequiredField"
	case "type":
		return "DtypeError"
	case "format":
		return "FormatError"
	case "minLength", "exclusiveMinimum", "minimum", "enum":
		return "IncorrectValue"
	case "not":
		return "ConflictingFields"
	default:
		return "SchemaViolation"
	}
}

func reasonText(err *jsonschema.ValidationError) string {
	if err.InstanceLocation == "" {
		return err.Message
	}
	return fmt.Sprintf("%s: %s", strings.TrimPrefix(err.InstanceLocation, "/"), err.Message)
}

// normalizeForSchema converts decoded values into the JSON data model,
// summarizing datasets without their values.
func normalizeForSchema(v any) any {
	switch val := v.(type) {
	case nil, string, bool:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			if key == datasetKey {
				if spec, ok := item.(map[string]any); ok {
					out[key] = map[string]any{
						"path":  normalizeForSchema(spec["path"]),
						"shape": normalizeForSchema(spec["shape"]),
						"dtype": normalizeForSchema(spec["dtype"]),
					}
					continue
				}
			}
			out[key] = normalizeForSchema(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, normalizeForSchema(item))
		}
		return out
	case []string:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, item)
		}
		return out
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	default:
		f, ok := toFloat(val)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
}
