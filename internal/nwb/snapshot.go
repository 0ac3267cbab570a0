package nwb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is the encoding of a snapshot file.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Tagged field forms.
const (
	refKey     = "$ref"
	refsKey    = "$refs"
	datasetKey = "$dataset"
)

// ErrMalformedSnapshot is returned for documents that cannot form an object graph.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the decoded, unresolved content of an NWB file export.
type Snapshot struct {
	Identifier string            `json:"identifier,omitempty" msgpack:"identifier,omitempty"`
	Types      map[string]string `json:"types,omitempty" msgpack:"types,omitempty"`
	Objects    []RawObject       `json:"objects" msgpack:"objects"`
}

// RawObject is one object before reference resolution.
type RawObject struct {
	ID     string         `json:"id" msgpack:"id"`
	Type   string         `json:"type" msgpack:"type"`
	Name   string         `json:"name" msgpack:"name"`
	Parent string         `json:"parent,omitempty" msgpack:"parent,omitempty"`
	Fields map[string]any `json:"fields,omitempty" msgpack:"fields,omitempty"`
}

// DetectFormat picks the decoder from the extension, sniffing plain .nwb content.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".msgpack", ".mpk":
		return FormatMsgpack
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatMsgpack
}

// Decode parses snapshot bytes.
func Decode(data []byte, format Format) (*Snapshot, error) {
	var snap Snapshot
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode msgpack snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}

	if len(snap.Objects) == 0 {
		return nil, fmt.Errorf("%w: no objects", ErrMalformedSnapshot)
	}
	if snap.Identifier == "" {
		for _, obj := range snap.Objects {
			if obj.Parent != "" {
				continue
			}
			if id, ok := obj.Fields["identifier"].(string); ok {
				snap.Identifier = id
			}
			break
		}
	}

	return &snap, nil
}

// EncodeMsgpack serializes a snapshot; exporters and tests use it.
func EncodeMsgpack(snap *Snapshot) ([]byte, error) {
	return msgpack.Marshal(snap)
}

// PathOf builds a name path for an unresolved object, used before materialization.
func (s *Snapshot) PathOf(id string) string {
	byID := make(map[string]*RawObject, len(s.Objects))
	for i := range s.Objects {
		byID[s.Objects[i].ID] = &s.Objects[i]
	}

	var segments []string
	cur, ok := byID[id]
	for steps := 0; ok && cur.Parent != ""; steps++ {
		if steps > len(s.Objects) {
			return ""
		}
		segments = append(segments, cur.Name)
		cur, ok = byID[cur.Parent]
	}
	if !ok {
		return ""
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return "/" + strings.Join(segments, "/")
}

// Materialize resolves types, parents and references into a File.
func Materialize(path string, snap *Snapshot, base *TypeRegistry) (*File, error) {
	if base == nil {
		base = NewTypeRegistry()
	}
	types := base.Clone()
	if err := types.DefineAll(snap.Types); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	objects := make([]*Object, 0, len(snap.Objects))
	byID := make(map[string]*Object, len(snap.Objects))
	for _, raw := range snap.Objects {
		if raw.ID == "" {
			return nil, fmt.Errorf("%w: object %q has no id", ErrMalformedSnapshot, raw.Name)
		}
		if _, dup := byID[raw.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate object id %q", ErrMalformedSnapshot, raw.ID)
		}

		typ, ok := types.Lookup(raw.Type)
		if !ok {
			slog.Debug("undeclared neurodata type", "type", raw.Type, "parent", FallbackParent)
			var err error
			typ, err = types.Define(raw.Type, FallbackParent)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
			}
		}

		obj := NewObject(raw.ID, raw.Name, typ, nil)
		objects = append(objects, obj)
		byID[raw.ID] = obj
	}

	for i, raw := range snap.Objects {
		if raw.Parent == "" {
			continue
		}
		parent, ok := byID[raw.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: object %q references unknown parent %q", ErrMalformedSnapshot, raw.ID, raw.Parent)
		}
		parent.Adopt(objects[i])
	}

	for _, obj := range objects {
		seen := 0
		for cur := obj; cur.Parent != nil; cur = cur.Parent {
			seen++
			if seen > len(objects) {
				return nil, fmt.Errorf("%w: parent cycle at object %q", ErrMalformedSnapshot, obj.ID)
			}
		}
	}

	for i, raw := range snap.Objects {
		names := make([]string, 0, len(raw.Fields))
		for name := range raw.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			value, err := resolveValue(raw.Fields[name], byID)
			if err != nil {
				return nil, fmt.Errorf("%w: object %q field %q: %v", ErrMalformedSnapshot, raw.ID, name, err)
			}
			objects[i].fields[name] = value
		}
	}

	return NewFile(path, snap.Identifier, objects), nil
}

func resolveValue(v any, byID map[string]*Object) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string, bool:
		return val, nil
	case map[string]any:
		return resolveTagged(val, byID)
	case []any:
		return resolveList(val)
	case []string:
		return val, nil
	default:
		if f, ok := toFloat(val); ok {
			return f, nil
		}
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

func resolveTagged(m map[string]any, byID map[string]*Object) (any, error) {
	if raw, ok := m[refKey]; ok {
		id := fmt.Sprint(raw)
		obj, found := byID[id]
		if !found {
			return nil, fmt.Errorf("dangling reference %q", id)
		}
		return obj, nil
	}

	if raw, ok := m[refsKey]; ok {
		list, isList := raw.([]any)
		if !isList {
			return nil, fmt.Errorf("%s must be a list", refsKey)
		}
		out := make([]*Object, 0, len(list))
		for _, item := range list {
			id := fmt.Sprint(item)
			obj, found := byID[id]
			if !found {
				return nil, fmt.Errorf("dangling reference %q", id)
			}
			out = append(out, obj)
		}
		return out, nil
	}

	if raw, ok := m[datasetKey]; ok {
		spec, isMap := raw.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("%s must be a mapping", datasetKey)
		}
		return decodeDataset(spec)
	}

	return nil, fmt.Errorf("untagged mapping value")
}

func resolveList(list []any) (any, error) {
	if len(list) == 0 {
		return []string{}, nil
	}

	if _, isString := list[0].(string); isString {
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("mixed list element %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}

	out := make([]float64, 0, len(list))
	for _, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("unsupported list element %T", item)
		}
		out = append(out, f)
	}
	return out, nil
}

func decodeDataset(spec map[string]any) (*Dataset, error) {
	ds := &Dataset{}
	var err error

	if v, ok := spec["path"].(string); ok {
		ds.Path = v
	}
	if v, ok := spec["dtype"].(string); ok {
		ds.DType = v
	}
	if v, ok := spec["compression"].(string); ok {
		ds.Compression = v
	}
	if v, ok := spec["itemsize"]; ok {
		f, isNum := toFloat(v)
		if !isNum {
			return nil, fmt.Errorf("itemsize must be numeric")
		}
		ds.ItemSize = int(f)
	}
	if ds.Shape, err = intList(spec["shape"]); err != nil {
		return nil, fmt.Errorf("shape: %w", err)
	}
	if ds.Chunks, err = intList(spec["chunks"]); err != nil {
		return nil, fmt.Errorf("chunks: %w", err)
	}

	if raw, ok := spec["values"].([]any); ok {
		ds.Values = make([]float64, 0, len(raw))
		for _, item := range raw {
			if item == nil {
				ds.Values = append(ds.Values, math.NaN())
				continue
			}
			f, isNum := toFloat(item)
			if !isNum {
				return nil, fmt.Errorf("values: unsupported element %T", item)
			}
			ds.Values = append(ds.Values, f)
		}
	}
	if raw, ok := spec["strings"].([]any); ok {
		ds.Strings = make([]string, 0, len(raw))
		for _, item := range raw {
			ds.Strings = append(ds.Strings, fmt.Sprint(item))
		}
	}

	if ds.ItemSize == 0 {
		ds.ItemSize = itemSizeOf(ds.DType)
	}
	return ds, nil
}

func intList(v any) ([]int, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		f, isNum := toFloat(item)
		if !isNum {
			return nil, fmt.Errorf("unsupported element %T", item)
		}
		out = append(out, int(f))
	}
	return out, nil
}

func itemSizeOf(dtype string) int {
	switch strings.ToLower(dtype) {
	case "bool", "int8", "uint8":
		return 1
	case "int16", "uint16", "float16":
		return 2
	case "int32", "uint32", "float32":
		return 4
	case "int64", "uint64", "float64":
		return 8
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
