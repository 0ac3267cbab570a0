package nwb

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Object is one node of a materialized NWB object graph.
type Object struct {
	ID     string
	Name   string
	Type   *Type
	Parent *Object

	fields   map[string]any
	children []*Object
}

// NewObject builds a detached object. Fields must already be resolved values:
// string, float64, bool, []string, []float64, *Dataset, *Object, []*Object or nil.
func NewObject(id, name string, typ *Type, fields map[string]any) *Object {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Object{ID: id, Name: name, Type: typ, fields: fields}
}

// Adopt sets o as the parent of child.
func (o *Object) Adopt(child *Object) {
	child.Parent = o
	o.children = append(o.children, child)
}

// TypeName is the runtime neurodata type name.
func (o *Object) TypeName() string {
	if o.Type == nil {
		return ""
	}
	return o.Type.Name
}

// Is reports whether the object's type is name or extends it.
func (o *Object) Is(name string) bool {
	return o.Type != nil && o.Type.Is(name)
}

// Children returns the objects directly owned by o, in document order.
func (o *Object) Children() []*Object {
	out := make([]*Object, len(o.children))
	copy(out, o.children)
	return out
}

// Has reports whether the field is present and not null.
func (o *Object) Has(name string) bool {
	v, ok := o.fields[name]
	return ok && v != nil
}

// Field returns the raw resolved field value.
func (o *Object) Field(name string) (any, bool) {
	v, ok := o.fields[name]
	return v, ok
}

// FieldNames returns the field names in sorted order.
func (o *Object) FieldNames() []string {
	names := make([]string, 0, len(o.fields))
	for name := range o.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns a string field.
func (o *Object) String(name string) (string, bool) {
	s, ok := o.fields[name].(string)
	return s, ok
}

// Strings returns a string-list field. A single string is returned as a one-element list.
func (o *Object) Strings(name string) []string {
	switch v := o.fields[name].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	case *Dataset:
		return v.Strings
	default:
		return nil
	}
}

// Float returns a numeric field.
func (o *Object) Float(name string) (float64, bool) {
	f, ok := o.fields[name].(float64)
	return f, ok
}

// Floats returns a numeric-list field, or the values of a dataset field.
func (o *Object) Floats(name string) []float64 {
	switch v := o.fields[name].(type) {
	case []float64:
		return v
	case *Dataset:
		return v.Values
	case float64:
		return []float64{v}
	default:
		return nil
	}
}

// Time parses an ISO 8601 timestamp field. ok is false when the field is absent.
func (o *Object) Time(name string) (t time.Time, ok bool, err error) {
	raw, present := o.fields[name].(string)
	if !present {
		return time.Time{}, false, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		parsed, parseErr := time.Parse(layout, raw)
		if parseErr == nil {
			return parsed, true, nil
		}
	}
	return time.Time{}, true, fmt.Errorf("field %q: unparsable time %q", name, raw)
}

// Dataset returns a dataset field.
func (o *Object) Dataset(name string) *Dataset {
	d, _ := o.fields[name].(*Dataset)
	return d
}

// DatasetFields returns the names of dataset-valued fields in sorted order.
func (o *Object) DatasetFields() []string {
	var names []string
	for _, name := range o.FieldNames() {
		if _, ok := o.fields[name].(*Dataset); ok {
			names = append(names, name)
		}
	}
	return names
}

// Ref returns a single-object reference field.
func (o *Object) Ref(name string) *Object {
	ref, _ := o.fields[name].(*Object)
	return ref
}

// Refs returns a collection reference field.
func (o *Object) Refs(name string) []*Object {
	switch v := o.fields[name].(type) {
	case []*Object:
		return v
	case *Object:
		return []*Object{v}
	default:
		return nil
	}
}

// Dataset describes a raw array stored in the file.
type Dataset struct {
	Path        string    `json:"path,omitempty" msgpack:"path,omitempty"`
	Shape       []int     `json:"shape,omitempty" msgpack:"shape,omitempty"`
	DType       string    `json:"dtype,omitempty" msgpack:"dtype,omitempty"`
	ItemSize    int       `json:"itemsize,omitempty" msgpack:"itemsize,omitempty"`
	Compression string    `json:"compression,omitempty" msgpack:"compression,omitempty"`
	Chunks      []int     `json:"chunks,omitempty" msgpack:"chunks,omitempty"`
	Values      []float64 `json:"values,omitempty" msgpack:"values,omitempty"`
	Strings     []string  `json:"strings,omitempty" msgpack:"strings,omitempty"`
}

// Size is the element count.
func (d *Dataset) Size() int64 {
	if d == nil {
		return 0
	}
	if len(d.Shape) == 0 {
		return int64(max(len(d.Values), len(d.Strings)))
	}
	size := int64(1)
	for _, dim := range d.Shape {
		size *= int64(dim)
	}
	return size
}

// NBytes is the uncompressed storage size.
func (d *Dataset) NBytes() int64 {
	if d == nil {
		return 0
	}
	return d.Size() * int64(d.ItemSize)
}

// Compressed reports whether a compression filter is set.
func (d *Dataset) Compressed() bool {
	return d != nil && d.Compression != ""
}

// Len is the length of the first axis.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	if len(d.Shape) > 0 {
		return d.Shape[0]
	}
	return max(len(d.Values), len(d.Strings))
}

// Head returns at most n materialized values; n <= 0 returns all of them.
func (d *Dataset) Head(n int) []float64 {
	if d == nil {
		return nil
	}
	if n <= 0 || n >= len(d.Values) {
		return d.Values
	}
	return d.Values[:n]
}

// File is a materialized NWB file.
type File struct {
	Path       string
	Identifier string
	Root       *Object

	objects []*Object
}

// NewFile wraps objects in document order; the first parentless object is the root.
func NewFile(path, identifier string, objects []*Object) *File {
	f := &File{Path: path, Identifier: identifier, objects: objects}
	for _, obj := range objects {
		if f.Root == nil && obj.Parent == nil {
			f.Root = obj
		}
	}
	return f
}

// Objects is the flat view of every object in document order.
func (f *File) Objects() []*Object {
	out := make([]*Object, len(f.objects))
	copy(out, f.objects)
	return out
}

// finite drops NaN values.
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// IsAscending reports whether the first nelems non-NaN values never decrease.
func IsAscending(values []float64, nelems int) bool {
	if nelems > 0 && nelems < len(values) {
		values = values[:nelems]
	}
	valid := finite(values)
	for i := 1; i < len(valid); i++ {
		if valid[i] < valid[i-1] {
			return false
		}
	}
	return true
}

// IsRegular reports whether consecutive differences are equal when rounded to decimals.
func IsRegular(values []float64, decimals int) bool {
	if len(values) < 2 {
		return false
	}
	scale := math.Pow(10, float64(decimals))
	first := math.Round((values[1]-values[0])*scale) / scale
	for i := 2; i < len(values); i++ {
		diff := math.Round((values[i]-values[i-1])*scale) / scale
		if diff != first {
			return false
		}
	}
	return true
}
