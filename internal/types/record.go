// Package types provides the content record types shared by the store, the
// query evaluator, the module loaders and the build pipeline. It lives apart
// from those packages to avoid circular imports between them.
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldKind is the declared type of a record field.
type FieldKind string

const (
	FieldText    FieldKind = "text"
	FieldInteger FieldKind = "integer"
	FieldFloat   FieldKind = "float"
	FieldBoolean FieldKind = "boolean"
	FieldList    FieldKind = "list"
)

// FieldValue is a typed field value. Exactly one payload is meaningful,
// selected by Kind.
type FieldValue struct {
	Kind  FieldKind
	Text  string
	Int   int64
	Float float64
	Bool  bool
	List  []string
}

// Text returns a text field.
func Text(s string) FieldValue { return FieldValue{Kind: FieldText, Text: s} }

// Int returns an integer field.
func Int(n int64) FieldValue { return FieldValue{Kind: FieldInteger, Int: n} }

// Float returns a float field.
func Float(f float64) FieldValue { return FieldValue{Kind: FieldFloat, Float: f} }

// Bool returns a boolean field.
func Bool(b bool) FieldValue { return FieldValue{Kind: FieldBoolean, Bool: b} }

// List returns a list field holding a copy of items.
func List(items ...string) FieldValue {
	out := make([]string, len(items))
	copy(out, items)

	return FieldValue{Kind: FieldList, List: out}
}

// String renders the value in its canonical scalar form. Lists are joined
// with ", ".
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldInteger:
		return strconv.FormatInt(v.Int, 10)
	case FieldFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case FieldBoolean:
		return strconv.FormatBool(v.Bool)
	case FieldList:
		return strings.Join(v.List, ", ")
	default:
		return v.Text
	}
}

// Set returns the value as a set of scalar strings: the items of a list, or
// the single canonical form of a scalar.
func (v FieldValue) Set() []string {
	if v.Kind == FieldList {
		out := make([]string, len(v.List))
		copy(out, v.List)

		return out
	}

	return []string{v.String()}
}

// Interface returns the value as a plain Go value for serialization.
func (v FieldValue) Interface() interface{} {
	switch v.Kind {
	case FieldInteger:
		return v.Int
	case FieldFloat:
		return v.Float
	case FieldBoolean:
		return v.Bool
	case FieldList:
		return v.Set()
	default:
		return v.Text
	}
}

// Fields maps field names to typed values.
type Fields map[string]FieldValue

// Get returns a field by name.
func (f Fields) Get(name string) (FieldValue, bool) {
	v, ok := f[name]

	return v, ok
}

// Text returns the canonical string form of a field, or "" when absent.
func (f Fields) Text(name string) string {
	v, ok := f[name]
	if !ok {
		return ""
	}

	return v.String()
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if v.Kind == FieldList {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}

	return out
}

// Schema declares field kinds for the records of one module. Fields with no
// entry fall back to FieldText.
type Schema map[string]FieldKind

// Kind returns the declared kind of a field, defaulting to FieldText.
func (s Schema) Kind(name string) FieldKind {
	if k, ok := s[name]; ok {
		return k
	}

	return FieldText
}

// Coerce converts a raw decoded value (from front matter or a data file)
// into a typed field. Undeclared fields become text, except sequences, which
// stay lists.
func (s Schema) Coerce(name string, raw interface{}) (FieldValue, error) {
	kind, declared := s[name]
	if !declared {
		if items, ok := rawList(raw); ok {
			return List(items...), nil
		}

		return Text(rawString(raw)), nil
	}

	switch kind {
	case FieldList:
		if items, ok := rawList(raw); ok {
			return List(items...), nil
		}
		if raw == nil {
			return List(), nil
		}

		return splitList(rawString(raw)), nil
	case FieldInteger:
		switch n := raw.(type) {
		case int:
			return Int(int64(n)), nil
		case int64:
			return Int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return Int(int64(n)), nil
			}
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err == nil {
				return Int(parsed), nil
			}
		}

		return FieldValue{}, fmt.Errorf("field %q: %v is not an integer", name, raw)
	case FieldFloat:
		switch n := raw.(type) {
		case int:
			return Float(float64(n)), nil
		case int64:
			return Float(float64(n)), nil
		case float64:
			return Float(n), nil
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err == nil {
				return Float(parsed), nil
			}
		}

		return FieldValue{}, fmt.Errorf("field %q: %v is not a number", name, raw)
	case FieldBoolean:
		switch b := raw.(type) {
		case bool:
			return Bool(b), nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err == nil {
				return Bool(parsed), nil
			}
		}

		return FieldValue{}, fmt.Errorf("field %q: %v is not a boolean", name, raw)
	default:
		return Text(rawString(raw)), nil
	}
}

func rawList(raw interface{}) ([]string, bool) {
	switch items := raw.(type) {
	case []string:
		return items, true
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, rawString(item))
		}

		return out, true
	default:
		return nil, false
	}
}

func rawString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func splitList(s string) FieldValue {
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}

	return List(items...)
}

// Record is one addressable unit of site content. Records are built by a
// module during its load and must not be modified once registered.
type Record struct {
	// ID is optional; when set it is unique across the store.
	ID string
	// Path is the source path relative to the site root, optional and unique.
	Path string
	// URL is always present and unique.
	URL string
	// Module names the owning module, which doubles as the record type in
	// queries.
	Module string
	// Dynamic marks records that need further generation at emit time.
	Dynamic bool
	// Fields holds the typed front matter or data values.
	Fields Fields
	// Source is the absolute file the record was read from, if any.
	Source string
	// Hash is the CRC32 checksum of the source, used for change detection.
	Hash string
	// LastMod is the source modification time.
	LastMod time.Time
}

// Field returns a field by name.
func (r *Record) Field(name string) (FieldValue, bool) {
	if r.Fields == nil {
		return FieldValue{}, false
	}

	return r.Fields.Get(name)
}

// Title returns the title field, falling back to the URL.
func (r *Record) Title() string {
	if title := r.Fields.Text("title"); title != "" {
		return title
	}

	return r.URL
}

// String identifies the record in messages.
func (r *Record) String() string {
	if r.Path != "" {
		return fmt.Sprintf("%s:%s", r.Module, r.Path)
	}

	return fmt.Sprintf("%s:%s", r.Module, r.URL)
}
