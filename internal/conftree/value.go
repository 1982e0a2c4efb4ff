package conftree

import (
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable config value: a scalar, a list of values or an
// ordered map. The zero Value is the empty string.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	list []Value
	m    *Map
	raw  string
}

// StringValue returns a string scalar.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue returns an integer scalar.
func IntValue(n int64) Value { return Value{kind: KindInt, i: n} }

// FloatValue returns a float scalar.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue returns a boolean scalar.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ListValue returns a list holding a copy of items.
func ListValue(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)

	return Value{kind: KindList, list: list}
}

func mapValue(m *Map) Value { return Value{kind: KindMap, m: m} }

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v is a string, number or boolean.
func (v Value) IsScalar() bool { return v.kind != KindList && v.kind != KindMap }

// AsString returns the string payload of a string scalar.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsInt returns the payload of an integer scalar.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat returns the payload of a float or integer scalar.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsBool returns the payload of a boolean scalar.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsList returns a copy of the items of a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}

	out := make([]Value, len(v.list))
	copy(out, v.list)

	return out, true
}

// AsMap returns the map of a map value.
func (v Value) AsMap() (*Map, bool) {
	return v.m, v.kind == KindMap && v.m != nil
}

// Len returns the number of items of a list or entries of a map, else 0.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return v.m.Len()
	default:
		return 0
	}
}

// String renders scalars in canonical form; lists are joined with ", ".
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}

		return strings.Join(parts, ", ")
	case KindMap:
		return "{" + strings.Join(v.m.Keys(), ", ") + "}"
	default:
		return v.str
	}
}

// Text returns the unquoted source text v was parsed from, so "007, 1.50"
// reads back as written. Values not parsed from bare text render as String.
func (v Value) Text() string {
	if v.raw != "" {
		return v.raw
	}

	return v.String()
}

// Strings returns list items (or a lone scalar) in canonical form.
func (v Value) Strings() []string {
	switch v.kind {
	case KindList:
		out := make([]string, len(v.list))
		for i, item := range v.list {
			out[i] = item.String()
		}

		return out
	case KindMap:
		return nil
	default:
		return []string{v.String()}
	}
}

// Interface converts v into plain Go values: string, int64, float64, bool,
// []interface{} or map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}

		return out
	case KindMap:
		return v.m.Interface()
	default:
		return v.str
	}
}

// Equal reports deep equality, including map key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}

		return true
	case KindMap:
		return v.m.Equal(o.m)
	default:
		return false
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

// Map is an ordered mapping from lower-cased keys to values. Maps reachable
// from a finalized Tree are never modified.
type Map struct {
	keys   []string
	values map[string]Value
}

func newMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// set inserts or overwrites key. An overwrite keeps the first position.
func (m *Map) set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}

	out := make([]string, len(m.keys))
	copy(out, m.keys)

	return out
}

// Get returns the value stored under key. Keys are matched
// case-insensitively.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}

	v, ok := m.values[strings.ToLower(key)]

	return v, ok
}

// Lookup walks a dotted path such as "modules.pages.drafts".
func (m *Map) Lookup(path string) (Value, bool) {
	return m.Path(strings.Split(path, ".")...)
}

// Path walks explicit path segments, for keys that contain dots.
func (m *Map) Path(segments ...string) (Value, bool) {
	if len(segments) == 0 {
		return mapValue(m), m != nil
	}

	cur := m
	for i, seg := range segments {
		v, ok := cur.Get(seg)
		if !ok {
			return Value{}, false
		}

		if i == len(segments)-1 {
			return v, true
		}

		next, ok := v.AsMap()
		if !ok {
			return Value{}, false
		}
		cur = next
	}

	return Value{}, false
}

// String returns the canonical form of the scalar at path, or "".
func (m *Map) String(path string) string {
	v, ok := m.Lookup(path)
	if !ok || !v.IsScalar() {
		return ""
	}

	return v.String()
}

// Int returns the integer at path.
func (m *Map) Int(path string) (int64, bool) {
	v, ok := m.Lookup(path)
	if !ok {
		return 0, false
	}

	return v.AsInt()
}

// Float returns the number at path; integers are widened.
func (m *Map) Float(path string) (float64, bool) {
	v, ok := m.Lookup(path)
	if !ok {
		return 0, false
	}

	return v.AsFloat()
}

// List returns the items of the list at path.
func (m *Map) List(path string) ([]Value, bool) {
	v, ok := m.Lookup(path)
	if !ok {
		return nil, false
	}

	return v.AsList()
}

// Bool returns the boolean at path.
func (m *Map) Bool(path string) (bool, bool) {
	v, ok := m.Lookup(path)
	if !ok {
		return false, false
	}

	return v.AsBool()
}

// Strings returns the items of the list at path; a scalar yields a single
// item.
func (m *Map) Strings(path string) []string {
	v, ok := m.Lookup(path)
	if !ok {
		return nil
	}

	return v.Strings()
}

// Sub returns the nested map at path.
func (m *Map) Sub(path string) (*Map, bool) {
	v, ok := m.Lookup(path)
	if !ok {
		return nil, false
	}

	return v.AsMap()
}

// Interface converts the map into map[string]interface{}.
func (m *Map) Interface() map[string]interface{} {
	out := make(map[string]interface{}, m.Len())
	if m == nil {
		return out
	}

	for _, k := range m.keys {
		out[k] = m.values[k].Interface()
	}

	return out
}

// Equal reports deep equality including key order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}

	for i, k := range m.Keys() {
		if o.keys[i] != k {
			return false
		}
		if !m.values[k].Equal(o.values[k]) {
			return false
		}
	}

	return true
}
