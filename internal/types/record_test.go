package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValueSet(t *testing.T) {
	tests := []struct {
		name  string
		value FieldValue
		want  []string
	}{
		{"text", Text("hello"), []string{"hello"}},
		{"integer", Int(42), []string{"42"}},
		{"float", Float(1.5), []string{"1.5"}},
		{"boolean", Bool(true), []string{"true"}},
		{"list", List("x", "y"), []string{"x", "y"}},
		{"empty list", List(), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Set())
		})
	}
}

func TestListIsCopied(t *testing.T) {
	items := []string{"a", "b"}
	v := List(items...)
	items[0] = "z"

	assert.Equal(t, []string{"a", "b"}, v.List)

	set := v.Set()
	set[0] = "q"
	assert.Equal(t, []string{"a", "b"}, v.List)
}

func TestSchemaCoerce(t *testing.T) {
	schema := Schema{
		"tags":   FieldList,
		"weight": FieldInteger,
		"draft":  FieldBoolean,
		"score":  FieldFloat,
	}

	tests := []struct {
		name    string
		field   string
		raw     interface{}
		want    FieldValue
		wantErr bool
	}{
		{"list from sequence", "tags", []interface{}{"go", 3}, List("go", "3"), false},
		{"list from comma text", "tags", "a, b,", List("a", "b"), false},
		{"list from nil", "tags", nil, List(), false},
		{"integer", "weight", 3, Int(3), false},
		{"integer from whole float", "weight", float64(7), Int(7), false},
		{"integer from text", "weight", " 12 ", Int(12), false},
		{"integer rejects fraction", "weight", 1.5, FieldValue{}, true},
		{"boolean", "draft", true, Bool(true), false},
		{"boolean from text", "draft", "false", Bool(false), false},
		{"boolean rejects junk", "draft", "maybe", FieldValue{}, true},
		{"float", "score", 2, Float(2), false},
		{"undeclared falls back to text", "author", 12, Text("12"), false},
		{"undeclared sequence stays list", "aliases", []interface{}{"/old/"}, List("/old/"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schema.Coerce(tt.field, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaKindFallback(t *testing.T) {
	var schema Schema
	assert.Equal(t, FieldText, schema.Kind("anything"))
	assert.Equal(t, FieldList, Schema{"tags": FieldList}.Kind("tags"))
}

func TestRecordHelpers(t *testing.T) {
	rec := &Record{Module: "pages", URL: "/a/", Path: "content/a.md"}
	assert.Equal(t, "/a/", rec.Title())
	assert.Equal(t, "pages:content/a.md", rec.String())

	_, ok := rec.Field("title")
	assert.False(t, ok)

	rec.Fields = Fields{"title": Text("A")}
	assert.Equal(t, "A", rec.Title())

	orig := Fields{"tags": List("x")}
	clone := orig.Clone()
	clone["tags"].List[0] = "changed"
	assert.Equal(t, "x", orig["tags"].List[0])
}
