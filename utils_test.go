package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUTF8(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"empty", []byte{}, -1},
		{"ascii", []byte(`{"type":"string"}`), -1},
		{"valid multibyte", []byte(`{"title":"café"}`), -1},
		{"invalid continuation byte", []byte{'{', 0xff, '}'}, 1},
		{"truncated multibyte sequence", []byte{0xe2, 0x82}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validateUTF8(tt.data))
		})
	}
}

func TestGetDataType(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		want string
	}{
		{"nil", nil, "null"},
		{"bool", true, "boolean"},
		{"int", 3, "integer"},
		{"float integer-valued", 4.0, "integer"},
		{"float fractional", 4.5, "number"},
		{"string", "hi", "string"},
		{"array", []interface{}{1, 2}, "array"},
		{"object", map[string]interface{}{"a": 1}, "object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getDataType(tt.v))
		})
	}
}

func TestIsAbsoluteURI(t *testing.T) {
	assert.True(t, isAbsoluteURI("https://example.com/schema.json"))
	assert.False(t, isAbsoluteURI("/relative/path"))
	assert.False(t, isAbsoluteURI("schema.json"))
}

func TestSplitRef(t *testing.T) {
	base, anchor := splitRef("https://example.com/schema.json#/$defs/Foo")
	assert.Equal(t, "https://example.com/schema.json", base)
	assert.Equal(t, "/$defs/Foo", anchor)

	base, anchor = splitRef("#/$defs/Foo")
	assert.Equal(t, "", base)
	assert.Equal(t, "/$defs/Foo", anchor)
}

func TestIsJSONPointer(t *testing.T) {
	assert.True(t, isJSONPointer("/$defs/Foo"))
	assert.False(t, isJSONPointer("Foo"))
}
