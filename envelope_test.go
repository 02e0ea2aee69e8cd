package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineErrorMessage(t *testing.T) {
	e := newEngineError("invalid_pointer", "no schema at pointer", "#/$defs/Foo")
	assert.Equal(t, "invalid_pointer: no schema at pointer at #/$defs/Foo", e.Error())
}

func TestEngineErrorMessageWithoutPath(t *testing.T) {
	e := newEngineError("invalid_utf8", "invalid UTF-8 at byte offset 3", "")
	assert.Equal(t, "invalid_utf8: invalid UTF-8 at byte offset 3", e.Error())
}
