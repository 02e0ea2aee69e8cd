package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConvertOptionsDefaults(t *testing.T) {
	opts, err := ParseConvertOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, TargetOpenAIStrict, opts.Target)
	assert.Equal(t, ModeStrict, opts.Mode)
	assert.Equal(t, defaultMaxDepth, opts.MaxDepth)
	assert.Equal(t, defaultRecursionLimit, opts.RecursionLimit)
}

func TestParseConvertOptionsKebabCase(t *testing.T) {
	opts, err := ParseConvertOptions([]byte(`{"target":"gemini","max-depth":8,"mode":"lenient"}`))
	require.NoError(t, err)
	assert.Equal(t, TargetGemini, opts.Target)
	assert.Equal(t, 8, opts.MaxDepth)
	assert.Equal(t, ModeLenient, opts.Mode)
}

func TestParseConvertOptionsSnakeCaseFolded(t *testing.T) {
	opts, err := ParseConvertOptions([]byte(`{"max_depth":12,"recursion_limit":5}`))
	require.NoError(t, err)
	assert.Equal(t, 12, opts.MaxDepth)
	assert.Equal(t, 5, opts.RecursionLimit)
}

func TestParseConvertOptionsUnknownKeyRejected(t *testing.T) {
	_, err := ParseConvertOptions([]byte(`{"targett":"gemini"}`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseExtractOptionsDefaults(t *testing.T) {
	opts, err := ParseExtractOptions(nil)
	require.NoError(t, err)
	assert.True(t, opts.IncludeDependencies)
	assert.Equal(t, OnMissingRefIgnore, opts.OnMissingRef)
}

func TestParseExtractOptionsOverrides(t *testing.T) {
	opts, err := ParseExtractOptions([]byte(`{"include-dependencies":false,"on-missing-ref":"error"}`))
	require.NoError(t, err)
	assert.False(t, opts.IncludeDependencies)
	assert.Equal(t, OnMissingRefError, opts.OnMissingRef)
}

func TestParseExtractOptionsRejectsConvertKeys(t *testing.T) {
	_, err := ParseExtractOptions([]byte(`{"target":"claude"}`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
