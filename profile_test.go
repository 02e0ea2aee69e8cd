package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupTarget(t *testing.T) {
	for _, name := range []string{TargetOpenAIStrict, TargetGemini, TargetClaude} {
		profile, err := LookupTarget(name)
		require.NoError(t, err)
		assert.Equal(t, name, profile.Name)
	}
}

func TestLookupTargetUnknown(t *testing.T) {
	_, err := LookupTarget("not-a-target")
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestTargetProfileSupports(t *testing.T) {
	profile, err := LookupTarget(TargetGemini)
	require.NoError(t, err)
	assert.True(t, profile.Supports("format"))
	assert.False(t, profile.Supports("multipleOf"))
}

func TestTargetProfileKeepsFormat(t *testing.T) {
	openAI, err := LookupTarget(TargetOpenAIStrict)
	require.NoError(t, err)
	assert.True(t, openAI.KeepsFormat("email"))
	assert.False(t, openAI.KeepsFormat("ipv4"))

	claude, err := LookupTarget(TargetClaude)
	require.NoError(t, err)
	assert.True(t, claude.KeepsFormat("anything-at-all"), "nil StringFormatPolicy means every format survives")
}
