package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAllOfPairIntersectsTypes(t *testing.T) {
	a := &Schema{Type: SchemaType{"string", "number"}}
	b := &Schema{Type: SchemaType{"number", "boolean"}}
	merged := mergeAllOfPair("#", a, b, NewCodec())
	assert.Equal(t, SchemaType{"number"}, merged.Type)
}

func TestMergeAllOfPairTightensBounds(t *testing.T) {
	a := &Schema{Minimum: NewRat(5), Maximum: NewRat(20)}
	b := &Schema{Minimum: NewRat(1), Maximum: NewRat(10)}
	merged := mergeAllOfPair("#", a, b, NewCodec())

	require.NotNil(t, merged.Minimum)
	require.NotNil(t, merged.Maximum)
	assert.Equal(t, 0, merged.Minimum.Rat.Cmp(NewRat(5).Rat))
	assert.Equal(t, 0, merged.Maximum.Rat.Cmp(NewRat(10).Rat))
}

func TestMergeAllOfPairConflictingPatternDropsLoser(t *testing.T) {
	first := "^[a-z]+$"
	second := "^[0-9]+$"
	a := &Schema{Pattern: &first}
	b := &Schema{Pattern: &second}
	codec := NewCodec()
	merged := mergeAllOfPair("#", a, b, codec)

	require.NotNil(t, merged.Pattern)
	assert.Equal(t, first, *merged.Pattern)
	require.Len(t, codec.DroppedConstraints, 1)
	assert.Equal(t, "pattern", codec.DroppedConstraints[0].Keyword)
}

func TestMergeAllOfPairUnionsRequired(t *testing.T) {
	a := &Schema{Required: []string{"name"}}
	b := &Schema{Required: []string{"age", "name"}}
	merged := mergeAllOfPair("#", a, b, NewCodec())
	assert.ElementsMatch(t, []string{"name", "age"}, merged.Required)
}

func TestMergeAllOfPairFalseBranchWins(t *testing.T) {
	falseVal := false
	a := &Schema{Boolean: &falseVal}
	b := &Schema{Type: SchemaType{"string"}}
	merged := mergeAllOfPair("#", a, b, NewCodec())
	require.NotNil(t, merged.Boolean)
	assert.False(t, *merged.Boolean)
}

func TestMergeAllOfBranchesEmptyYieldsEmptySchema(t *testing.T) {
	merged := mergeAllOfBranches("#", nil, NewCodec())
	assert.Nil(t, merged.Type)
	assert.Nil(t, merged.Boolean)
}

func TestIntersectEnums(t *testing.T) {
	out := intersectEnums([]any{"a", "b", "c"}, []any{"b", "c", "d"})
	assert.ElementsMatch(t, []any{"b", "c"}, out)
}
