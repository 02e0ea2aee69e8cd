package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaWriteReadRoundTrip(t *testing.T) {
	a := NewArena()
	offset := a.putBytes([]byte("hello"))
	assert.Equal(t, []byte("hello"), a.Read(offset, 5))
}

func TestArenaReadOutOfRange(t *testing.T) {
	a := NewArena()
	offset := a.putBytes([]byte("hi"))
	assert.Nil(t, a.Read(offset, 100))
}

func TestArenaFreeIsANoOpForZeroZero(t *testing.T) {
	a := NewArena()
	a.Free(0, 0) // must not panic
}

func TestAbiVersionExport(t *testing.T) {
	assert.Equal(t, AbiVersion, AbiVersionExport())
}

func TestConvertExportRoundTrip(t *testing.T) {
	a := NewArena()
	schema := []byte(`{"type":"string"}`)
	schemaPtr := a.putBytes(schema)

	resultPtr := ConvertExport(a, schemaPtr, uint32(len(schema)), 0, 0)
	payload, ok := a.ReadResult(resultPtr)
	require.True(t, ok)
	assert.Contains(t, string(payload), `"apiVersion"`)
}

// A null pointer paired with a non-zero length can never name a valid
// buffer; the ABI wrapper must reject it rather than read past the arena.
func TestConvertExportRejectsMismatchedNullPointer(t *testing.T) {
	a := NewArena()

	resultPtr := ConvertExport(a, 0, 10, 0, 0)
	payload, ok := a.ReadResult(resultPtr)
	assert.False(t, ok)
	assert.Contains(t, string(payload), "invalid_pointer")
}

func TestListComponentsExport(t *testing.T) {
	a := NewArena()
	schemaPtr := a.putBytes([]byte(componentSchema))

	resultPtr := ListComponentsExport(a, schemaPtr, uint32(len(componentSchema)))
	payload, ok := a.ReadResult(resultPtr)
	require.True(t, ok)
	assert.Contains(t, string(payload), "components")
}
