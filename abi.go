package jsonschema

import (
	"encoding/binary"
	"sync"

	"github.com/go-json-experiment/json"
)

// AbiVersion is the handshake constant a host checks before calling any
// other exported entry point. Bumped only on a breaking change to the
// result-envelope or argument shape.
const AbiVersion uint32 = 1

const resultEnvelopeSize = 12

const (
	statusOK    uint32 = 0
	statusError uint32 = 1
)

// Arena is a bump allocator over a single growable byte slice, standing
// in for the linear memory a WASM host would own. Every exported entry
// point below takes/returns offsets into this arena rather than native
// Go pointers, so the same call shape holds whether the engine is linked
// in-process or compiled to a WASM module that exports these functions
// verbatim via //go:wasmexport.
type Arena struct {
	mu   sync.Mutex
	buf  []byte
	free map[uint32]uint32 // offset -> size, for allocations released but not yet reused
}

// NewArena returns an empty arena. A single Arena is meant to back one
// engine instance; nothing here is safe to share as process-wide state
// across unrelated requests beyond normal Go memory-safety rules.
// Offset 0 is the null pointer, so its byte is reserved up front and no
// allocation ever starts there.
func NewArena() *Arena {
	return &Arena{buf: make([]byte, 1), free: make(map[uint32]uint32)}
}

// Alloc reserves size bytes and returns their offset, which is never 0.
// size 0 is valid and may return any offset, matching the documented ABI
// contract.
func (a *Arena) Alloc(size uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	offset := uint32(len(a.buf))
	a.buf = append(a.buf, make([]byte, size)...)
	return offset
}

// Free releases a prior allocation. (0,0) and (0,n) are tolerated as
// no-ops, matching the documented ABI contract; the arena never shrinks
// since offsets already handed to the host must stay valid.
func (a *Arena) Free(offset, size uint32) {
	if offset == 0 && size == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free[offset] = size
}

// Write copies data into the arena at offset, growing it if necessary.
func (a *Arena) Write(offset uint32, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	end := int(offset) + len(data)
	if end > len(a.buf) {
		a.buf = append(a.buf, make([]byte, end-len(a.buf))...)
	}
	copy(a.buf[offset:end], data)
}

// Read returns a copy of length bytes starting at offset.
func (a *Arena) Read(offset, length uint32) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	end := int(offset) + int(length)
	if offset > uint32(len(a.buf)) || end > len(a.buf) {
		return nil
	}
	out := make([]byte, length)
	copy(out, a.buf[offset:end])
	return out
}

// putBytes allocates room for data, writes it, and returns the offset —
// the arena-side equivalent of the host writing an argument buffer.
func (a *Arena) putBytes(data []byte) uint32 {
	offset := a.Alloc(uint32(len(data)))
	a.Write(offset, data)
	return offset
}

// writeResult allocates and writes a result envelope (status, payload
// offset, payload length) followed by the payload bytes themselves, and
// returns the envelope's offset — what every entry point below hands
// back to the host as its result_ptr.
func (a *Arena) writeResult(status uint32, payload []byte) uint32 {
	payloadOffset := a.putBytes(payload)

	envelope := make([]byte, resultEnvelopeSize)
	binary.LittleEndian.PutUint32(envelope[0:4], status)
	binary.LittleEndian.PutUint32(envelope[4:8], payloadOffset)
	binary.LittleEndian.PutUint32(envelope[8:12], uint32(len(payload)))

	return a.putBytes(envelope)
}

// ReadResult decodes a result envelope at resultPtr and returns its
// payload bytes plus whether status indicated success. This is the
// host-side counterpart of writeResult, included so a Go host embedding
// the engine in-process never has to hand-roll the 12-byte layout.
func (a *Arena) ReadResult(resultPtr uint32) (payload []byte, ok bool) {
	envelope := a.Read(resultPtr, resultEnvelopeSize)
	if envelope == nil {
		return nil, false
	}
	status := binary.LittleEndian.Uint32(envelope[0:4])
	payloadOffset := binary.LittleEndian.Uint32(envelope[4:8])
	payloadLen := binary.LittleEndian.Uint32(envelope[8:12])
	return a.Read(payloadOffset, payloadLen), status == statusOK
}

func (a *Arena) writeSuccess(v any) uint32 {
	data, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return a.writeEngineError(newEngineError("internal_error", err.Error(), ""))
	}
	return a.writeResult(statusOK, data)
}

func (a *Arena) writeEngineError(e *EngineError) uint32 {
	data, err := json.Marshal(e, json.Deterministic(true))
	if err != nil {
		// Marshaling a fixed, field-tagged struct cannot fail in practice;
		// fall back to a literal payload rather than propagate the error.
		data = []byte(`{"code":"internal_error","message":"failed to encode error envelope"}`)
	}
	return a.writeResult(statusError, data)
}

// AbiVersionExport returns the handshake constant.
func AbiVersionExport() uint32 { return AbiVersion }

// readArg reads one (ptr,len) buffer argument and reports whether it is
// well-formed: a null pointer paired with a non-zero length can never
// name a valid region (the host meant to supply a buffer and didn't), so
// it is rejected as invalid_pointer rather than read as empty.
func (a *Arena) readArg(ptr, length uint32) ([]byte, bool) {
	if ptr == 0 && length != 0 {
		return nil, false
	}
	return a.Read(ptr, length), true
}

// ConvertExport is the ABI-shaped entry point wrapping Convert: it reads
// the schema and options buffers out of the arena, runs the conversion,
// and writes back a result envelope.
func ConvertExport(a *Arena, schemaPtr, schemaLen, optsPtr, optsLen uint32) uint32 {
	schemaBytes, ok := a.readArg(schemaPtr, schemaLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null schema pointer with non-zero length", ""))
	}
	optsBytes, ok := a.readArg(optsPtr, optsLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null opts pointer with non-zero length", ""))
	}

	result, eerr := Convert(schemaBytes, optsBytes)
	if eerr != nil {
		return a.writeEngineError(eerr)
	}
	return a.writeSuccess(result)
}

// RehydrateExport is the ABI-shaped entry point wrapping Rehydrate.
func RehydrateExport(a *Arena, dataPtr, dataLen, codecPtr, codecLen, schemaPtr, schemaLen uint32) uint32 {
	dataBytes, ok := a.readArg(dataPtr, dataLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null data pointer with non-zero length", ""))
	}
	codecBytes, ok := a.readArg(codecPtr, codecLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null codec pointer with non-zero length", ""))
	}
	schemaBytes, ok := a.readArg(schemaPtr, schemaLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null schema pointer with non-zero length", ""))
	}

	result, eerr := Rehydrate(dataBytes, codecBytes, schemaBytes)
	if eerr != nil {
		return a.writeEngineError(eerr)
	}
	return a.writeSuccess(result)
}

// ListComponentsExport is the ABI-shaped entry point wrapping ListComponents.
func ListComponentsExport(a *Arena, schemaPtr, schemaLen uint32) uint32 {
	schemaBytes, ok := a.readArg(schemaPtr, schemaLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null schema pointer with non-zero length", ""))
	}

	result, eerr := ListComponents(schemaBytes)
	if eerr != nil {
		return a.writeEngineError(eerr)
	}
	return a.writeSuccess(result)
}

// ExtractComponentExport is the ABI-shaped entry point wrapping
// ExtractComponent.
func ExtractComponentExport(a *Arena, schemaPtr, schemaLen, pointerPtr, pointerLen, optsPtr, optsLen uint32) uint32 {
	schemaBytes, ok := a.readArg(schemaPtr, schemaLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null schema pointer with non-zero length", ""))
	}
	pointerBytes, ok := a.readArg(pointerPtr, pointerLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null pointer argument with non-zero length", ""))
	}
	optsBytes, ok := a.readArg(optsPtr, optsLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null opts pointer with non-zero length", ""))
	}

	result, eerr := ExtractComponent(schemaBytes, string(pointerBytes), optsBytes)
	if eerr != nil {
		return a.writeEngineError(eerr)
	}
	return a.writeSuccess(result)
}

// ConvertAllComponentsExport is the ABI-shaped entry point wrapping
// ConvertAllComponents.
func ConvertAllComponentsExport(a *Arena, schemaPtr, schemaLen, convertOptsPtr, convertOptsLen, extractOptsPtr, extractOptsLen uint32) uint32 {
	schemaBytes, ok := a.readArg(schemaPtr, schemaLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null schema pointer with non-zero length", ""))
	}
	convertOptsBytes, ok := a.readArg(convertOptsPtr, convertOptsLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null convert-opts pointer with non-zero length", ""))
	}
	extractOptsBytes, ok := a.readArg(extractOptsPtr, extractOptsLen)
	if !ok {
		return a.writeEngineError(newEngineError("invalid_pointer", "null extract-opts pointer with non-zero length", ""))
	}

	result, eerr := ConvertAllComponents(schemaBytes, convertOptsBytes, extractOptsBytes)
	if eerr != nil {
		return a.writeEngineError(eerr)
	}
	return a.writeSuccess(result)
}
