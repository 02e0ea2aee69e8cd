// Package jsonschema converts a JSON Schema (2020-12) into the restricted
// dialect accepted by structured-output LLM backends, and rehydrates a
// conforming provider response back into a document shaped like the
// original schema. Every lossy step a conversion performs is recorded in
// a codec, which is what the rehydrator replays in reverse.
package jsonschema
