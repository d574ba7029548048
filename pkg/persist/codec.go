package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Codec converts state to and from its stored form.
type Codec[S any] interface {
	Marshal(state S) ([]byte, error)
	Unmarshal(data []byte) (S, error)
}

// JSONCodec stores state as a bare JSON object. Decoding is strict: unknown
// fields, type mismatches and trailing data are errors, so a payload written
// by a different schema is rejected rather than half-applied.
type JSONCodec[S any] struct{}

// Marshal encodes state as JSON.
func (JSONCodec[S]) Marshal(state S) ([]byte, error) {
	return json.Marshal(state)
}

// Unmarshal decodes data into a fresh S.
func (JSONCodec[S]) Unmarshal(data []byte) (S, error) {
	var out S
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		var zero S
		return zero, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var zero S
		return zero, errors.New("persist: trailing data after state")
	}
	return out, nil
}
