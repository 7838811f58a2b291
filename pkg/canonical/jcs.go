// Package canonical provides RFC 8785 (JSON Canonicalization Scheme)
// serialization and transcript text normalization. Receipt hashing is only
// well-defined if two logically equal values always serialize to identical
// bytes, regardless of map key order or source formatting.
package canonical

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Marshal returns the RFC 8785 canonical JSON encoding of v.
//
// v may be any JSON-representable value: maps with string keys, slices,
// strings, numbers, booleans, nil, or structs with json tags. Map keys are
// sorted lexicographically by UTF-8 bytes, numbers use ES6 shortest-form
// serialization, and no insignificant whitespace or HTML escaping is emitted.
//
// Non-finite floats (NaN, ±Inf) and cyclic structures are rejected with an
// error; they have no canonical form.
func Marshal(v any) ([]byte, error) {
	// Two passes: encoding/json handles struct tags and rejects NaN/Inf and
	// cycles; jcs.Transform then rewrites the intermediate JSON into strict
	// RFC 8785 form (sorted keys, ES6 numbers, no HTML escaping).
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: value is not canonicalizable: %w", err)
	}

	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform failed: %w", err)
	}
	return out, nil
}

// MarshalString is Marshal returning the canonical form as a string.
func MarshalString(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
