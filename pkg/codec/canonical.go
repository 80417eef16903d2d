package codec

import (
	"bytes"
	"encoding/json"
)

// Serialize produces a canonical byte encoding of v: keys sorted
// lexicographically at every nesting level, no insignificant whitespace,
// UTF-8 (spec.md S4.1). Any two semantically equal values must produce
// byte-identical output on any host.
//
// Callers build the value to serialize as nested map[string]interface{}/
// []interface{} ("view" values) rather than marshaling Go structs
// directly -- encoding/json only guarantees key order for map keys (it
// sorts them), not for struct fields, so the view types are what make this
// function's "sorted at every nesting level" guarantee hold regardless of
// how the call site's Go structs happen to be declared.
func Serialize(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; strip it so the
	// digest is of the compact value alone.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
