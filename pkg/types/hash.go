// Package types holds the leaf value types shared across the node: hashes,
// amounts, and public keys. It imports no other package of this module, so
// every other package can import it without risking an import cycle.
package types

import (
	"encoding/hex"
	"fmt"
)

// Hash256 is a 32-byte double-SHA-256 digest, rendered as lowercase hex.
type Hash256 [32]byte

// ZeroHash is the all-zero hash that IsZero compares against.
var ZeroHash Hash256

func (h Hash256) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON renders the hash as a lowercase hex JSON string.
func (h Hash256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON parses a lowercase hex JSON string into the hash.
func (h *Hash256) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("hash must be a JSON string")
	}
	return h.FromHex(string(data[1 : len(data)-1]))
}

// FromHex decodes a hex string into the hash in place.
func (h *Hash256) FromHex(s string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// HashFromHex parses a hex string into a Hash256.
func HashFromHex(s string) (Hash256, error) {
	var h Hash256
	err := h.FromHex(s)
	return h, err
}

// IsZero reports whether the hash is the all-zero sentinel.
func (h Hash256) IsZero() bool {
	return h == ZeroHash
}

// LeadingZeroHexDigits counts how many leading hex-zero nibbles h's hex
// string starts with -- the unit this node's difficulty is expressed in.
func (h Hash256) LeadingZeroHexDigits() int {
	s := h.String()
	n := 0
	for n < len(s) && s[n] == '0' {
		n++
	}
	return n
}
