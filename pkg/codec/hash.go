// Package codec implements the node's three cryptographic primitives
// (spec.md S4.1): double-SHA-256 hashing, canonical JSON serialization, and
// secp256k1 ECDSA sign/verify over a prehashed digest. Grounded on the
// teacher repo's pkg/crypto (DoubleSHA256) and pkg/keys (sign/verify),
// generalized away from the teacher's WIF/address-oriented key wrappers.
package codec

import (
	"crypto/sha256"

	"github.com/arjunv-dev/pochain/pkg/types"
)

// Hash returns the lowercase-hex double SHA-256 of data (spec.md S4.1).
// Double hashing defeats length-extension attacks, matching Bitcoin
// convention and the teacher's DoubleSHA256.
func Hash(data []byte) types.Hash256 {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}
