package codec

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/arjunv-dev/pochain/pkg/types"
)

// PrivateKey is a secp256k1 signing key. Grounded on the teacher's
// pkg/keys.PrivateKey, stripped of the WIF import/export this repo has no
// use for (spec.md S3 identifies keys by PEM SubjectPublicKeyInfo, not
// Base58Check addresses).
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GeneratePrivateKey generates a new random secp256k1 private key.
func GeneratePrivateKey() (PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return PrivateKey{}, fmt.Errorf("generate private key: %w", err)
	}
	return PrivateKey{key: key}, nil
}

// PublicKey derives and PEM-encodes the corresponding public key.
func (pk PrivateKey) PublicKey() (types.PublicKey, error) {
	return types.NewPublicKeyFromPoint(pk.key.PubKey())
}

// Sign signs a prehashed digest with prehashed-digest ECDSA: the digest is
// NOT hashed again inside the signing operation (spec.md S4.1/S9) --
// callers must pass the already-doubled hash of whatever they're signing.
func (pk PrivateKey) Sign(digest types.Hash256) []byte {
	sig := ecdsa.Sign(pk.key, digest[:])
	return sig.Serialize()
}

// Verify checks a DER-encoded signature against a prehashed digest and a
// public key (spec.md S4.1/S4.2's ecdsa_verify). Never re-hashes the
// digest internally, matching Sign.
func Verify(pub types.PublicKey, digest types.Hash256, sig []byte) bool {
	if pub.Point() == nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pub.Point())
}
