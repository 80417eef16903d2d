package types

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // ripemd160 is deprecated upstream but still the Bitcoin-style fingerprint this repo mimics
)

// secp256k1 has no native encoding/x509 support (the standard library's
// MarshalPKIXPublicKey only knows the NIST curves), so the
// SubjectPublicKeyInfo the spec requires is built by hand from the same
// ASN.1 shape x509 uses internally.
var (
	oidPublicKeyECDSA      = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidNamedCurveSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

type pkixPublicKey struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// PublicKey is an opaque identity: a PEM-encoded SubjectPublicKeyInfo byte
// string over secp256k1 (spec.md S3). Equality is byte equality on the PEM
// form, so two differently-whitespaced encodings of the same key compare
// unequal -- callers should route keys through ParsePublicKeyPEM once and
// keep the canonical PEM form around rather than re-deriving it.
type PublicKey struct {
	pem []byte
	key *secp256k1.PublicKey
}

// NewPublicKeyFromPoint wraps a secp256k1 point and renders its canonical
// PEM form once, up front.
func NewPublicKeyFromPoint(key *secp256k1.PublicKey) (PublicKey, error) {
	curveParams, err := asn1.Marshal(oidNamedCurveSecp256k1)
	if err != nil {
		return PublicKey{}, fmt.Errorf("marshal curve OID: %w", err)
	}
	uncompressed := key.SerializeUncompressed()
	der, err := asn1.Marshal(pkixPublicKey{
		Algorithm: pkix.AlgorithmIdentifier{
			Algorithm:  oidPublicKeyECDSA,
			Parameters: asn1.RawValue{FullBytes: curveParams},
		},
		PublicKey: asn1.BitString{Bytes: uncompressed, BitLength: 8 * len(uncompressed)},
	})
	if err != nil {
		return PublicKey{}, fmt.Errorf("marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return PublicKey{pem: pem.EncodeToMemory(block), key: key}, nil
}

// ParsePublicKeyPEM decodes a PEM-encoded SubjectPublicKeyInfo into a
// PublicKey. spec.md S3 treats PublicKey as an opaque byte string with
// byte equality, not a value that must parse as a valid curve point --
// the genesis funding entry recipient (the literal sentinel "genesis",
// spec.md S6.3) is one such opaque, non-spendable identity. Bytes that
// don't parse as PEM/ASN.1 are kept verbatim as an unparseable identity
// (Point() returns nil, so Verify against it always fails, which is
// exactly the right behavior for an identity nothing can sign for).
func ParsePublicKeyPEM(data []byte) (PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return PublicKey{pem: append([]byte(nil), data...)}, nil
	}
	var pub pkixPublicKey
	if _, err := asn1.Unmarshal(block.Bytes, &pub); err != nil {
		return PublicKey{pem: append([]byte(nil), data...)}, nil
	}
	if !pub.Algorithm.Algorithm.Equal(oidPublicKeyECDSA) {
		return PublicKey{pem: append([]byte(nil), data...)}, nil
	}
	point, err := secp256k1.ParsePubKey(pub.PublicKey.Bytes)
	if err != nil {
		return PublicKey{pem: append([]byte(nil), data...)}, nil
	}
	return PublicKey{pem: pem.EncodeToMemory(block), key: point}, nil
}

// PEM returns the canonical PEM bytes of the key.
func (p PublicKey) PEM() []byte {
	return p.pem
}

// Point returns the underlying curve point, for signature verification.
func (p PublicKey) Point() *secp256k1.PublicKey {
	return p.key
}

// Equal reports byte equality of the PEM encodings (spec.md S3).
func (p PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(p.pem, other.pem)
}

// IsZero reports whether this is the zero-value PublicKey (no key set).
func (p PublicKey) IsZero() bool {
	return len(p.pem) == 0
}

// Fingerprint returns RIPEMD160(SHA256(compressed pubkey)), a short
// display-only identifier. Never used for consensus identity -- the PEM
// form is the spec's identity -- only for logs and CLI output, the way the
// teacher repo's PublicKey.Hash160 feeds address display.
func (p PublicKey) Fingerprint() string {
	if p.key == nil {
		return ""
	}
	sum := sha256.Sum256(p.key.SerializeCompressed())
	r := ripemd160.New()
	r.Write(sum[:])
	return fmt.Sprintf("%x", r.Sum(nil))
}

func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p.pem))
}

func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKeyPEM([]byte(s))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
