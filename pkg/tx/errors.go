package tx

import "errors"

// Named validation failures a caller can switch on (spec.md S4.2/S7).
// Grounded on the shape of the teacher's pkg/transaction/validation.go,
// which used ad hoc fmt.Errorf strings -- this spec's error taxonomy
// (S7) requires callers to distinguish State errors (no strike) from
// Cryptographic/Economic errors (struck), so these are sentinels instead.
var (
	ErrUtxoMissing    = errors.New("utxo missing")
	ErrNegativeAmount = errors.New("negative amount on resolved input")
	ErrNegativeOutput = errors.New("negative output amount")
	ErrBadSignature   = errors.New("signature verification failed")
	ErrValueCreation  = errors.New("outputs exceed inputs")
	ErrNoInputs       = errors.New("non-coinbase transaction has no inputs")
	ErrNoOutputs      = errors.New("transaction has no outputs")
)
