package types

import "fmt"

// Amount is a non-negative quantity of the network's coin, expressed in
// integer minor units (no fractional minor units -- see spec.md S3).
type Amount int64

// NewAmount constructs an Amount, rejecting negative values at construction
// per spec.md's Amount invariant.
func NewAmount(v int64) (Amount, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeAmount, v)
	}
	return Amount(v), nil
}

// ErrNegativeAmount is returned by NewAmount for a negative value.
var ErrNegativeAmount = fmt.Errorf("negative amount")

// Int64 returns the raw minor-unit value.
func (a Amount) Int64() int64 {
	return int64(a)
}

// Add returns a + b. Does not re-check non-negativity; callers that need
// the invariant enforced on a computed sum should route it back through
// NewAmount.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a - b, which may be negative -- used for fee computation
// before the non-negativity check is applied.
func (a Amount) Sub(b Amount) Amount {
	return a - b
}
