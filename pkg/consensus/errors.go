package consensus

import "errors"

// Named block/chain validation failures (spec.md S4.5/S7). Sentinels
// rather than ad hoc strings because the error taxonomy distinguishes
// consensus failures (strike the source peer) from everything else.
var (
	ErrWrongParent        = errors.New("block does not extend the tip")
	ErrWrongIndex         = errors.New("block index is not tip.index + 1")
	ErrBadHash            = errors.New("block hash does not match recomputed hash")
	ErrInsufficientWork   = errors.New("block hash does not meet the genesis difficulty")
	ErrDifficultyTooLow   = errors.New("block difficulty below genesis difficulty")
	ErrTimestampFuture    = errors.New("block timestamp too far in the future")
	ErrTimestampRegressed = errors.New("block timestamp before parent timestamp")
	ErrEmptyBlock         = errors.New("block has no transactions")
	ErrMissingCoinbase    = errors.New("first transaction is not a coinbase")
	ErrCoinbaseOutputs    = errors.New("coinbase must have exactly one output")
	ErrBadCoinbaseAmount  = errors.New("coinbase amount does not match reward plus fees")
)
