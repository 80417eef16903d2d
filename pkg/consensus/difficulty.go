package consensus

import "github.com/arjunv-dev/pochain/pkg/block"

// NextDifficulty implements spec.md S4.5's retarget rule: no change
// unless len(chain) is a positive multiple of DifficultyInterval, in
// which case the actual time taken to mine the last interval is clamped
// to [target/2, target*2] and the new difficulty is
// round(current * target / actual), floored at 1. Generalized from the
// teacher's CalculateNextDifficulty, which clamped actualTime directly
// against target*4/target/4 rather than deriving target from the
// interval length.
func NextDifficulty(chain []*block.Block, current uint8, p Params) uint8 {
	n := uint64(len(chain))
	if n == 0 || n%p.DifficultyInterval != 0 {
		return current
	}

	target := p.TargetBlockTime * int64(p.DifficultyInterval)
	actual := chain[n-1].Timestamp - chain[n-p.DifficultyInterval].Timestamp
	if actual < target/2 {
		actual = target / 2
	}
	if actual > target*2 {
		actual = target * 2
	}
	if actual <= 0 {
		actual = 1
	}

	// round(current * target / actual) via integer arithmetic with a
	// half-unit bias, since Go has no integer round-to-nearest division.
	numerator := int64(current)*target*2 + actual
	newDifficulty := numerator / (actual * 2)
	if newDifficulty < 1 {
		newDifficulty = 1
	}
	if newDifficulty > 255 {
		newDifficulty = 255
	}
	return uint8(newDifficulty)
}
