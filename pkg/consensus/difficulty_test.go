package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arjunv-dev/pochain/pkg/block"
)

// chainOfTimestamps builds a throwaway chain whose only relevant field
// for NextDifficulty is Timestamp; the real structural invariants are
// exercised in validate_test.go instead.
func chainOfTimestamps(timestamps []int64) []*block.Block {
	chain := make([]*block.Block, len(timestamps))
	for i, ts := range timestamps {
		chain[i] = block.FromParts(uint64(i), ts, nil, "0", 0, 0, [32]byte{})
	}
	return chain
}

func TestNextDifficultyNoChangeOffInterval(t *testing.T) {
	p := Params{DifficultyInterval: 10, TargetBlockTime: 30}
	chain := chainOfTimestamps(make([]int64, 5))
	require.Equal(t, uint8(2), NextDifficulty(chain, 2, p))
}

func TestNextDifficultyRetargetsDownWhenSlow(t *testing.T) {
	p := Params{DifficultyInterval: 10, TargetBlockTime: 30}
	timestamps := make([]int64, 10)
	for i := range timestamps {
		timestamps[i] = int64(i) * 60 // spans 9*60=540s naively but actual = last-first
	}
	timestamps[9] = timestamps[0] + 600 // spanned 600s = 30*10*2, twice the 300s target (slow blocks)
	chain := chainOfTimestamps(timestamps)
	require.Equal(t, uint8(1), NextDifficulty(chain, 2, p))
}

func TestNextDifficultyRetargetsUpWhenFastClamped(t *testing.T) {
	p := Params{DifficultyInterval: 10, TargetBlockTime: 30}
	timestamps := make([]int64, 10)
	timestamps[9] = timestamps[0] + 75 // actual=75s, clamps up to target/2=150
	chain := chainOfTimestamps(timestamps)
	require.Equal(t, uint8(4), NextDifficulty(chain, 2, p))
}

func TestNextDifficultyNeverBelowOne(t *testing.T) {
	p := Params{DifficultyInterval: 10, TargetBlockTime: 30}
	timestamps := make([]int64, 10)
	timestamps[9] = timestamps[0] + 1200 // actual clamps down to target*2=600
	chain := chainOfTimestamps(timestamps)
	got := NextDifficulty(chain, 1, p)
	require.GreaterOrEqual(t, got, uint8(1))
}
