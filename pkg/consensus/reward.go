package consensus

// Reward implements spec.md S4.5's reward(block_index) = max(0,
// INITIAL_REWARD / 2^(block_index / HALVING_INTERVAL)), integer division
// of the index -- the teacher's GetBlockReward right-shifted by a fixed
// halving count; here the shift amount is itself computed from Params
// rather than a package constant.
func Reward(p Params, blockIndex uint64) int64 {
	halvings := blockIndex / p.HalvingInterval
	if halvings >= 63 {
		return 0
	}
	reward := p.InitialReward >> halvings
	if reward < 0 {
		return 0
	}
	return reward
}
