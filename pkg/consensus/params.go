// Package consensus implements the network-wide rules of spec.md S4.5:
// reward schedule, difficulty retarget, and block/chain validation.
// Grounded on the teacher's pkg/validation/consensus.go
// (GetBlockReward/CalculateNextDifficulty/IsValidProofOfWork) and
// pkg/validation/block.go's ValidateBlock step list, generalized from
// Bitcoin's fixed mainnet constants and compact-bits target to the spec's
// configurable parameters and leading-hex-zero difficulty.
package consensus

// Params holds the fixed, network-wide constants spec.md S4.5 names.
// Unlike the teacher's hardcoded SubsidyHalvingInterval/InitialBlockReward,
// these are carried on a value passed to every consensus function, so a
// node and its test suite can run a fast, low-difficulty network side by
// side with the real one.
type Params struct {
	InitialReward      int64
	HalvingInterval    uint64
	MaxSupply          int64
	DifficultyInterval uint64
	TargetBlockTime    int64 // seconds
	MaxTimestampDrift  int64 // seconds
	GenesisTimestamp   int64
	GenesisDifficulty  uint8
}

// DefaultParams returns the parameter set pochain nodes use; cmd/pochain
// passes it unchanged, and pkg/config has no consensus fields to override
// it. The reward, halving and retarget values follow Bitcoin's schedule
// (halving every 210,000 blocks, retargeting every 2016 blocks against a
// 600-second block time), so a short chain reaches neither a halving nor a
// retarget.
func DefaultParams() Params {
	return Params{
		InitialReward:      5_000_000_000,
		HalvingInterval:    210_000,
		MaxSupply:          21_000_000 * 100_000_000,
		DifficultyInterval: 2016,
		TargetBlockTime:    600,
		MaxTimestampDrift:  2 * 60 * 60,
		GenesisTimestamp:   1_700_000_000,
		GenesisDifficulty:  2,
	}
}

// GenesisFundingAmount and GenesisFundingRecipient are spec.md S8
// scenario 1's fixed genesis funding entry: every node must construct
// byte-identical genesis, so these are constants rather than
// configuration a deployer could vary.
const (
	GenesisFundingAmount    = 1000
	GenesisFundingRecipient = "genesis"
)
