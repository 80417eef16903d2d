package chainstate

import (
	"fmt"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/consensus"
	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// ConstructGenesis builds spec.md S6.3/S8's genesis block: fixed
// timestamp, previous_hash "0", and a single funding coinbase paying the
// sentinel recipient "genesis". Every field and the mining nonce search
// itself are deterministic functions of p, so two independent nodes
// constructing genesis from the same Params produce byte-identical
// blocks (spec.md S8 scenario 1) without needing to exchange anything.
func ConstructGenesis(p consensus.Params) (*block.Block, error) {
	recipient, err := types.ParsePublicKeyPEM([]byte(consensus.GenesisFundingRecipient))
	if err != nil {
		return nil, fmt.Errorf("parse genesis recipient: %w", err)
	}
	amount, err := types.NewAmount(consensus.GenesisFundingAmount)
	if err != nil {
		return nil, err
	}
	funding, err := tx.New(nil, []tx.Output{{Amount: amount, Recipient: recipient}}, p.GenesisTimestamp)
	if err != nil {
		return nil, fmt.Errorf("construct genesis funding entry: %w", err)
	}
	return block.New(0, p.GenesisTimestamp, []block.Transaction{funding}, "0", p.GenesisDifficulty)
}
