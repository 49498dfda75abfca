package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/limits"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/state"
	"github.com/megaeth-labs/mega-evm-sub000/volatile"
)

// BlockContext carries the block-level environment values opcode bodies
// read (TIMESTAMP, NUMBER, COINBASE, ...), consumed per spec §6.
type BlockContext struct {
	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber *big.Int
	Time        uint64
	BaseFee     *big.Int
	Difficulty  *big.Int // PREVRANDAO post-Merge
	BlobBaseFee *big.Int
	ParentHash  common.Hash

	// GetHash resolves BLOCKHASH; nil-safe callers should treat a nil
	// function as "always return the zero hash".
	GetHash func(n uint64) common.Hash
}

// EnvHooks are the oracle-env hooks spec §6 names: a fire-and-forget hint
// notifier and an optional storage-read override at the oracle address.
type EnvHooks struct {
	OracleOnHint func(sender common.Address, topic common.Hash, data []byte)
	OracleSload  func(slot common.Hash) (uint256.Int, bool)
}

// Context threads everything an opcode wrapper needs to read or mutate:
// the journal, the per-transaction trackers, the bucket oracle, the active
// hardfork rules, and the block environment. It is the "environment struct"
// the Instruction Table's execute functions take as their first argument,
// grounded on core/vm/evm.go's EVM struct playing the same threading role.
type Context struct {
	Journal  *state.Journal
	Limits   *limits.Tracker
	Volatile *volatile.Tracker
	Oracle   bucketoracle.Oracle

	Rules megaparams.Rules
	Block BlockContext
	Hooks EnvHooks

	ChainID *big.Int

	// NoBeneficiaryReward disables beneficiary crediting for ephemeral
	// simulation (spec §4.6 step 5). The Transaction Handler copies its own
	// setting here but decides crediting from its own field; no opcode body
	// reads this one.
	NoBeneficiaryReward bool

	JumpTable *JumpTable
}
