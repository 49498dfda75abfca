// Package megaparams carries the chain configuration and hardfork rules that
// parameterise the execution engine: which of the two successor hardforks
// ("mini-rex", "rex") are active for a given block, and the resource caps that
// apply at that point.
package megaparams

import "math/big"

// Hardfork identifies one of the three instruction-table variants the engine
// can run under.
type Hardfork uint8

const (
	// Equivalence is the Optimism-compatible mainnet baseline: no compute/storage
	// gas split, no volatile-data detention, no additional resource caps.
	Equivalence Hardfork = iota
	// MiniRex adds the compute/storage gas split, volatile-data detention, and
	// the additional per-tx data/kv caps.
	MiniRex
	// Rex refines MiniRex's storage-gas formulas and wires the three remaining
	// call-like opcodes (CALLCODE, DELEGATECALL, STATICCALL) through the
	// gas-forwarding wrapper.
	Rex
	// Rex2 activates the oracle hint path and the keyless-deploy contract.
	Rex2
)

func (h Hardfork) String() string {
	switch h {
	case Equivalence:
		return "equivalence"
	case MiniRex:
		return "mini-rex"
	case Rex:
		return "rex"
	case Rex2:
		return "rex2"
	default:
		return "unknown"
	}
}

// ChainConfig carries the block numbers at which each hardfork activates.
// A nil activation block means "never active".
type ChainConfig struct {
	ChainID *big.Int

	MiniRexBlock *big.Int
	RexBlock     *big.Int
	Rex2Block    *big.Int
}

// Rules is the resolved hardfork state for one specific block number, mirroring
// the teacher's params.Rules pattern (a flattened, cheap-to-check snapshot
// computed once per block rather than re-deriving activation checks per opcode).
type Rules struct {
	IsMiniRex bool
	IsRex     bool
	IsRex2    bool
}

// Rules resolves the activation booleans for the given block number.
func (c *ChainConfig) Rules(blockNumber *big.Int) Rules {
	return Rules{
		IsMiniRex: isActive(c.MiniRexBlock, blockNumber) || isActive(c.RexBlock, blockNumber) || isActive(c.Rex2Block, blockNumber),
		IsRex:     isActive(c.RexBlock, blockNumber) || isActive(c.Rex2Block, blockNumber),
		IsRex2:    isActive(c.Rex2Block, blockNumber),
	}
}

// Hardfork reduces Rules down to the single active instruction-table variant.
func (r Rules) Hardfork() Hardfork {
	switch {
	case r.IsRex2:
		return Rex2
	case r.IsRex:
		return Rex
	case r.IsMiniRex:
		return MiniRex
	default:
		return Equivalence
	}
}

func isActive(activation, block *big.Int) bool {
	return activation != nil && block != nil && block.Cmp(activation) >= 0
}
