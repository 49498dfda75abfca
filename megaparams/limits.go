package megaparams

import "math"

// BlockLimits are the four block-wide caps enforced by the Block Executor.
// MaxUint64 in any field means "no limit" (spec §4.7, §6).
type BlockLimits struct {
	DataLimit        uint64
	KVUpdateLimit    uint64
	TxsEncodeSizeLimit uint64
	PerTxComputeGasLimit uint64
}

// Unlimited returns the sentinel "no cap" BlockLimits.
func Unlimited() BlockLimits {
	return BlockLimits{
		DataLimit:            math.MaxUint64,
		KVUpdateLimit:        math.MaxUint64,
		TxsEncodeSizeLimit:   math.MaxUint64,
		PerTxComputeGasLimit: math.MaxUint64,
	}
}

// TxLimits are the configurable per-transaction ceilings consulted by the
// Additional-Limit Tracker (spec §4.3).
type TxLimits struct {
	DataLimit        uint64
	KVUpdateLimit    uint64
	ComputeGasLimit  uint64
}
