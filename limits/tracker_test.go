package limits

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/stretchr/testify/require"
)

func TestRevertDiscardsAccruedKV(t *testing.T) {
	// Scenario 5 (spec §8): contract does 50 SSTOREs then REVERTs.
	tr := New(megaparams.TxLimits{DataLimit: ^uint64(0), KVUpdateLimit: ^uint64(0), ComputeGasLimit: ^uint64(0)})

	// tx-start: sender nonce/balance update (non-discardable).
	d, k := TxStartCost(0, 0, 0)
	tr.AccrueCommitted(d, k)

	target := common.HexToAddress("0xaa")
	tr.PushFrame(target)
	for i := 0; i < 50; i++ {
		d, k := ColdSStoreCost()
		tr.AccrueDiscardable(d, k)
	}
	tr.PopFrameDiscard()

	_, kvUsed, _ := tr.Totals()
	require.Equal(t, uint64(1), kvUsed, "only the non-discardable tx-start entry should survive a revert")
}

func TestSuccessMergesIntoParent(t *testing.T) {
	tr := New(megaparams.TxLimits{DataLimit: ^uint64(0), KVUpdateLimit: ^uint64(0), ComputeGasLimit: ^uint64(0)})

	outer := common.HexToAddress("0x01")
	inner := common.HexToAddress("0x02")

	tr.PushFrame(outer)
	tr.PushFrame(inner)
	d, k := ColdSStoreCost()
	tr.AccrueDiscardable(d, k)
	tr.PopFrameSuccess() // inner succeeds, merges into outer
	tr.PopFrameSuccess() // outer succeeds (outermost — discarded from stack bookkeeping)

	_, kvUsed, _ := tr.Totals()
	require.Equal(t, uint64(1), kvUsed)
}

func TestExceededKinds(t *testing.T) {
	tr := New(megaparams.TxLimits{DataLimit: 10, KVUpdateLimit: 1, ComputeGasLimit: 100})
	require.Equal(t, ExceedNone, tr.Exceeded())

	tr.AccrueCommitted(0, 2)
	require.Equal(t, ExceedKVUpdate, tr.Exceeded())
}

func TestRescuedGasRoundTrip(t *testing.T) {
	tr := New(megaparams.TxLimits{DataLimit: ^uint64(0), KVUpdateLimit: ^uint64(0), ComputeGasLimit: ^uint64(0)})
	tr.RescueGas(1000)
	tr.RescueGas(500)
	require.Equal(t, uint64(1500), tr.TakeRescuedGas())
	require.Equal(t, uint64(0), tr.TakeRescuedGas())
}

func TestLowerComputeGasLimitNeverRaises(t *testing.T) {
	tr := New(megaparams.TxLimits{DataLimit: ^uint64(0), KVUpdateLimit: ^uint64(0), ComputeGasLimit: 1000})
	tr.LowerComputeGasLimit(2000)
	_, _, cap := tr.Limits()
	require.Equal(t, uint64(1000), cap, "a higher cap must never raise the limit")

	tr.LowerComputeGasLimit(500)
	_, _, cap = tr.Limits()
	require.Equal(t, uint64(500), cap)
}
