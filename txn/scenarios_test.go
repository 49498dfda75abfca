package txn

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/megaeth-labs/mega-evm-sub000/state"
	"github.com/stretchr/testify/require"
)

// deployCode installs code at addr in db, keyed by its Keccak256 hash, the
// way a real Database would after a prior CREATE.
func deployCode(db *fakeDB, addr common.Address, code []byte) {
	hash := megatypes.NewBytecode(code).Hash()
	db.code[hash] = code
	db.accounts[addr] = &state.AccountInfo{Balance: new(big.Int), CodeHash: hash}
}

func pushByte(b byte) []byte { return []byte{0x60, b} }

// sstoreOne appends a PUSH1 1 PUSH1 <slot> SSTORE triple writing 1 to a
// fresh, unique slot.
func sstoreOne(code []byte, slot byte) []byte {
	code = append(code, pushByte(1)...)
	code = append(code, pushByte(slot)...)
	code = append(code, 0x55) // SSTORE
	return code
}

func TestRunBlockEnvDetentionRefundsDetainedGas(t *testing.T) {
	sender := common.HexToAddress("0x01")
	target := common.HexToAddress("0x02")
	h, db := fundedHandler(t, sender, big.NewInt(1_000_000_000_000), megaparams.MiniRex)

	// TIMESTAMP POP PUSH1 0 PUSH1 0 RETURN
	code := []byte{0x42, 0x50, 0x60, 0x00, 0x60, 0x00, 0xf3}
	deployCode(db, target, code)

	tx := &megatypes.Transaction{
		Caller:   sender,
		Kind:     megatypes.CallKindCall,
		Target:   target,
		GasLimit: 30_000_000,
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1),
	}

	outcome, err := h.Run(tx, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, megatypes.OutcomeSuccess, outcome.Result.Outcome)
	require.Less(t, outcome.Result.GasUsed, uint64(30_000))
}

func TestRunOracleCapTriggersVolatileOutOfGas(t *testing.T) {
	sender := common.HexToAddress("0x01")
	target := common.HexToAddress("0x02")
	h, db := fundedHandler(t, sender, big.NewInt(1_000_000_000_000), megaparams.Rex)

	var code []byte
	// CALL(gas=1_000_000, oracleAddress, value=0, argsOffset=0, argsSize=0, retOffset=0, retSize=0)
	code = append(code, pushByte(0)...) // retSize
	code = append(code, pushByte(0)...) // retOffset
	code = append(code, pushByte(0)...) // argsSize
	code = append(code, pushByte(0)...) // argsOffset
	code = append(code, pushByte(0)...) // value
	code = append(code, 0x73)           // PUSH20
	code = append(code, megaparams.OracleAddress.Bytes()...)
	code = append(code, 0x62, 0x0f, 0x42, 0x40) // PUSH3 0x0F4240 (1_000_000 gas)
	code = append(code, 0xf1)                   // CALL

	for i := byte(0); i < 80; i++ {
		code = sstoreOne(code, i)
	}
	code = append(code, 0x00) // STOP, unreachable once the cap trips

	deployCode(db, target, code)

	tx := &megatypes.Transaction{
		Caller:   sender,
		Kind:     megatypes.CallKindCall,
		Target:   target,
		GasLimit: 200_000_000,
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1),
	}

	outcome, err := h.Run(tx, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, megatypes.OutcomeHalt, outcome.Result.Outcome)
	require.NotNil(t, outcome.Result.Halt)
	require.Equal(t, megatypes.HaltOutOfGas, outcome.Result.Halt.Kind)
	require.NotNil(t, outcome.Result.Halt.VolatileData)
	require.Equal(t, megatypes.VolatileAccessOracle, outcome.Result.Halt.VolatileData.AccessType)
	require.Equal(t, uint64(1_000_000), outcome.Result.Halt.VolatileData.Limit)
	require.Less(t, outcome.Result.GasUsed, tx.GasLimit)
}

func TestRunSstoreGasScalesWithBucketMultiplier(t *testing.T) {
	sender := common.HexToAddress("0x01")
	target := common.HexToAddress("0x02")

	// PUSH2 0x18C6 (6342) PUSH1 0 SSTORE STOP
	code := []byte{0x61, 0x18, 0xc6, 0x60, 0x00, 0x55, 0x00}
	slot := bucketoracle.StorageBucket(target, common.Hash{})

	runWithMultiplier := func(k uint64) uint64 {
		h, db := fundedHandler(t, sender, big.NewInt(1_000_000_000_000), megaparams.MiniRex)
		deployCode(db, target, code)
		h.Oracle.(*bucketoracle.StaticOracle).SetCapacity(slot, k*megaparams.MinBucketSize)

		tx := &megatypes.Transaction{
			Caller:   sender,
			Kind:     megatypes.CallKindCall,
			Target:   target,
			GasLimit: 10_000_000,
			GasPrice: big.NewInt(1),
			ChainID:  big.NewInt(1),
		}
		outcome, err := h.Run(tx, big.NewInt(0))
		require.NoError(t, err)
		require.Equal(t, megatypes.OutcomeSuccess, outcome.Result.Outcome)
		return outcome.Result.GasUsed
	}

	gasUsedK1 := runWithMultiplier(1)
	gasUsedK3 := runWithMultiplier(3)

	require.Equal(t, megaparams.MiniRexSStoreSetStorageGas*2, gasUsedK3-gasUsedK1)
}

func TestRunRevertDiscardsAccruedKVUpdates(t *testing.T) {
	sender := common.HexToAddress("0x01")
	target := common.HexToAddress("0x02")
	h, db := fundedHandler(t, sender, big.NewInt(1_000_000_000_000), megaparams.MiniRex)

	var code []byte
	for i := byte(0); i < 50; i++ {
		code = sstoreOne(code, i)
	}
	code = append(code, 0x60, 0x00, 0x60, 0x00, 0xfd) // PUSH1 0 PUSH1 0 REVERT
	deployCode(db, target, code)

	tx := &megatypes.Transaction{
		Caller:   sender,
		Kind:     megatypes.CallKindCall,
		Target:   target,
		GasLimit: 10_000_000,
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1),
	}

	outcome, err := h.Run(tx, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, megatypes.OutcomeRevert, outcome.Result.Outcome)
	require.Equal(t, uint64(1), outcome.KVUsed)

	code2, err := h.Journal.GetCode(target)
	require.NoError(t, err)
	require.Equal(t, code, code2)
	for i := byte(0); i < 50; i++ {
		val, err := h.Journal.GetState(target, common.BytesToHash([]byte{i}))
		require.NoError(t, err)
		require.Equal(t, common.Hash{}, val)
	}
}
