package block

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/megaeth-labs/mega-evm-sub000/state"
	"github.com/megaeth-labs/mega-evm-sub000/txn"
	"github.com/megaeth-labs/mega-evm-sub000/vm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	accounts map[common.Address]*state.AccountInfo
	code     map[common.Hash][]byte
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		accounts: make(map[common.Address]*state.AccountInfo),
		code:     make(map[common.Hash][]byte),
	}
}

func (f *fakeDB) Basic(addr common.Address) (*state.AccountInfo, error) {
	if a, ok := f.accounts[addr]; ok {
		return a, nil
	}
	return &state.AccountInfo{Balance: new(big.Int)}, nil
}

func (f *fakeDB) CodeByHash(hash common.Hash) ([]byte, error) { return f.code[hash], nil }
func (f *fakeDB) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	return common.Hash{}, nil
}
func (f *fakeDB) BlockHash(number uint64) (common.Hash, error) { return common.Hash{}, nil }

// deployCode installs code at addr in db, keyed by its Keccak256 hash, the
// way a real Database would after a prior CREATE.
func deployCode(db *fakeDB, addr common.Address, code []byte) {
	hash := megatypes.NewBytecode(code).Hash()
	db.code[hash] = code
	db.accounts[addr] = &state.AccountInfo{Balance: new(big.Int), CodeHash: hash}
}

func newExecutor(t *testing.T, limits megaparams.BlockLimits) *Executor {
	t.Helper()
	e, _ := newExecutorWithDB(t, limits)
	return e
}

func newExecutorWithDB(t *testing.T, limits megaparams.BlockLimits) (*Executor, *fakeDB) {
	t.Helper()
	db := newFakeDB()
	sender := common.HexToAddress("0x01")
	db.accounts[sender] = &state.AccountInfo{Balance: big.NewInt(1_000_000_000_000)}
	journal := state.New(db)

	h := &txn.Handler{
		Journal: journal,
		Config:  &megaparams.ChainConfig{ChainID: big.NewInt(1)},
		Block: vm.BlockContext{
			Coinbase:    common.HexToAddress("0xc0ffee"),
			GasLimit:    30_000_000,
			BlockNumber: big.NewInt(0),
			BaseFee:     new(big.Int),
			Difficulty:  new(big.Int),
			BlobBaseFee: new(big.Int),
		},
		Oracle: bucketoracle.NewStaticOracle(megaparams.MinBucketSize),
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewExecutor(h, limits, big.NewInt(0), metrics), db
}

func sampleTx() *RecoveredTx {
	tx := &megatypes.Transaction{
		Caller:   common.HexToAddress("0x01"),
		Kind:     megatypes.CallKindCall,
		Target:   common.HexToAddress("0x02"),
		Value:    big.NewInt(500),
		GasLimit: 100_000,
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1),
	}
	return &RecoveredTx{Tx: tx, Raw: make([]byte, 120)}
}

func TestExecuteTransactionAggregates(t *testing.T) {
	e := newExecutor(t, megaparams.Unlimited())

	result, err := e.ExecuteTransaction(sampleTx())
	require.NoError(t, err)
	require.Equal(t, megatypes.OutcomeSuccess, result.Outcome)

	out := e.Finish()
	require.Len(t, out.Receipts, 1)
}

func TestExecuteTransactionRejectsOverEncodeSizeLimit(t *testing.T) {
	limits := megaparams.Unlimited()
	limits.TxsEncodeSizeLimit = 1
	e := newExecutor(t, limits)
	e.txsEncodeUsed = 1 // already at the cap before this transaction runs

	_, err := e.ExecuteTransaction(sampleTx())
	require.ErrorIs(t, err, megatypes.ErrTransactionEncodeSizeLimit)
}

func TestExecuteTransactionRejectsOverDataLimit(t *testing.T) {
	limits := megaparams.Unlimited()
	limits.DataLimit = 1
	e := newExecutor(t, limits)
	e.dataUsed = 1 // already at the cap before this transaction runs

	_, err := e.ExecuteTransaction(sampleTx())
	require.ErrorIs(t, err, megatypes.ErrBlockDataLimitReached)
}

func TestNewExecutorTreatsZeroBlockLimitsAsUnlimited(t *testing.T) {
	e := newExecutor(t, megaparams.BlockLimits{})

	_, err := e.ExecuteTransaction(sampleTx())
	require.NoError(t, err)
}

func TestExecuteTransactionAdmitsFirstCrosserThenRejectsKVLimit(t *testing.T) {
	limits := megaparams.Unlimited()
	limits.KVUpdateLimit = 1
	e, db := newExecutorWithDB(t, limits)
	e.Handler.Config.MiniRexBlock = big.NewInt(0)

	target := common.HexToAddress("0x02")
	// PUSH1 1 PUSH1 0 SSTORE STOP: one write to a fresh zero slot.
	deployCode(db, target, []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x00})

	first := &RecoveredTx{
		Tx: &megatypes.Transaction{
			Caller:   common.HexToAddress("0x01"),
			Kind:     megatypes.CallKindCall,
			Target:   target,
			GasLimit: 100_000,
			GasPrice: big.NewInt(1),
			ChainID:  big.NewInt(1),
		},
		Raw: make([]byte, 32),
	}

	// The first transaction crosses block_kv_update_limit on its own, but is
	// still admitted: the limit only blocks transactions starting at or past
	// the cap, never the one that first crosses it.
	result, err := e.ExecuteTransaction(first)
	require.NoError(t, err)
	require.Equal(t, megatypes.OutcomeSuccess, result.Outcome)

	_, err = e.ExecuteTransaction(sampleTx())
	require.ErrorIs(t, err, megatypes.ErrBlockKVLimitReached)

	out := e.Finish()
	require.Len(t, out.Receipts, 1)
}

func TestApplyPreExecutionChangesDeploysOracleAtActivation(t *testing.T) {
	e := newExecutor(t, megaparams.Unlimited())
	e.Handler.Config.MiniRexBlock = big.NewInt(0)

	err := e.ApplyPreExecutionChanges([]byte{0x60, 0x00}, nil)
	require.NoError(t, err)

	code, err := e.Handler.Journal.GetCode(megaparams.OracleAddress)
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x00}, code)
}
