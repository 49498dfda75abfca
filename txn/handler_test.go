package txn

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/megaeth-labs/mega-evm-sub000/state"
	"github.com/megaeth-labs/mega-evm-sub000/vm"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	accounts map[common.Address]*state.AccountInfo
	storage  map[common.Address]map[common.Hash]common.Hash
	code     map[common.Hash][]byte
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		accounts: make(map[common.Address]*state.AccountInfo),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
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
	if m, ok := f.storage[addr]; ok {
		return m[key], nil
	}
	return common.Hash{}, nil
}

func (f *fakeDB) BlockHash(number uint64) (common.Hash, error) { return common.Hash{}, nil }

func fundedHandler(t *testing.T, sender common.Address, balance *big.Int, fork megaparams.Hardfork) (*Handler, *fakeDB) {
	t.Helper()
	db := newFakeDB()
	db.accounts[sender] = &state.AccountInfo{Balance: balance}
	journal := state.New(db)

	cfg := &megaparams.ChainConfig{ChainID: big.NewInt(1)}
	zero := big.NewInt(0)
	switch fork {
	case megaparams.MiniRex:
		cfg.MiniRexBlock = zero
	case megaparams.Rex:
		cfg.MiniRexBlock, cfg.RexBlock = zero, zero
	case megaparams.Rex2:
		cfg.MiniRexBlock, cfg.RexBlock, cfg.Rex2Block = zero, zero, zero
	}

	h := &Handler{
		Journal: journal,
		Config:  cfg,
		Block: vm.BlockContext{
			Coinbase:    common.HexToAddress("0xc0ffee"),
			GasLimit:    30_000_000,
			BlockNumber: zero,
			BaseFee:     new(big.Int),
			Difficulty:  new(big.Int),
			BlobBaseFee: new(big.Int),
		},
		Oracle: bucketoracle.NewStaticOracle(megaparams.MinBucketSize),
	}
	return h, db
}

func TestRunSimpleValueTransfer(t *testing.T) {
	sender := common.HexToAddress("0x01")
	receiver := common.HexToAddress("0x02")
	h, _ := fundedHandler(t, sender, big.NewInt(1_000_000_000_000), megaparams.Equivalence)

	tx := &megatypes.Transaction{
		Caller:   sender,
		Kind:     megatypes.CallKindCall,
		Target:   receiver,
		Value:    big.NewInt(1_000),
		GasLimit: 100_000,
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1),
	}

	outcome, err := h.Run(tx, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, megatypes.OutcomeSuccess, outcome.Result.Outcome)

	bal, err := h.Journal.GetBalance(receiver)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000), bal)
}

func TestRunRejectsGasLimitBelowIntrinsic(t *testing.T) {
	sender := common.HexToAddress("0x01")
	h, _ := fundedHandler(t, sender, big.NewInt(1_000_000_000_000), megaparams.Equivalence)

	tx := &megatypes.Transaction{
		Caller:   sender,
		Kind:     megatypes.CallKindCall,
		Target:   common.HexToAddress("0x02"),
		GasLimit: 100,
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1),
	}

	_, err := h.Run(tx, big.NewInt(0))
	require.ErrorIs(t, err, megatypes.ErrCallGasCostMoreThanGasLimit)
}

func TestRunRejectsInsufficientBalance(t *testing.T) {
	sender := common.HexToAddress("0x01")
	h, _ := fundedHandler(t, sender, big.NewInt(1), megaparams.Equivalence)

	tx := &megatypes.Transaction{
		Caller:   sender,
		Kind:     megatypes.CallKindCall,
		Target:   common.HexToAddress("0x02"),
		GasLimit: 100_000,
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1),
	}

	_, err := h.Run(tx, big.NewInt(0))
	require.ErrorIs(t, err, megatypes.ErrBalanceTooLow)
}

func TestSystemCallRequiresWhitelistedTarget(t *testing.T) {
	h, db := fundedHandler(t, megaparams.MegaSystemAddress, big.NewInt(0), megaparams.MiniRex)

	tx := &megatypes.Transaction{
		Caller:   megaparams.MegaSystemAddress,
		Kind:     megatypes.CallKindCall,
		Target:   common.HexToAddress("0xdeadbeef"),
		GasLimit: 100_000,
		ChainID:  big.NewInt(1),
	}
	_, err := h.Run(tx, big.NewInt(0))
	require.ErrorIs(t, err, megatypes.ErrSystemTxTargetNotWhitelisted)

	tx.Target = megaparams.OracleAddress
	db.code[megatypes.EmptyCodeHash] = nil
	outcome, err := h.Run(tx, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, megatypes.OutcomeSuccess, outcome.Result.Outcome)
}

func TestSystemCallMayNotCreate(t *testing.T) {
	h, _ := fundedHandler(t, megaparams.MegaSystemAddress, big.NewInt(0), megaparams.MiniRex)

	tx := &megatypes.Transaction{
		Caller:   megaparams.MegaSystemAddress,
		Kind:     megatypes.CallKindCreate,
		GasLimit: 100_000,
		ChainID:  big.NewInt(1),
	}
	_, err := h.Run(tx, big.NewInt(0))
	require.ErrorIs(t, err, megatypes.ErrSystemTxMayNotCreate)
}
