package prestate

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/stretchr/testify/require"
)

func TestLoadRoundTripsQuantityFields(t *testing.T) {
	addr := common.HexToAddress("0x01")
	dir := t.TempDir()
	path := filepath.Join(dir, "prestate.json")

	raw := `{
		"0x0000000000000000000000000000000000000001": {
			"balance": "0x3e8",
			"nonce": "0x5",
			"code": "0x6001"
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	dump, err := Load(path)
	require.NoError(t, err)

	entry, ok := dump[addr]
	require.True(t, ok)
	require.Equal(t, big.NewInt(1000), (*big.Int)(entry.Balance))
	require.Equal(t, uint64(5), uint64(entry.Nonce))
	require.Equal(t, []byte{0x60, 0x01}, []byte(entry.Code))
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestMemDatabaseBasicAppliesFaucetCredit(t *testing.T) {
	addr := common.HexToAddress("0x01")
	dump := Dump{
		addr: {Balance: nil, Nonce: 2},
	}
	faucet := map[common.Address]*big.Int{addr: big.NewInt(500)}

	db := NewDatabase(dump, faucet, nil)
	info, err := db.Basic(addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), info.Balance)
	require.Equal(t, uint64(2), info.Nonce)
}

func TestMemDatabaseBasicUnknownAddressIsEmpty(t *testing.T) {
	db := NewDatabase(Dump{}, nil, nil)
	info, err := db.Basic(common.HexToAddress("0xdead"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), info.Balance)
	require.Equal(t, uint64(0), info.Nonce)
}

func TestMemDatabaseCodeByHashFindsDeployedCode(t *testing.T) {
	addr := common.HexToAddress("0x01")
	code := []byte{0x60, 0x00, 0x60, 0x00}
	hash := megatypes.NewBytecode(code).Hash()
	dump := Dump{addr: {Code: code}}

	db := NewDatabase(dump, nil, nil)
	got, err := db.CodeByHash(hash)
	require.NoError(t, err)
	require.Equal(t, code, got)
}

func TestMemDatabaseStorageReadsDumpSlots(t *testing.T) {
	addr := common.HexToAddress("0x01")
	key := common.HexToHash("0x01")
	val := common.HexToHash("0x2a")
	dump := Dump{addr: {Storage: map[common.Hash]common.Hash{key: val}}}

	db := NewDatabase(dump, nil, nil)
	got, err := db.Storage(addr, key)
	require.NoError(t, err)
	require.Equal(t, val, got)

	other, err := db.Storage(addr, common.HexToHash("0x02"))
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, other)
}

func TestMemDatabaseBlockHashAppliesOverride(t *testing.T) {
	override := common.HexToHash("0xabc")
	db := NewDatabase(Dump{}, nil, map[uint64]common.Hash{7: override})

	got, err := db.BlockHash(7)
	require.NoError(t, err)
	require.Equal(t, override, got)

	zero, err := db.BlockHash(8)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, zero)
}

func TestDumpDeltaMergesChangesOntoBase(t *testing.T) {
	addr := common.HexToAddress("0x01")
	other := common.HexToAddress("0x02")
	base := Dump{
		addr:  {Balance: (*hexutil.Big)(big.NewInt(100)), Nonce: 1},
		other: {Balance: (*hexutil.Big)(big.NewInt(7))},
	}

	delta := megatypes.NewStateDelta()
	newBalance := big.NewInt(250)
	delta.SetBalance(addr, newBalance)
	delta.SetNonce(addr, 2)
	key := common.HexToHash("0x01")
	val := common.HexToHash("0x09")
	delta.SetStorage(addr, key, val)

	out := DumpDelta(base, delta)

	require.Equal(t, newBalance, (*big.Int)(out[addr].Balance))
	require.Equal(t, uint64(2), uint64(out[addr].Nonce))
	require.Equal(t, val, out[addr].Storage[key])

	// Untouched accounts pass through unchanged.
	require.Equal(t, big.NewInt(7), (*big.Int)(out[other].Balance))
}

func TestWriteProducesLoadableDocument(t *testing.T) {
	addr := common.HexToAddress("0x01")
	dump := Dump{addr: {Balance: (*hexutil.Big)(big.NewInt(42)), Nonce: 3}}

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Write(path, dump))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), (*big.Int)(reloaded[addr].Balance))
	require.Equal(t, uint64(3), uint64(reloaded[addr].Nonce))
}
