package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	accounts map[common.Address]*AccountInfo
	storage  map[common.Address]map[common.Hash]common.Hash
	code     map[common.Hash][]byte
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		accounts: make(map[common.Address]*AccountInfo),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		code:     make(map[common.Hash][]byte),
	}
}

func (f *fakeDB) Basic(addr common.Address) (*AccountInfo, error) {
	if a, ok := f.accounts[addr]; ok {
		return a, nil
	}
	return &AccountInfo{Balance: new(big.Int)}, nil
}

func (f *fakeDB) CodeByHash(hash common.Hash) ([]byte, error) { return f.code[hash], nil }

func (f *fakeDB) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	if m, ok := f.storage[addr]; ok {
		return m[key], nil
	}
	return common.Hash{}, nil
}

func (f *fakeDB) BlockHash(number uint64) (common.Hash, error) {
	return common.BigToHash(new(big.Int).SetUint64(number)), nil
}

func TestRevertToSnapshotUndoesBalanceAndStorage(t *testing.T) {
	db := newFakeDB()
	j := New(db)

	addr := common.HexToAddress("0xaa")
	key := common.HexToHash("0x01")

	snap := j.Snapshot()

	require.NoError(t, j.AddBalance(addr, big.NewInt(100)))
	require.NoError(t, j.SetState(addr, key, common.HexToHash("0x42")))

	bal, err := j.GetBalance(addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), bal)

	j.RevertToSnapshot(snap)

	bal, err = j.GetBalance(addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), bal)

	v, err := j.Inspect(addr, key)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, v)
}

func TestInspectDoesNotWarmSlotButTouchDoes(t *testing.T) {
	db := newFakeDB()
	j := New(db)

	addr := common.HexToAddress("0xbb")
	key := common.HexToHash("0x02")

	_, err := j.Inspect(addr, key)
	require.NoError(t, err)
	warm, err := j.IsWarm(addr, key)
	require.NoError(t, err)
	require.False(t, warm, "Inspect must not mark a slot warm")

	_, err = j.Touch(addr, key)
	require.NoError(t, err)
	warm, err = j.IsWarm(addr, key)
	require.NoError(t, err)
	require.True(t, warm, "Touch must mark a slot warm")
}

func TestNestedSnapshotsRevertIndependently(t *testing.T) {
	db := newFakeDB()
	j := New(db)
	addr := common.HexToAddress("0xcc")

	outer := j.Snapshot()
	require.NoError(t, j.SetNonce(addr, 1))

	inner := j.Snapshot()
	require.NoError(t, j.SetNonce(addr, 2))
	j.RevertToSnapshot(inner)

	nonce, err := j.GetNonce(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce, "reverting the inner snapshot should restore the outer mutation")

	j.RevertToSnapshot(outer)
	nonce, err = j.GetNonce(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)
}

func TestBuildDeltaOnlyIncludesChangedStorage(t *testing.T) {
	db := newFakeDB()
	addr := common.HexToAddress("0xdd")
	key := common.HexToHash("0x03")
	db.storage[addr] = map[common.Hash]common.Hash{key: common.HexToHash("0x07")}

	j := New(db)
	_, err := j.Touch(addr, key) // read-only touch, value unchanged
	require.NoError(t, err)
	require.NoError(t, j.AddBalance(addr, big.NewInt(5)))

	delta := j.BuildDelta()
	acc := delta.Accounts[addr]
	require.NotNil(t, acc)
	require.Equal(t, big.NewInt(5), acc.Balance)
	require.Empty(t, acc.Storage, "an untouched-value slot must not appear in the delta")
}

func TestRefundCounterFlooredAtZero(t *testing.T) {
	db := newFakeDB()
	j := New(db)
	j.AddRefund(10)
	j.SubRefund(100)
	require.Equal(t, uint64(0), j.Refund())
}
