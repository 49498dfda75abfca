package megatypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AccountDelta is the set of field-level changes committed for one address
// (spec §6 Emitted: StateDelta).
type AccountDelta struct {
	Balance *big.Int
	Nonce   *uint64
	Code    []byte
	CodeHash *common.Hash

	// Storage maps changed slots to their new value. A slot is present here
	// only if its present-value differs from its original-value at commit
	// time (spec §3 StorageSlot invariant).
	Storage map[common.Hash]common.Hash

	Destructed bool
}

// StateDelta is the per-transaction mapping address -> changes (spec §6).
type StateDelta struct {
	Accounts map[common.Address]*AccountDelta
}

// NewStateDelta returns an empty delta.
func NewStateDelta() *StateDelta {
	return &StateDelta{Accounts: make(map[common.Address]*AccountDelta)}
}

func (d *StateDelta) account(addr common.Address) *AccountDelta {
	a, ok := d.Accounts[addr]
	if !ok {
		a = &AccountDelta{Storage: make(map[common.Hash]common.Hash)}
		d.Accounts[addr] = a
	}
	return a
}

// SetStorage records a committed storage write.
func (d *StateDelta) SetStorage(addr common.Address, key, value common.Hash) {
	d.account(addr).Storage[key] = value
}

// SetBalance records a committed balance change.
func (d *StateDelta) SetBalance(addr common.Address, bal *big.Int) {
	d.account(addr).Balance = new(big.Int).Set(bal)
}

// SetNonce records a committed nonce change.
func (d *StateDelta) SetNonce(addr common.Address, nonce uint64) {
	d.account(addr).Nonce = &nonce
}

// SetCode records a committed code deployment.
func (d *StateDelta) SetCode(addr common.Address, code []byte, hash common.Hash) {
	a := d.account(addr)
	a.Code = code
	a.CodeHash = &hash
}

// Destruct marks the account as selfdestructed.
func (d *StateDelta) Destruct(addr common.Address) {
	d.account(addr).Destructed = true
}

// BlockOutput is the per-block emitted result (spec §6).
type BlockOutput struct {
	Delta    *StateDelta
	Receipts []*ExecutionResult
}
