// Package state implements the Journalled State Adapter (spec §4's leaf
// component): read-through access to account/storage/code with a cold/warm
// flag kept separate from the journal's own warm-marking, plus per-frame
// checkpoint/revert bookkeeping.
//
// Grounded on the general go-ethereum core/state StateDB/journal
// checkpoint-and-revert idiom (the same upstream project this module
// otherwise depends on for common.Address/common.Hash/crypto), adapted to
// the narrower in-memory, externally-supplied-database shape spec §6
// describes.
package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
)

// StorageSlot is a single storage key's journalled state (spec §3).
type StorageSlot struct {
	// Original is the pre-transaction value; set on first observation and
	// never mutated afterward (spec §3 invariant).
	Original common.Hash
	// Present is the in-flight value.
	Present common.Hash
	// Warm is monotonic cold->warm within the transaction (EIP-2929); a
	// revert of the observing sub-frame does not clear it (spec §3).
	Warm bool
}

// Account is the per-address journalled state (spec §3).
type Account struct {
	Balance  *big.Int
	Nonce    uint64
	CodeHash common.Hash
	Code     []byte

	Storage map[common.Hash]*StorageSlot

	Warm   bool
	Exists bool

	Destructed bool
}

func newAccount() *Account {
	return &Account{
		Balance: new(big.Int),
		Storage: make(map[common.Hash]*StorageSlot),
	}
}

// Empty reports whether the account is "empty": balance=0, nonce=0,
// code-hash = empty-code-hash (spec §3).
func (a *Account) Empty() bool {
	return a.Balance.Sign() == 0 && a.Nonce == 0 && (a.CodeHash == common.Hash{} || a.CodeHash == megatypes.EmptyCodeHash)
}

func (a *Account) clone() *Account {
	c := &Account{
		Balance:    new(big.Int).Set(a.Balance),
		Nonce:      a.Nonce,
		CodeHash:   a.CodeHash,
		Code:       a.Code,
		Warm:       a.Warm,
		Exists:     a.Exists,
		Destructed: a.Destructed,
		Storage:    make(map[common.Hash]*StorageSlot, len(a.Storage)),
	}
	for k, v := range a.Storage {
		slot := *v
		c.Storage[k] = &slot
	}
	return c
}
