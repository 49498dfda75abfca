package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AccountInfo is the externally-supplied account snapshot (spec §6 "State
// database").
type AccountInfo struct {
	Balance  *big.Int
	Nonce    uint64
	CodeHash common.Hash
}

// Database is the external state database the engine requires no specific
// back-end implementation of (spec §6). Out of scope per spec §1; the engine
// only consumes this interface.
type Database interface {
	Basic(addr common.Address) (*AccountInfo, error)
	CodeByHash(hash common.Hash) ([]byte, error)
	Storage(addr common.Address, key common.Hash) (common.Hash, error)
	BlockHash(number uint64) (common.Hash, error)
}
