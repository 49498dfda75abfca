package megatypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallKind discriminates a transaction's top-level frame kind (spec §3 Transaction).
type CallKind uint8

const (
	CallKindCall CallKind = iota
	CallKindCreate
)

// AccessTuple mirrors EIP-2930's (address, storage keys) access-list entry.
type AccessTuple struct {
	Address     common.Address
	StorageKeys []common.Hash
}

// AccessList is the EIP-2930/1559 access list.
type AccessList []AccessTuple

// StorageKeyCount returns the total number of storage keys across all tuples,
// used for intrinsic-gas and Additional-Limit tx-start accounting.
func (al AccessList) StorageKeyCount() int {
	n := 0
	for _, t := range al {
		n += len(t.StorageKeys)
	}
	return n
}

// AuthorizationTuple mirrors an EIP-7702 authority-list entry.
type AuthorizationTuple struct {
	ChainID common.Hash
	Address common.Address
	Nonce   uint64
	V       uint8
	R, S    *big.Int
}

// DepositFields carries the deposit-like metadata a mega-system transaction
// acquires, grounded on the teacher's core/types/deposit.go DepositTx — an
// explicit optional field rather than a mutated source-hash (spec §9).
type DepositFields struct {
	// SourceHash is informational: a transaction is deposit-like whenever its
	// Deposit field is non-nil (IsDeposit), whatever this hash's value.
	SourceHash common.Hash
}

// Transaction is the input to the engine (spec §3).
type Transaction struct {
	Caller common.Address
	Kind   CallKind
	Target common.Address // valid when Kind == CallKindCall

	Value    *big.Int
	Input    []byte
	GasLimit uint64
	GasPrice *big.Int

	// PriorityFee is the EIP-1559 max priority fee. The Transaction Handler
	// does not read it: fees are always charged at GasPrice per unit of gas.
	PriorityFee *big.Int

	AccessList    AccessList
	AuthorityList []AuthorizationTuple

	ChainID *big.Int
	TxType  uint8

	Nonce uint64

	Deposit *DepositFields

	// EncodedLength is the EIP-2718 encoded byte length, supplied by the
	// caller (the codec that produces it is out of scope). The Block Executor
	// does not read it: it meters tx size from len(RecoveredTx.Raw).
	EncodedLength uint64
}

// IsDeposit reports whether this transaction should bypass signature/nonce/fee
// handling, per spec §4.6 step 1.
func (tx *Transaction) IsDeposit() bool {
	return tx.Deposit != nil
}

// IsCreate reports whether this transaction deploys a new contract.
func (tx *Transaction) IsCreate() bool {
	return tx.Kind == CallKindCreate
}
