package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
)

// journalEntry is one undoable mutation, in the classic go-ethereum
// core/state journal idiom: every mutating call pushes an entry capable of
// restoring the pre-mutation value, and RevertToSnapshot replays entries
// back to front.
type journalEntry interface {
	revert(j *Journal)
}

type (
	createAccountChange struct{ addr common.Address }
	balanceChange        struct {
		addr common.Address
		prev *big.Int
	}
	nonceChange struct {
		addr common.Address
		prev uint64
	}
	codeChange struct {
		addr         common.Address
		prevCode     []byte
		prevCodeHash common.Hash
	}
	storageChange struct {
		addr common.Address
		key  common.Hash
		prev common.Hash
	}
	storageWarmChange struct {
		addr common.Address
		key  common.Hash
	}
	addressWarmChange struct{ addr common.Address }
	refundChange      struct{ prev uint64 }
	destructChange    struct {
		addr common.Address
		prev bool
	}
	logChange struct{}
)

func (c createAccountChange) revert(j *Journal)  { delete(j.accounts, c.addr) }
func (c balanceChange) revert(j *Journal)         { j.accounts[c.addr].Balance = c.prev }
func (c nonceChange) revert(j *Journal)           { j.accounts[c.addr].Nonce = c.prev }
func (c codeChange) revert(j *Journal) {
	a := j.accounts[c.addr]
	a.Code, a.CodeHash = c.prevCode, c.prevCodeHash
}
func (c storageChange) revert(j *Journal) {
	j.accounts[c.addr].Storage[c.key].Present = c.prev
}
func (c storageWarmChange) revert(j *Journal) {
	// Warm flags are never reverted (spec §3 invariant, §5 ordering
	// guarantees); this entry type exists only for symmetry and is unused.
}
func (c addressWarmChange) revert(j *Journal) {}
func (c refundChange) revert(j *Journal)      { j.refund = c.prev }
func (c destructChange) revert(j *Journal)    { j.accounts[c.addr].Destructed = c.prev }
func (c logChange) revert(j *Journal)         { j.logs = j.logs[:len(j.logs)-1] }

// Journal is the per-transaction write-ahead log of state changes,
// checkpointable per frame, exclusively owned by the Transaction Handler
// (spec §3 Ownership).
type Journal struct {
	db       Database
	accounts map[common.Address]*Account
	refund   uint64
	logs     []megatypes.Log
	entries  []journalEntry
}

// New returns a fresh Journal reading through to db.
func New(db Database) *Journal {
	return &Journal{db: db, accounts: make(map[common.Address]*Account)}
}

func (j *Journal) materialise(addr common.Address) (*Account, error) {
	if a, ok := j.accounts[addr]; ok {
		return a, nil
	}
	info, err := j.db.Basic(addr)
	if err != nil {
		return nil, fmt.Errorf("state: basic(%s): %w", addr, err)
	}
	a := newAccount()
	if info != nil {
		a.Balance = new(big.Int).Set(info.Balance)
		a.Nonce = info.Nonce
		a.CodeHash = info.CodeHash
		a.Exists = true
		if info.CodeHash != (common.Hash{}) && info.CodeHash != megatypes.EmptyCodeHash {
			code, err := j.db.CodeByHash(info.CodeHash)
			if err != nil {
				return nil, fmt.Errorf("state: codeByHash(%s): %w", info.CodeHash, err)
			}
			a.Code = code
		}
	}
	j.accounts[addr] = a
	return a, nil
}

// Snapshot returns an id that RevertToSnapshot can later roll back to.
func (j *Journal) Snapshot() int {
	return len(j.entries)
}

// RevertToSnapshot undoes every entry recorded since id was taken.
func (j *Journal) RevertToSnapshot(id int) {
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i].revert(j)
	}
	j.entries = j.entries[:id]
}

func (j *Journal) append(e journalEntry) { j.entries = append(j.entries, e) }

// CreateAccount materialises a fresh account at addr, overwriting any
// existing (non-existent) entry, per CREATE/CALL-with-value semantics.
func (j *Journal) CreateAccount(addr common.Address) error {
	if _, err := j.materialise(addr); err != nil {
		return err
	}
	j.append(createAccountChange{addr})
	j.accounts[addr] = newAccount()
	j.accounts[addr].Exists = true
	return nil
}

// Exist reports whether addr has ever been observed to exist.
func (j *Journal) Exist(addr common.Address) (bool, error) {
	a, err := j.materialise(addr)
	if err != nil {
		return false, err
	}
	return a.Exists, nil
}

// Empty reports whether addr is "empty" per spec §3.
func (j *Journal) Empty(addr common.Address) (bool, error) {
	a, err := j.materialise(addr)
	if err != nil {
		return false, err
	}
	return a.Empty(), nil
}

// GetBalance reads the present balance.
func (j *Journal) GetBalance(addr common.Address) (*big.Int, error) {
	a, err := j.materialise(addr)
	if err != nil {
		return nil, err
	}
	return a.Balance, nil
}

// AddBalance credits amount to addr.
func (j *Journal) AddBalance(addr common.Address, amount *big.Int) error {
	a, err := j.materialise(addr)
	if err != nil {
		return err
	}
	j.append(balanceChange{addr, new(big.Int).Set(a.Balance)})
	a.Balance = new(big.Int).Add(a.Balance, amount)
	a.Exists = true
	return nil
}

// SubBalance debits amount from addr.
func (j *Journal) SubBalance(addr common.Address, amount *big.Int) error {
	a, err := j.materialise(addr)
	if err != nil {
		return err
	}
	j.append(balanceChange{addr, new(big.Int).Set(a.Balance)})
	a.Balance = new(big.Int).Sub(a.Balance, amount)
	return nil
}

// GetNonce reads the present nonce.
func (j *Journal) GetNonce(addr common.Address) (uint64, error) {
	a, err := j.materialise(addr)
	if err != nil {
		return 0, err
	}
	return a.Nonce, nil
}

// SetNonce writes the nonce.
func (j *Journal) SetNonce(addr common.Address, nonce uint64) error {
	a, err := j.materialise(addr)
	if err != nil {
		return err
	}
	j.append(nonceChange{addr, a.Nonce})
	a.Nonce = nonce
	a.Exists = true
	return nil
}

// GetCodeHash reads the present code hash.
func (j *Journal) GetCodeHash(addr common.Address) (common.Hash, error) {
	a, err := j.materialise(addr)
	if err != nil {
		return common.Hash{}, err
	}
	return a.CodeHash, nil
}

// GetCode reads the present code.
func (j *Journal) GetCode(addr common.Address) ([]byte, error) {
	a, err := j.materialise(addr)
	if err != nil {
		return nil, err
	}
	return a.Code, nil
}

// SetCode installs code (and its hash) at addr.
func (j *Journal) SetCode(addr common.Address, code []byte, hash common.Hash) error {
	a, err := j.materialise(addr)
	if err != nil {
		return err
	}
	j.append(codeChange{addr, a.Code, a.CodeHash})
	a.Code, a.CodeHash = code, hash
	a.Exists = true
	return nil
}

func (j *Journal) slot(addr common.Address, key common.Hash) (*Account, *StorageSlot, error) {
	a, err := j.materialise(addr)
	if err != nil {
		return nil, nil, err
	}
	s, ok := a.Storage[key]
	if !ok {
		v, err := j.db.Storage(addr, key)
		if err != nil {
			return nil, nil, fmt.Errorf("state: storage(%s,%s): %w", addr, key, err)
		}
		s = &StorageSlot{Original: v, Present: v}
		a.Storage[key] = s
	}
	return a, s, nil
}

// Inspect reads a storage slot without marking it warm — the cold/warm
// duality spec §9 requires so a cold-SSTORE surcharge can be decided
// without prematurely warming the slot.
func (j *Journal) Inspect(addr common.Address, key common.Hash) (common.Hash, error) {
	_, s, err := j.slot(addr, key)
	if err != nil {
		return common.Hash{}, err
	}
	return s.Present, nil
}

// Touch reads a storage slot and marks it warm.
func (j *Journal) Touch(addr common.Address, key common.Hash) (common.Hash, error) {
	_, s, err := j.slot(addr, key)
	if err != nil {
		return common.Hash{}, err
	}
	s.Warm = true
	return s.Present, nil
}

// IsWarm reports whether a storage slot is currently warm, without touching it.
func (j *Journal) IsWarm(addr common.Address, key common.Hash) (bool, error) {
	_, s, err := j.slot(addr, key)
	if err != nil {
		return false, err
	}
	return s.Warm, nil
}

// MarkWarm marks a storage slot warm without changing its value.
func (j *Journal) MarkWarm(addr common.Address, key common.Hash) error {
	_, s, err := j.slot(addr, key)
	if err != nil {
		return err
	}
	s.Warm = true
	return nil
}

// GetState reads the present value of a storage slot (marks warm, per
// standard SLOAD semantics).
func (j *Journal) GetState(addr common.Address, key common.Hash) (common.Hash, error) {
	return j.Touch(addr, key)
}

// GetCommittedState reads the pre-transaction original value.
func (j *Journal) GetCommittedState(addr common.Address, key common.Hash) (common.Hash, error) {
	_, s, err := j.slot(addr, key)
	if err != nil {
		return common.Hash{}, err
	}
	return s.Original, nil
}

// SetState writes a storage slot's present value.
func (j *Journal) SetState(addr common.Address, key, value common.Hash) error {
	_, s, err := j.slot(addr, key)
	if err != nil {
		return err
	}
	j.append(storageChange{addr, key, s.Present})
	s.Present = value
	return nil
}

// IsAddressWarm reports whether addr has been accessed before in this
// transaction, without marking it.
func (j *Journal) IsAddressWarm(addr common.Address) bool {
	a, ok := j.accounts[addr]
	return ok && a.Warm
}

// MarkAddressWarm marks addr warm (EIP-2929 access list).
func (j *Journal) MarkAddressWarm(addr common.Address) error {
	a, err := j.materialise(addr)
	if err != nil {
		return err
	}
	a.Warm = true
	return nil
}

// SelfDestruct marks addr as destructed.
func (j *Journal) SelfDestruct(addr common.Address) error {
	a, err := j.materialise(addr)
	if err != nil {
		return err
	}
	j.append(destructChange{addr, a.Destructed})
	a.Destructed = true
	return nil
}

// HasSelfDestructed reports whether addr was selfdestructed this transaction.
func (j *Journal) HasSelfDestructed(addr common.Address) bool {
	a, ok := j.accounts[addr]
	return ok && a.Destructed
}

// AddRefund increases the gas-refund counter.
func (j *Journal) AddRefund(amount uint64) {
	j.append(refundChange{j.refund})
	j.refund += amount
}

// SubRefund decreases the gas-refund counter, floored at zero.
func (j *Journal) SubRefund(amount uint64) {
	j.append(refundChange{j.refund})
	if amount > j.refund {
		j.refund = 0
		return
	}
	j.refund -= amount
}

// Refund returns the current refund counter.
func (j *Journal) Refund() uint64 { return j.refund }

// AddLog appends an emitted log record.
func (j *Journal) AddLog(log megatypes.Log) {
	j.append(logChange{})
	j.logs = append(j.logs, log)
}

// Logs returns all logs emitted so far.
func (j *Journal) Logs() []megatypes.Log { return j.logs }

// BlockHash reads through to the external database.
func (j *Journal) BlockHash(number uint64) (common.Hash, error) {
	return j.db.BlockHash(number)
}

// BuildDelta produces the committed StateDelta: every materialised account
// gets its present balance and nonce (and code, when it has any), whether or
// not they changed; storage slots are included only where the present value
// differs from the original value (spec §3 StorageSlot invariant, §6 Emitted).
func (j *Journal) BuildDelta() *megatypes.StateDelta {
	delta := megatypes.NewStateDelta()
	for addr, a := range j.accounts {
		if a.Destructed {
			delta.Destruct(addr)
		}
		delta.SetBalance(addr, a.Balance)
		delta.SetNonce(addr, a.Nonce)
		if a.Code != nil {
			delta.SetCode(addr, a.Code, a.CodeHash)
		}
		for key, slot := range a.Storage {
			if slot.Present != slot.Original {
				delta.SetStorage(addr, key, slot.Present)
			}
		}
	}
	return delta
}
