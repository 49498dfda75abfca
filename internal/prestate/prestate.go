// Package prestate implements the persisted-state dump format (spec §6):
// a JSON object mapping hex-address to {balance, nonce, code, codeHash,
// storage}, with numeric fields in "quantity" hex form. Used both to prime a
// Journal's Database from a fixture file and to dump a post-execution
// StateDelta for debugging.
//
// Grounded on core/types/transaction_marshalling.go's txJSON pattern of a
// dedicated JSON-shadow struct built from hexutil.Big/hexutil.Uint64/
// hexutil.Bytes fields.
package prestate

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/megaeth-labs/mega-evm-sub000/state"
)

// accountJSON is the wire shape of one account entry in a prestate dump.
type accountJSON struct {
	Balance  *hexutil.Big                `json:"balance"`
	Nonce    hexutil.Uint64              `json:"nonce"`
	Code     hexutil.Bytes               `json:"code,omitempty"`
	CodeHash *common.Hash                `json:"codeHash,omitempty"`
	Storage  map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// Dump is the top-level persisted-state document: hex-address -> account.
type Dump map[common.Address]accountJSON

// Load reads a prestate JSON document from path.
func Load(path string) (Dump, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prestate: read %s: %w", path, err)
	}
	var d Dump
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("prestate: decode %s: %w", path, err)
	}
	return d, nil
}

// memDatabase is a state.Database backed entirely by an in-memory Dump, used
// by the CLI to prime a fresh Journal from a prestate fixture (spec §6
// "State database (consumed)").
type memDatabase struct {
	dump Dump

	faucet map[common.Address]*big.Int
	blockHashes map[uint64]common.Hash
}

// NewDatabase wraps dump as a state.Database, applying faucet credits and
// block-hash overrides supplied by the CLI's flag surface (spec §6).
func NewDatabase(dump Dump, faucet map[common.Address]*big.Int, blockHashes map[uint64]common.Hash) state.Database {
	return &memDatabase{dump: dump, faucet: faucet, blockHashes: blockHashes}
}

func (m *memDatabase) Basic(addr common.Address) (*state.AccountInfo, error) {
	a, ok := m.dump[addr]
	balance := new(big.Int)
	var nonce uint64
	var codeHash common.Hash
	if ok {
		if a.Balance != nil {
			balance = (*big.Int)(a.Balance)
		}
		nonce = uint64(a.Nonce)
		if a.CodeHash != nil {
			codeHash = *a.CodeHash
		} else if len(a.Code) > 0 {
			codeHash = megatypes.NewBytecode(a.Code).Hash()
		}
	}
	if credit, ok := m.faucet[addr]; ok {
		balance = new(big.Int).Add(balance, credit)
	}
	return &state.AccountInfo{Balance: balance, Nonce: nonce, CodeHash: codeHash}, nil
}

func (m *memDatabase) CodeByHash(hash common.Hash) ([]byte, error) {
	for _, a := range m.dump {
		if len(a.Code) > 0 && megatypes.NewBytecode(a.Code).Hash() == hash {
			return a.Code, nil
		}
		if a.CodeHash != nil && *a.CodeHash == hash {
			return a.Code, nil
		}
	}
	return nil, nil
}

func (m *memDatabase) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	a, ok := m.dump[addr]
	if !ok || a.Storage == nil {
		return common.Hash{}, nil
	}
	return a.Storage[key], nil
}

func (m *memDatabase) BlockHash(number uint64) (common.Hash, error) {
	if h, ok := m.blockHashes[number]; ok {
		return h, nil
	}
	return common.Hash{}, nil
}

// DumpDelta renders a committed StateDelta in the persisted-state dump
// format, merging on top of the original prestate.
func DumpDelta(base Dump, delta *megatypes.StateDelta) Dump {
	out := make(Dump, len(base)+len(delta.Accounts))
	for addr, a := range base {
		out[addr] = a
	}
	for addr, d := range delta.Accounts {
		entry := out[addr]
		if d.Balance != nil {
			entry.Balance = (*hexutil.Big)(d.Balance)
		}
		if d.Nonce != nil {
			entry.Nonce = hexutil.Uint64(*d.Nonce)
		}
		if d.Code != nil {
			entry.Code = d.Code
		}
		if d.CodeHash != nil {
			entry.CodeHash = d.CodeHash
		}
		if len(d.Storage) > 0 {
			if entry.Storage == nil {
				entry.Storage = make(map[common.Hash]common.Hash, len(d.Storage))
			}
			for k, v := range d.Storage {
				entry.Storage[k] = v
			}
		}
		out[addr] = entry
	}
	return out
}

// Write serializes dump as indented JSON to path.
func Write(path string, dump Dump) error {
	raw, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("prestate: encode: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("prestate: write %s: %w", path, err)
	}
	return nil
}
