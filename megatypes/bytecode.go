package megatypes

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Bytecode is an immutable byte sequence plus its hash, computed lazily the
// way vm.codeAndHash does in the teacher's core/vm/evm.go.
type Bytecode struct {
	code []byte
	hash common.Hash
}

// NewBytecode wraps raw code without pre-computing its hash.
func NewBytecode(code []byte) *Bytecode {
	return &Bytecode{code: code}
}

// Code returns the underlying bytes.
func (b *Bytecode) Code() []byte { return b.code }

// Len returns the byte length of the code.
func (b *Bytecode) Len() int { return len(b.code) }

// Hash returns the Keccak256 hash of the code, computing and caching it on
// first access.
func (b *Bytecode) Hash() common.Hash {
	if b.hash == (common.Hash{}) {
		b.hash = crypto.Keccak256Hash(b.code)
	}
	return b.hash
}

// EmptyCodeHash is the hash of the zero-length bytecode, used to decide
// whether an address is "empty" (spec §3).
var EmptyCodeHash = crypto.Keccak256Hash(nil)
