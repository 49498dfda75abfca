package megatypes

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// VolatileAccessType names which volatile category caused a detention halt
// (spec §7).
type VolatileAccessType uint8

const (
	VolatileAccessBlockEnv VolatileAccessType = iota
	VolatileAccessOracle
	VolatileAccessBoth
)

func (v VolatileAccessType) String() string {
	switch v {
	case VolatileAccessBlockEnv:
		return "BlockEnv"
	case VolatileAccessOracle:
		return "Oracle"
	case VolatileAccessBoth:
		return "Both"
	default:
		return "Unknown"
	}
}

// HaltKind is the base-EVM family of halt reasons (spec §3 InterpreterResult,
// §7 taxonomy), independent of the mega-specific overlays.
type HaltKind uint8

const (
	HaltOutOfGas HaltKind = iota
	HaltInvalidFEOpcode
	HaltOpcodeNotFound
	HaltStackUnderflow
	HaltStackOverflow
	HaltOutOfMemory
	HaltPrecompileError
	HaltPrecompileOOG
	HaltFatalExternalError
	HaltCodeHashMismatch
)

func (h HaltKind) String() string {
	switch h {
	case HaltOutOfGas:
		return "OutOfGas"
	case HaltInvalidFEOpcode:
		return "InvalidFEOpcode"
	case HaltOpcodeNotFound:
		return "OpcodeNotFound"
	case HaltStackUnderflow:
		return "StackUnderflow"
	case HaltStackOverflow:
		return "StackOverflow"
	case HaltOutOfMemory:
		return "OutOfMemory"
	case HaltPrecompileError:
		return "PrecompileError"
	case HaltPrecompileOOG:
		return "PrecompileOOG"
	case HaltFatalExternalError:
		return "FatalExternalError"
	case HaltCodeHashMismatch:
		return "CodeHashMismatch"
	default:
		return "Unknown"
	}
}

// HaltReason is the typed, precise reason a Halt result carries (spec §4.6
// step 7, §7). At most one of the detail variants is populated, mirroring
// the design-level "discriminated union" described in the spec; a plain base
// halt carries only Kind.
type HaltReason struct {
	Kind HaltKind

	// VolatileData is set when Kind == HaltOutOfGas and the cause was a
	// volatile-data compute-gas cap (spec §4.2, §7).
VolatileData *VolatileDataHalt

	// DataLimit / KVUpdateLimit are set when the Additional-Limit Tracker
	// reported an exceed (spec §4.3, §7).
	DataLimit     *LimitHalt
	KVUpdateLimit *LimitHalt

	// CodeHash is set when Kind == HaltCodeHashMismatch.
	CodeHash *CodeHashHalt
}

// VolatileDataHalt carries the detail for a VolatileDataAccessOutOfGas halt.
type VolatileDataHalt struct {
	AccessType VolatileAccessType
	Limit      uint64
	Actual     uint64
}

// LimitHalt carries the detail for a DataLimitExceeded/KVUpdateLimitExceeded halt.
type LimitHalt struct {
	Limit uint64
	Used  uint64
}

// CodeHashHalt carries the detail for a CodeHashMismatch halt.
type CodeHashHalt struct {
	Expected, Computed common.Hash
}

func (h HaltReason) Error() string {
	switch {
	case h.VolatileData != nil:
		return fmt.Sprintf("VolatileDataAccessOutOfGas{%s, limit=%d, actual=%d}", h.VolatileData.AccessType, h.VolatileData.Limit, h.VolatileData.Actual)
	case h.DataLimit != nil:
		return fmt.Sprintf("DataLimitExceeded{limit=%d, used=%d}", h.DataLimit.Limit, h.DataLimit.Used)
	case h.KVUpdateLimit != nil:
		return fmt.Sprintf("KVUpdateLimitExceeded{limit=%d, used=%d}", h.KVUpdateLimit.Limit, h.KVUpdateLimit.Used)
	case h.CodeHash != nil:
		return fmt.Sprintf("CodeHashMismatch{expected=%s, computed=%s}", h.CodeHash.Expected, h.CodeHash.Computed)
	default:
		return h.Kind.String()
	}
}

// ExecutionResult is the per-transaction outcome (spec §6 Emitted).
type ExecutionResult struct {
	// Outcome discriminates which of the three fields below is meaningful.
	Outcome ExecutionOutcome

	Output  []byte
	GasUsed uint64

	Logs           []Log
	CreatedAddress *common.Address

	Halt *HaltReason // populated iff Outcome == OutcomeHalt
}

// ExecutionOutcome is the discriminant for ExecutionResult.
type ExecutionOutcome uint8

const (
	OutcomeSuccess ExecutionOutcome = iota
	OutcomeRevert
	OutcomeHalt
)

// Log is a minimal emitted-event record.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}
