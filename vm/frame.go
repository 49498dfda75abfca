package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
)

// FrameKind discriminates a frame's origin (spec §3 Frame: "input kind ∈
// {Call, Create, Transient}").
type FrameKind uint8

const (
	FrameCall FrameKind = iota
	FrameCreate
	FrameTransient
)

// FrameState is a frame's lifecycle stage (spec §4.5: "Initialised -> Running
// -> Returned").
type FrameState uint8

const (
	FrameInitialised FrameState = iota
	FrameRunning
	FrameReturned
)

// ResultKind is the discriminant of an InterpreterResult (spec §3).
type ResultKind uint8

const (
	ResultReturn ResultKind = iota
	ResultStop
	ResultRevert
	ResultHalt
)

// InterpreterResult is what a frame's interpreter loop produces when it stops
// running (spec §3).
type InterpreterResult struct {
	Kind   ResultKind
	Output []byte
	Gas    *Gas

	// Halt carries the typed reason when Kind == ResultHalt (spec §7).
	Halt *megatypes.HaltReason
}

// Succeeded reports whether this result represents Return or Stop.
func (r *InterpreterResult) Succeeded() bool {
	return r.Kind == ResultReturn || r.Kind == ResultStop
}

// FrameResultKind discriminates FrameResult (spec §3 "FrameResult").
type FrameResultKind uint8

const (
	FrameResultCall FrameResultKind = iota
	FrameResultCreate
)

// FrameResult is the outcome a child frame reports back to its parent
// (spec §3: "discriminated union {CallOutcome, CreateOutcome}").
type FrameResult struct {
	Kind           FrameResultKind
	Interp         *InterpreterResult
	CreatedAddress *common.Address
}

// Frame is one activation of the interpreter (spec §3, §4.5).
type Frame struct {
	Kind        FrameKind
	Target      common.Address
	CodeAddress common.Address
	Caller      common.Address
	Value       *big.Int
	Input       []byte
	Code        []byte

	Gas    *Gas
	Memory *Memory
	Stack  *Stack
	PC     uint64

	// pcSet, when true, tells the interpreter loop this step already placed
	// PC exactly where execution should resume (JUMP/JUMPI) and it must not
	// auto-advance by one.
	pcSet bool

	Depth    int
	IsStatic bool

	// ReturnData is the most recent child call's output, exposed to
	// RETURNDATASIZE/RETURNDATACOPY.
	ReturnData []byte

	State FrameState

	// pendingChild is set by a CALL/CREATE-family opcode body; the owning
	// Interpreter loop consumes it to push a child frame instead of
	// recursing (spec §9 "Frame stack").
	pendingChild *frameInit

	// resumeForChild, set on a frame at spawn time from its frameInit, is
	// invoked with (parent, result) once this frame finishes and the
	// Interpreter pops it back into its parent — the parent's PUSH/POP/return
	// handling for this specific call/create site.
	resumeForChild func(parent *Frame, result FrameResult)
}

// frameInit is the Frame Engine's "new frame" action (spec §4.5 "emit a
// 'new frame' action").
type frameInit struct {
	kind        FrameKind
	target      common.Address
	codeAddress common.Address
	caller      common.Address
	value       *big.Int
	input       []byte
	code        []byte
	gasLimit    uint64
	isStatic    bool

	// retOffset/retSize describe where the child's return data should be
	// copied into the parent's memory once it finishes.
	retOffset, retSize uint64

	resume func(fr *Frame, result FrameResult)
}

// NewFrame constructs a fresh top-level or child frame ready to run.
func NewFrame(kind FrameKind, target, codeAddress, caller common.Address, value *big.Int, input, code []byte, gasLimit uint64, depth int, isStatic bool) *Frame {
	return &Frame{
		Kind:        kind,
		Target:      target,
		CodeAddress: codeAddress,
		Caller:      caller,
		Value:       value,
		Input:       input,
		Code:        code,
		Gas:         NewGas(gasLimit),
		Memory:      NewMemory(),
		Stack:       NewStack(),
		Depth:       depth,
		IsStatic:    isStatic,
		State:       FrameInitialised,
	}
}
