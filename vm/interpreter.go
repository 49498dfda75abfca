package vm

import (
	"github.com/megaeth-labs/mega-evm-sub000/limits"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
)

// MaxCallDepth bounds the explicit frame stack (spec §3 Frame "depth").
const MaxCallDepth = 1024

// Interpreter drives an explicit stack of Frames to completion instead of
// recursing through Go call frames (spec §9's re-architecture note: a
// CALL/CREATE-family opcode body emits a "new frame" action — it sets
// fr.pendingChild rather than calling back into the interpreter — and this
// loop turns that action into a stack push). Grounded on the frame-stack
// shape go-ethereum's own interpreter avoids by recursing through Go, which
// this design deliberately departs from per the spec.
type Interpreter struct {
	ctx    *Context
	frames []*Frame
}

// NewInterpreter returns an Interpreter bound to ctx's journal, trackers and
// jump table.
func NewInterpreter(ctx *Context) *Interpreter {
	return &Interpreter{ctx: ctx}
}

// Run drives root, and every descendant frame it spawns, to completion and
// returns root's terminal InterpreterResult. The caller (the Transaction
// Handler) is responsible for the top-frame rescued-gas refund via
// ctx.Limits.TakeRescuedGas() once Run returns.
func (in *Interpreter) Run(root *Frame) *InterpreterResult {
	in.frames = []*Frame{root}
	in.ctx.Limits.PushFrame(root.Target)
	snapshots := []int{in.ctx.Journal.Snapshot()}

	var rootResult *InterpreterResult

	for len(in.frames) > 0 {
		fr := in.frames[len(in.frames)-1]

		if fr.Depth >= MaxCallDepth {
			rootResult = in.popFrame(&snapshots, haltResult(megatypes.HaltOutOfMemory, fr.Gas))
			continue
		}

		if int(fr.PC) >= len(fr.Code) {
			rootResult = in.popFrame(&snapshots, &InterpreterResult{Kind: ResultStop, Gas: fr.Gas})
			continue
		}

		op := OpCode(fr.Code[fr.PC])
		entry := in.ctx.JumpTable[op]
		if entry.tag == Unhandled || entry.execute == nil {
			rootResult = in.popFrame(&snapshots, haltResult(megatypes.HaltOpcodeNotFound, fr.Gas))
			continue
		}

		fr.State = FrameRunning
		fr.pcSet = false
		preSpent := fr.Gas.Spent()
		result, err := entry.execute(in.ctx, fr)
		if result == nil && err != nil {
			// a stack error returned by the opcode body halts the frame.
			kind := megatypes.HaltStackUnderflow
			if err == ErrStackOverflow {
				kind = megatypes.HaltStackOverflow
			}
			result = haltResult(kind, fr.Gas)
		}

		// Generic compute-gas accrual (spec §4.3's "normal EVM work"): every
		// opcode's own EVM-gas cost counts, minus whatever it just forwarded
		// into a freshly spawned child frame's budget (that gas is the
		// child's to account for, opcode by opcode, as it runs). SSTORE/LOG
		// carry a storage-gas surcharge alongside their compute cost and
		// self-report the compute-only portion directly, so they are skipped
		// here.
		if entry.flags&FlagComputeSelfReport == 0 {
			delta := fr.Gas.Spent() - preSpent
			if fr.pendingChild != nil {
				delta -= fr.pendingChild.gasLimit
			}
			if delta > 0 {
				in.ctx.Limits.AccrueComputeGas(delta)
			}
		}

		volatileCapActive := false
		if in.ctx.Volatile != nil {
			if cap, ok := in.ctx.Volatile.CurrentComputeCap(); ok {
				in.ctx.Limits.LowerComputeGasLimit(cap)
				volatileCapActive = ok
			}
		}
		if result == nil && in.ctx.Limits.Exceeded() != limits.ExceedNone {
			// A halt caused by the volatile-data cap lowering compute_gas_limit
			// is a detention, not real gas exhaustion: the frame's unspent gas
			// is rescued here so the Transaction Handler's last-frame-result
			// step can refund it (spec §4.3 rescued-gas protocol). A halt
			// caused by a genuine configured per-tx compute cap behaves like
			// classical OOG and is not rescued.
			if in.ctx.Limits.Exceeded() == limits.ExceedComputeGas && volatileCapActive {
				in.ctx.Limits.RescueGas(fr.Gas.Remaining())
			}
			result = oogResult(fr.Gas)
		}

		if result != nil {
			rootResult = in.popFrame(&snapshots, result)
			continue
		}

		if fr.pendingChild != nil {
			child := in.spawnChild(fr)
			if !fr.pcSet {
				fr.PC++
			}
			if child == nil {
				// depth rejection: pendingChild is cleared and spawnChild has
				// already handed the caller a failed result through the call
				// site's resume hook.
				continue
			}
			in.frames = append(in.frames, child)
			in.ctx.Limits.PushFrame(child.Target)
			snapshots = append(snapshots, in.ctx.Journal.Snapshot())
			continue
		}

		if !fr.pcSet {
			fr.PC++
		}
	}

	return rootResult
}

// spawnChild consumes fr.pendingChild and returns the new child Frame, or nil
// if the child would reach MaxCallDepth. In that case the call site's resume
// hook runs at once with a failed result holding all the forwarded gas, so
// the caller gets a failure word and its gas back, matching standard EVM
// call-depth rejection.
func (in *Interpreter) spawnChild(fr *Frame) *Frame {
	fi := fr.pendingChild
	fr.pendingChild = nil
	if fr.Depth+1 >= MaxCallDepth {
		if fi.resume != nil {
			fres := FrameResult{Kind: FrameResultCall, Interp: &InterpreterResult{Kind: ResultRevert, Gas: NewGas(fi.gasLimit)}}
			if fi.kind == FrameCreate {
				fres.Kind = FrameResultCreate
			}
			fi.resume(fr, fres)
		}
		return nil
	}
	child := NewFrame(fi.kind, fi.target, fi.codeAddress, fi.caller, fi.value, fi.input, fi.code, fi.gasLimit, fr.Depth+1, fi.isStatic)
	child.resumeForChild = fi.resume
	return child
}

// popFrame finalises the top frame with result: merges or discards its
// Additional-Limit contributions, commits or reverts its Journal snapshot,
// and either resumes its parent (returning nil) or, if it was the root,
// returns result as the overall outcome.
func (in *Interpreter) popFrame(snapshots *[]int, result *InterpreterResult) *InterpreterResult {
	fr := in.frames[len(in.frames)-1]
	in.frames = in.frames[:len(in.frames)-1]
	fr.State = FrameReturned

	snap := (*snapshots)[len(*snapshots)-1]
	*snapshots = (*snapshots)[:len(*snapshots)-1]

	if result.Succeeded() {
		in.ctx.Limits.PopFrameSuccess()
	} else {
		in.ctx.Journal.RevertToSnapshot(snap)
		in.ctx.Limits.PopFrameDiscard()
	}

	if len(in.frames) == 0 {
		return result
	}

	parent := in.frames[len(in.frames)-1]
	fres := FrameResult{Kind: FrameResultCall, Interp: result}
	if fr.Kind == FrameCreate {
		fres.Kind = FrameResultCreate
		addr := fr.Target
		fres.CreatedAddress = &addr
	}
	if fr.resumeForChild != nil {
		fr.resumeForChild(parent, fres)
	}
	return nil
}
