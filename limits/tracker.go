// Package limits implements the Additional-Limit Tracker (spec §4.3): the
// per-transaction counters for cumulative emitted bytes and unique key-value
// writes, with exact revert/merge bookkeeping across nested call frames, plus
// the rescued-gas protocol that turns volatile-data detention into a refund
// rather than a real tax (spec §4.3 "Rescued-gas protocol", §9).
//
// Grounded on arbitrum/multigas.MultiGas's overflow-checked counter arithmetic
// (SafeIncrement/SafeAdd) and on spec §9's re-architecture note to represent
// the frame stack explicitly rather than relying on Go-native recursion. Per
// spec §9's Open Question, this is the single authoritative implementation —
// there is no secondary limit/limit.go module.
package limits

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
)

// ExceedKind names which cap (if any) is currently exceeded.
type ExceedKind uint8

const (
	ExceedNone ExceedKind = iota
	ExceedData
	ExceedKVUpdate
	ExceedComputeGas
)

// frameEntry is one level of the explicit frame stack (spec §4.3 "two
// parallel stacks"; kept as a single stack of paired counters here, a
// structurally-equivalent arrangement left to implementer discretion by
// spec §9's frame-stack re-architecture note).
type frameEntry struct {
	target common.Address

	dataContributed uint64
	kvContributed   uint64

	// touchedTargets records addresses already charged a first-touch cost
	// within this frame, so a repeated CALL to the same target inside one
	// frame is not double-charged (spec §4.3 "target previously untouched
	// this frame").
	touchedTargets mapset.Set[common.Address]
}

func newFrameEntry(target common.Address) *frameEntry {
	return &frameEntry{target: target, touchedTargets: mapset.NewThreadUnsafeSet[common.Address]()}
}

// Tracker is the per-transaction Additional-Limit Tracker.
type Tracker struct {
	dataLimit       uint64
	kvUpdateLimit   uint64
	computeGasLimit uint64

	computeGasUsed uint64
	totalDataSize  uint64
	totalKVUpdates uint64

	rescuedGas uint64

	stack []*frameEntry
}

// New returns a fresh Tracker configured with the given ceilings.
func New(limits megaparams.TxLimits) *Tracker {
	return &Tracker{
		dataLimit:       orMax(limits.DataLimit),
		kvUpdateLimit:   orMax(limits.KVUpdateLimit),
		computeGasLimit: orMax(limits.ComputeGasLimit),
	}
}

func orMax(v uint64) uint64 {
	if v == 0 {
		return math.MaxUint64
	}
	return v
}

// PushFrame records the start of a new frame (spec §4.5 "push a frame...
// record the new frame in the tracker's frame-stacks").
func (t *Tracker) PushFrame(target common.Address) {
	t.stack = append(t.stack, newFrameEntry(target))
}

// TouchedInFrame reports whether addr has already been charged a first-touch
// cost in the current (topmost) frame, and marks it touched if not.
func (t *Tracker) TouchedInFrame(addr common.Address) (alreadyTouched bool) {
	if len(t.stack) == 0 {
		return false
	}
	top := t.stack[len(t.stack)-1]
	if top.touchedTargets.Contains(addr) {
		return true
	}
	top.touchedTargets.Add(addr)
	return false
}

// AccrueCommitted adds a non-discardable charge directly to the global
// counters, bypassing the frame stack entirely (spec §4.3 "tx start ...
// no (committed regardless of first-frame outcome)").
func (t *Tracker) AccrueCommitted(data, kv uint64) {
	t.totalDataSize += data
	t.totalKVUpdates += kv
}

// AccrueDiscardable adds a charge to both the global counters and the
// current frame's delta, so it can be unwound if that frame reverts
// (spec §4.3 "Frame discipline").
func (t *Tracker) AccrueDiscardable(data, kv uint64) {
	t.totalDataSize += data
	t.totalKVUpdates += kv
	if len(t.stack) == 0 {
		return
	}
	top := t.stack[len(t.stack)-1]
	top.dataContributed += data
	top.kvContributed += kv
}

// AccrueComputeGas adds to the monotonic per-transaction compute-gas-used
// counter. Unlike data/kv, compute gas is never unwound on revert — a
// reverted sub-call still spent real EVM gas (spec §4.3 "Compute-gas
// accounting").
func (t *Tracker) AccrueComputeGas(delta uint64) {
	t.computeGasUsed += delta
}

// LowerComputeGasLimit lowers (never raises) the compute-gas ceiling; called
// by the volatile-data wrapper after consulting the Volatile-Data Tracker
// (spec §4.4 "Volatile-data wrapper").
func (t *Tracker) LowerComputeGasLimit(cap uint64) {
	if cap < t.computeGasLimit {
		t.computeGasLimit = cap
	}
}

// PopFrameSuccess merges the topmost frame's discardable contributions into
// its parent (or discards them if this was the outermost frame), per spec
// §4.3 "If the interpreter result is success ... pop; add the delta into the
// new top".
func (t *Tracker) PopFrameSuccess() {
	if len(t.stack) == 0 {
		return
	}
	child := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	if len(t.stack) > 0 {
		parent := t.stack[len(t.stack)-1]
		parent.dataContributed += child.dataContributed
		parent.kvContributed += child.kvContributed
		for _, addr := range child.touchedTargets.ToSlice() {
			parent.touchedTargets.Add(addr)
		}
	}
}

// PopFrameDiscard undoes the topmost frame's contributions from the global
// counters (revert or OOG-like halt), per spec §4.3 "subtract the delta from
// the global counters ... preserving the parent's counters".
func (t *Tracker) PopFrameDiscard() {
	if len(t.stack) == 0 {
		return
	}
	child := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	t.totalDataSize -= child.dataContributed
	t.totalKVUpdates -= child.kvContributed
}

// Exceeded reports whether any cap is currently exceeded (spec §4.3 "Limit
// check after every event").
func (t *Tracker) Exceeded() ExceedKind {
	switch {
	case t.totalDataSize > t.dataLimit:
		return ExceedData
	case t.totalKVUpdates > t.kvUpdateLimit:
		return ExceedKVUpdate
	case t.computeGasUsed > t.computeGasLimit:
		return ExceedComputeGas
	default:
		return ExceedNone
	}
}

// RescueGas accumulates gas conservatively charged by an instruction wrapper
// that must be refunded at the transaction's top-frame return (spec §4.3
// "Rescued-gas protocol").
func (t *Tracker) RescueGas(amount uint64) {
	t.rescuedGas += amount
}

// TakeRescuedGas returns the accumulated rescued gas and resets it to zero;
// called exactly once, by the Transaction Handler's last_frame_result step.
func (t *Tracker) TakeRescuedGas() uint64 {
	v := t.rescuedGas
	t.rescuedGas = 0
	return v
}

// Totals exposes the current counter values, e.g. for building a LimitHalt
// or for block-level aggregation (spec §4.7).
func (t *Tracker) Totals() (dataUsed, kvUsed, computeGasUsed uint64) {
	return t.totalDataSize, t.totalKVUpdates, t.computeGasUsed
}

// Limits exposes the configured ceilings.
func (t *Tracker) Limits() (dataLimit, kvUpdateLimit, computeGasLimit uint64) {
	return t.dataLimit, t.kvUpdateLimit, t.computeGasLimit
}
