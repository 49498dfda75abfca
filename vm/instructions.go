package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/limits"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
)

func haltResult(kind megatypes.HaltKind, gas *Gas) *InterpreterResult {
	return &InterpreterResult{Kind: ResultHalt, Gas: gas, Halt: &megatypes.HaltReason{Kind: kind}}
}

func oogResult(gas *Gas) *InterpreterResult {
	gas.spentAll()
	gas.Refund = 0
	return haltResult(megatypes.HaltOutOfGas, gas)
}

func toAddress(u *uint256.Int) common.Address {
	var b [32]byte = u.Bytes32()
	var a common.Address
	copy(a[:], b[12:])
	return a
}

func addressToWord(a common.Address) uint256.Int {
	var u uint256.Int
	u.SetBytes(a[:])
	return u
}

func hashToWord(h common.Hash) uint256.Int {
	var u uint256.Int
	u.SetBytes(h[:])
	return u
}

func wordToHash(u *uint256.Int) common.Hash {
	return common.Hash(u.Bytes32())
}

// memArgs pops (offset, size) from the stack top-down, resizing memory and
// charging its expansion cost against fr.Gas. Returns ok=false on OOG.
func memArgs(fr *Frame) (offset, size uint64, ok bool) {
	off, _ := fr.Stack.Pop()
	sz, _ := fr.Stack.Pop()
	offset, size = off.Uint64(), sz.Uint64()
	newLen, cost := memoryExpansionCost(fr.Memory.Len(), offset, size)
	if !fr.Gas.Consume(cost) {
		return 0, 0, false
	}
	fr.Memory.Resize(newLen)
	return offset, size, true
}

// --- arithmetic & comparison -------------------------------------------------

func opStop(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return &InterpreterResult{Kind: ResultStop, Gas: fr.Gas}, nil
}

func opAdd(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.Add(a, &b)
	return nil, nil
}

func opMul(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.Mul(a, &b)
	return nil, nil
}

func opSub(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.Sub(a, &b)
	return nil, nil
}

func opDiv(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.Div(a, &b)
	return nil, nil
}

func opMod(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.Mod(a, &b)
	return nil, nil
}

func opLt(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	if a.Lt(&b) {
		a.SetOne()
	} else {
		a.Clear()
	}
	return nil, nil
}

func opGt(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	if a.Gt(&b) {
		a.SetOne()
	} else {
		a.Clear()
	}
	return nil, nil
}

func opEq(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	if a.Eq(&b) {
		a.SetOne()
	} else {
		a.Clear()
	}
	return nil, nil
}

func opIszero(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	a, _ := fr.Stack.Peek(0)
	if a.IsZero() {
		a.SetOne()
	} else {
		a.Clear()
	}
	return nil, nil
}

func opAnd(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.And(a, &b)
	return nil, nil
}

func opOr(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.Or(a, &b)
	return nil, nil
}

func opXor(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	b, _ := fr.Stack.Pop()
	a, _ := fr.Stack.Peek(0)
	a.Xor(a, &b)
	return nil, nil
}

func opNot(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	a, _ := fr.Stack.Peek(0)
	a.Not(a)
	return nil, nil
}

func opSha3(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	offset, size, ok := memArgs(fr)
	if !ok {
		return oogResult(fr.Gas), nil
	}
	if !fr.Gas.Consume(keccak256Gas + keccak256WordGas*memoryWordSize(size)) {
		return oogResult(fr.Gas), nil
	}
	data := fr.Memory.GetPtr(offset, size)
	h := keccak256(data)
	w := hashToWord(h)
	if err := fr.Stack.Push(&w); err != nil {
		return haltResult(megatypes.HaltStackOverflow, fr.Gas), nil
	}
	return nil, nil
}

// --- environment / context ---------------------------------------------------

func opAddress(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := addressToWord(fr.Target)
	return nil, pushOrOverflow(fr, &w)
}

func opCaller(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := addressToWord(fr.Caller)
	return nil, pushOrOverflow(fr, &w)
}

func opCallValue(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	var w uint256.Int
	if fr.Value != nil {
		w.SetFromBig(fr.Value)
	}
	return nil, pushOrOverflow(fr, &w)
}

func opCalldataLoad(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	off, _ := fr.Stack.Pop()
	offset := off.Uint64()
	var buf [32]byte
	if offset < uint64(len(fr.Input)) {
		copy(buf[:], fr.Input[offset:])
	}
	var w uint256.Int
	w.SetBytes(buf[:])
	return nil, pushOrOverflow(fr, &w)
}

func opCalldataSize(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := uint256.NewInt(uint64(len(fr.Input)))
	return nil, pushOrOverflow(fr, w)
}

func opCalldataCopy(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	destOff, _ := fr.Stack.Pop()
	dataOff, _ := fr.Stack.Pop()
	sz, _ := fr.Stack.Pop()
	size := sz.Uint64()
	newLen, memCost := memoryExpansionCost(fr.Memory.Len(), destOff.Uint64(), size)
	if !fr.Gas.Consume(gasFastestStep + memCost + dynamicCopyGas(size)) {
		return oogResult(fr.Gas), nil
	}
	fr.Memory.Resize(newLen)
	data := sliceWithZeroPad(fr.Input, dataOff.Uint64(), size)
	fr.Memory.Set(destOff.Uint64(), size, data)
	return nil, nil
}

func opPop(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	if _, err := fr.Stack.Pop(); err != nil {
		return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
	}
	return nil, nil
}

func opMload(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	off, _ := fr.Stack.Pop()
	offset := off.Uint64()
	newLen, cost := memoryExpansionCost(fr.Memory.Len(), offset, 32)
	if !fr.Gas.Consume(gasFastestStep + cost) {
		return oogResult(fr.Gas), nil
	}
	fr.Memory.Resize(newLen)
	var w uint256.Int
	w.SetBytes(fr.Memory.GetPtr(offset, 32))
	return nil, pushOrOverflow(fr, &w)
}

func opMstore(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	off, _ := fr.Stack.Pop()
	val, _ := fr.Stack.Pop()
	offset := off.Uint64()
	newLen, cost := memoryExpansionCost(fr.Memory.Len(), offset, 32)
	if !fr.Gas.Consume(gasFastestStep + cost) {
		return oogResult(fr.Gas), nil
	}
	fr.Memory.Resize(newLen)
	fr.Memory.Set32(offset, val.Bytes32())
	return nil, nil
}

func opMstore8(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	off, _ := fr.Stack.Pop()
	val, _ := fr.Stack.Pop()
	offset := off.Uint64()
	newLen, cost := memoryExpansionCost(fr.Memory.Len(), offset, 1)
	if !fr.Gas.Consume(gasFastestStep + cost) {
		return oogResult(fr.Gas), nil
	}
	fr.Memory.Resize(newLen)
	fr.Memory.Set(offset, 1, []byte{byte(val.Uint64())})
	return nil, nil
}

func opSload(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	key, _ := fr.Stack.Pop()
	h := wordToHash(&key)
	warm, err := ctx.Journal.IsWarm(fr.Target, h)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	cost := warmStorageReadCost
	if !warm {
		cost = coldSloadCost
	}
	if !fr.Gas.Consume(cost) {
		return oogResult(fr.Gas), nil
	}
	v, err := ctx.Journal.Touch(fr.Target, h)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	w := hashToWord(v)
	return nil, pushOrOverflow(fr, &w)
}

// opSloadMega wraps baseline SLOAD with the Additional-Limit Tracker's
// cold-SLOAD data-size charge (spec §4.3's table: 212 bytes, non-discardable,
// on every cold SLOAD). Charged whether or not the slot was already warm from
// an Inspect-only read, matching opSload's own warm/cold gas split.
func opSloadMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	key, _ := fr.Stack.Pop()
	h := wordToHash(&key)
	warm, err := ctx.Journal.IsWarm(fr.Target, h)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	cost := warmStorageReadCost
	if !warm {
		cost = coldSloadCost
	}
	if !fr.Gas.Consume(cost) {
		return oogResult(fr.Gas), nil
	}
	if !warm {
		data, kv := limits.ColdSLoadCost()
		ctx.Limits.AccrueCommitted(data, kv)
	}
	v, err := ctx.Journal.Touch(fr.Target, h)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	w := hashToWord(v)
	return nil, pushOrOverflow(fr, &w)
}

// opJump/opJumpi/opPc/opMsize/opGas/opJumpdest - control flow & introspection.

func opJump(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasMidStep) {
		return oogResult(fr.Gas), nil
	}
	dest, _ := fr.Stack.Pop()
	pc := dest.Uint64()
	if pc >= uint64(len(fr.Code)) || OpCode(fr.Code[pc]) != JUMPDEST {
		return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
	}
	fr.PC = pc
	fr.pcSet = true
	return nil, nil
}

func opJumpi(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasSlowStep) {
		return oogResult(fr.Gas), nil
	}
	dest, _ := fr.Stack.Pop()
	cond, _ := fr.Stack.Pop()
	if cond.IsZero() {
		return nil, nil
	}
	pc := dest.Uint64()
	if pc >= uint64(len(fr.Code)) || OpCode(fr.Code[pc]) != JUMPDEST {
		return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
	}
	fr.PC = pc
	fr.pcSet = true
	return nil, nil
}

func opReturnDataSize(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := uint256.NewInt(uint64(len(fr.ReturnData)))
	return nil, pushOrOverflow(fr, w)
}

func opReturnDataCopy(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	destOff, _ := fr.Stack.Pop()
	dataOff, _ := fr.Stack.Pop()
	sz, _ := fr.Stack.Pop()
	size := sz.Uint64()
	if dataOff.Uint64()+size > uint64(len(fr.ReturnData)) {
		return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
	}
	newLen, memCost := memoryExpansionCost(fr.Memory.Len(), destOff.Uint64(), size)
	if !fr.Gas.Consume(memCost + dynamicCopyGas(size)) {
		return oogResult(fr.Gas), nil
	}
	fr.Memory.Resize(newLen)
	fr.Memory.Set(destOff.Uint64(), size, fr.ReturnData[dataOff.Uint64():dataOff.Uint64()+size])
	return nil, nil
}

func opPc(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := uint256.NewInt(fr.PC)
	return nil, pushOrOverflow(fr, w)
}

func opMsize(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := uint256.NewInt(uint64(fr.Memory.Len()))
	return nil, pushOrOverflow(fr, w)
}

func opGas(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := uint256.NewInt(fr.Gas.Remaining())
	return nil, pushOrOverflow(fr, w)
}

func opJumpdest(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(jumpdestGas) {
		return oogResult(fr.Gas), nil
	}
	return nil, nil
}

func opInvalid(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
}

func opDisabled(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
}

func opReturn(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	offset, size, ok := memArgs(fr)
	if !ok {
		return oogResult(fr.Gas), nil
	}
	return &InterpreterResult{Kind: ResultReturn, Output: fr.Memory.GetCopy(offset, size), Gas: fr.Gas}, nil
}

func opRevert(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	offset, size, ok := memArgs(fr)
	if !ok {
		return oogResult(fr.Gas), nil
	}
	return &InterpreterResult{Kind: ResultRevert, Output: fr.Memory.GetCopy(offset, size), Gas: fr.Gas}, nil
}

func pushOrOverflow(fr *Frame, w *uint256.Int) error {
	if err := fr.Stack.Push(w); err != nil {
		return err
	}
	return nil
}

func sliceWithZeroPad(src []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(src)) {
		return out
	}
	end := offset + size
	if end > uint64(len(src)) {
		end = uint64(len(src))
	}
	copy(out, src[offset:end])
	return out
}

func keccak256(data []byte) common.Hash {
	return megatypes.NewBytecode(data).Hash()
}

// generic PUSH/DUP/SWAP builders, used by builtinExecutors to populate
// PUSH1..PUSH32, DUP1..DUP16, SWAP1..SWAP16.

func makePush(n int) executionFunc {
	return func(ctx *Context, fr *Frame) (*InterpreterResult, error) {
		if !fr.Gas.Consume(gasFastestStep) {
			return oogResult(fr.Gas), nil
		}
		start := fr.PC + 1
		end := start + uint64(n)
		var buf [32]byte
		if start < uint64(len(fr.Code)) {
			codeEnd := end
			if codeEnd > uint64(len(fr.Code)) {
				codeEnd = uint64(len(fr.Code))
			}
			copy(buf[32-n:], fr.Code[start:codeEnd])
		}
		var w uint256.Int
		w.SetBytes(buf[:])
		if err := fr.Stack.Push(&w); err != nil {
			return haltResult(megatypes.HaltStackOverflow, fr.Gas), nil
		}
		fr.PC = end - 1
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(ctx *Context, fr *Frame) (*InterpreterResult, error) {
		if !fr.Gas.Consume(gasFastestStep) {
			return oogResult(fr.Gas), nil
		}
		if err := fr.Stack.Dup(n); err != nil {
			return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
		}
		return nil, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(ctx *Context, fr *Frame) (*InterpreterResult, error) {
		if !fr.Gas.Consume(gasFastestStep) {
			return oogResult(fr.Gas), nil
		}
		if err := fr.Stack.Swap(n); err != nil {
			return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
		}
		return nil, nil
	}
}

// builtinExecutors returns the baseline (Equivalence) opcode set.
func builtinExecutors() map[OpCode]executionFunc {
	m := map[OpCode]executionFunc{
		STOP: opStop, ADD: opAdd, MUL: opMul, SUB: opSub, DIV: opDiv, MOD: opMod,
		LT: opLt, GT: opGt, EQ: opEq, ISZERO: opIszero, AND: opAnd, OR: opOr, XOR: opXor, NOT: opNot,
		SHA3: opSha3,
		ADDRESS: opAddress, CALLER: opCaller, CALLVALUE: opCallValue,
		CALLDATALOAD: opCalldataLoad, CALLDATASIZE: opCalldataSize, CALLDATACOPY: opCalldataCopy,
		POP: opPop, MLOAD: opMload, MSTORE: opMstore, MSTORE8: opMstore8,
		RETURNDATASIZE: opReturnDataSize, RETURNDATACOPY: opReturnDataCopy,
		SLOAD: opSload, SSTORE: opSstoreBaseline,
		JUMP: opJump, JUMPI: opJumpi, PC: opPc, MSIZE: opMsize, GAS: opGas, JUMPDEST: opJumpdest,
		TIMESTAMP: opTimestamp, NUMBER: opNumber, COINBASE: opCoinbase, DIFFICULTY: opDifficulty,
		GASLIMIT: opGasLimit, BASEFEE: opBaseFee, BLOCKHASH: opBlockhash,
		BLOBBASEFEE: opBlobBaseFee, BLOBHASH: opBlobHash,
		BALANCE: opBalance, EXTCODESIZE: opExtcodesize, EXTCODECOPY: opExtcodecopy, EXTCODEHASH: opExtcodehash,
		RETURN: opReturn, REVERT: opRevert, INVALID: opInvalid,
		CREATE: opCreateBaseline, CREATE2: opCreate2Baseline,
		CALL: opCallBaseline, CALLCODE: opCallCodeBaseline,
		DELEGATECALL: opDelegateCallBaseline, STATICCALL: opStaticCallBaseline,
		SELFDESTRUCT: opSelfdestructBaseline,
	}
	for topics := 0; topics <= 4; topics++ {
		m[LOG0+OpCode(topics)] = makeLog(topics)
	}
	for n := 1; n <= 32; n++ {
		m[PUSH1+OpCode(n-1)] = makePush(n)
	}
	for n := 1; n <= 16; n++ {
		m[DUP1+OpCode(n-1)] = makeDup(n)
	}
	for n := 1; n <= 16; n++ {
		m[SWAP1+OpCode(n-1)] = makeSwap(n)
	}
	return m
}

// --- volatile-data detection wrappers (spec §4.2, §4.4) ---------------------

func volatileDetectExecutors() map[OpCode]executionFunc {
	wrapBlockEnv := func(base executionFunc) executionFunc {
		return func(ctx *Context, fr *Frame) (*InterpreterResult, error) {
			r, err := base(ctx, fr)
			ctx.Volatile.MarkBlockEnv()
			return r, err
		}
	}
	wrapAccountInspect := func(base executionFunc) executionFunc {
		return func(ctx *Context, fr *Frame) (*InterpreterResult, error) {
			addrWord, err := fr.Stack.Peek(0)
			var target common.Address
			if err == nil {
				target = toAddress(addrWord)
			}
			r, err2 := base(ctx, fr)
			ctx.Volatile.MaybeMarkAccountInspect(target)
			return r, err2
		}
	}
	return map[OpCode]executionFunc{
		TIMESTAMP:   wrapBlockEnv(opTimestamp),
		NUMBER:      wrapBlockEnv(opNumber),
		COINBASE:    wrapBlockEnv(opCoinbase),
		DIFFICULTY:  wrapBlockEnv(opDifficulty),
		GASLIMIT:    wrapBlockEnv(opGasLimit),
		BASEFEE:     wrapBlockEnv(opBaseFee),
		BLOCKHASH:   wrapBlockEnv(opBlockhash),
		BLOBBASEFEE: wrapBlockEnv(opBlobBaseFee),
		BLOBHASH:    wrapBlockEnv(opBlobHash),
		BALANCE:         wrapAccountInspect(opBalance),
		EXTCODESIZE:     wrapAccountInspect(opExtcodesize),
		EXTCODECOPY:     wrapAccountInspect(opExtcodecopy),
		EXTCODEHASH:     wrapAccountInspect(opExtcodehash),
	}
}

func opTimestamp(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := uint256.NewInt(ctx.Block.Time)
	return nil, pushOrOverflow(fr, w)
}

func opNumber(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	var w uint256.Int
	if ctx.Block.BlockNumber != nil {
		w.SetFromBig(ctx.Block.BlockNumber)
	}
	return nil, pushOrOverflow(fr, &w)
}

func opCoinbase(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := addressToWord(ctx.Block.Coinbase)
	return nil, pushOrOverflow(fr, &w)
}

func opDifficulty(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	var w uint256.Int
	if ctx.Block.Difficulty != nil {
		w.SetFromBig(ctx.Block.Difficulty)
	}
	return nil, pushOrOverflow(fr, &w)
}

func opGasLimit(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	w := uint256.NewInt(ctx.Block.GasLimit)
	return nil, pushOrOverflow(fr, w)
}

func opBaseFee(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	var w uint256.Int
	if ctx.Block.BaseFee != nil {
		w.SetFromBig(ctx.Block.BaseFee)
	}
	return nil, pushOrOverflow(fr, &w)
}

func opBlobBaseFee(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasQuickStep) {
		return oogResult(fr.Gas), nil
	}
	var w uint256.Int
	if ctx.Block.BlobBaseFee != nil {
		w.SetFromBig(ctx.Block.BlobBaseFee)
	}
	return nil, pushOrOverflow(fr, &w)
}

func opBlobHash(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasFastestStep) {
		return oogResult(fr.Gas), nil
	}
	if _, err := fr.Stack.Pop(); err != nil {
		return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
	}
	var w uint256.Int
	return nil, pushOrOverflow(fr, &w)
}

func opBlockhash(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(gasExtStep) {
		return oogResult(fr.Gas), nil
	}
	n, _ := fr.Stack.Pop()
	var h common.Hash
	if ctx.Block.GetHash != nil {
		h = ctx.Block.GetHash(n.Uint64())
	}
	w := hashToWord(h)
	return nil, pushOrOverflow(fr, &w)
}

func opBalance(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	a, _ := fr.Stack.Pop()
	addr := toAddress(&a)
	warm := ctx.Journal.IsAddressWarm(addr)
	cost := warmStorageReadCost
	if !warm {
		cost = coldAccountAccessCost
	}
	if !fr.Gas.Consume(cost) {
		return oogResult(fr.Gas), nil
	}
	if err := ctx.Journal.MarkAddressWarm(addr); err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	bal, err := ctx.Journal.GetBalance(addr)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	var w uint256.Int
	w.SetFromBig(bal)
	return nil, pushOrOverflow(fr, &w)
}

func opExtcodesize(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	a, _ := fr.Stack.Pop()
	addr := toAddress(&a)
	warm := ctx.Journal.IsAddressWarm(addr)
	cost := warmStorageReadCost
	if !warm {
		cost = coldAccountAccessCost
	}
	if !fr.Gas.Consume(cost) {
		return oogResult(fr.Gas), nil
	}
	ctx.Journal.MarkAddressWarm(addr)
	code, err := ctx.Journal.GetCode(addr)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	w := uint256.NewInt(uint64(len(code)))
	return nil, pushOrOverflow(fr, w)
}

func opExtcodehash(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	a, _ := fr.Stack.Pop()
	addr := toAddress(&a)
	warm := ctx.Journal.IsAddressWarm(addr)
	cost := warmStorageReadCost
	if !warm {
		cost = coldAccountAccessCost
	}
	if !fr.Gas.Consume(cost) {
		return oogResult(fr.Gas), nil
	}
	ctx.Journal.MarkAddressWarm(addr)
	h, err := ctx.Journal.GetCodeHash(addr)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	w := hashToWord(h)
	return nil, pushOrOverflow(fr, &w)
}

func opExtcodecopy(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	a, _ := fr.Stack.Pop()
	addr := toAddress(&a)
	destOff, _ := fr.Stack.Pop()
	dataOff, _ := fr.Stack.Pop()
	sz, _ := fr.Stack.Pop()
	size := sz.Uint64()

	warm := ctx.Journal.IsAddressWarm(addr)
	accessCost := warmStorageReadCost
	if !warm {
		accessCost = coldAccountAccessCost
	}
	newLen, memCost := memoryExpansionCost(fr.Memory.Len(), destOff.Uint64(), size)
	if !fr.Gas.Consume(accessCost + memCost + dynamicCopyGas(size)) {
		return oogResult(fr.Gas), nil
	}
	ctx.Journal.MarkAddressWarm(addr)
	fr.Memory.Resize(newLen)
	code, err := ctx.Journal.GetCode(addr)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	data := sliceWithZeroPad(code, dataOff.Uint64(), size)
	fr.Memory.Set(destOff.Uint64(), size, data)
	return nil, nil
}

func opSelfdestructBaseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if !fr.Gas.Consume(5000) {
		return oogResult(fr.Gas), nil
	}
	a, _ := fr.Stack.Pop()
	beneficiary := toAddress(&a)
	bal, err := ctx.Journal.GetBalance(fr.Target)
	if err == nil && bal.Sign() > 0 {
		ctx.Journal.AddBalance(beneficiary, bal)
		ctx.Journal.SubBalance(fr.Target, bal)
	}
	ctx.Journal.SelfDestruct(fr.Target)
	return &InterpreterResult{Kind: ResultStop, Gas: fr.Gas}, nil
}

func makeLog(topics int) executionFunc {
	return func(ctx *Context, fr *Frame) (*InterpreterResult, error) {
		if fr.IsStatic {
			return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
		}
		offset, size, ok := memArgs(fr)
		if !ok {
			return oogResult(fr.Gas), nil
		}
		hashes := make([]common.Hash, topics)
		for i := 0; i < topics; i++ {
			t, err := fr.Stack.Pop()
			if err != nil {
				return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
			}
			hashes[i] = wordToHash(&t)
		}
		cost := logGas + logTopicGas*uint64(topics) + logDataGas*size
		if !fr.Gas.Consume(cost) {
			return oogResult(fr.Gas), nil
		}
		data := fr.Memory.GetCopy(offset, size)
		ctx.Journal.AddLog(megatypes.Log{Address: fr.Target, Topics: hashes, Data: data})
		return nil, nil
	}
}

// opSstoreBaseline is the Equivalence-table SSTORE: standard EIP-2200/2929
// compute-gas only, no storage-gas surcharge, no limit-tracker accrual.
func opSstoreBaseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if fr.IsStatic {
		return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
	}
	key, _ := fr.Stack.Pop()
	val, _ := fr.Stack.Pop()
	h := wordToHash(&key)
	newVal := wordToHash(&val)

	warm, err := ctx.Journal.IsWarm(fr.Target, h)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	cost := sstoreComputeCost(ctx, fr.Target, h, newVal, warm)
	if !fr.Gas.Consume(cost) {
		return oogResult(fr.Gas), nil
	}
	ctx.Journal.MarkWarm(fr.Target, h)
	if err := ctx.Journal.SetState(fr.Target, h, newVal); err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	return nil, nil
}

func sstoreComputeCost(ctx *Context, addr common.Address, key, newVal common.Hash, warm bool) uint64 {
	cost := uint64(0)
	if !warm {
		cost += coldSloadCost
	}
	original, _ := ctx.Journal.GetCommittedState(addr, key)
	if original == newVal {
		return cost + warmStorageReadCost
	}
	if original == (common.Hash{}) {
		return cost + sstoreSetGas
	}
	return cost + sstoreResetGas
}
