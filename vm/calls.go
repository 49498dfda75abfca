package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/limits"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
)

// callKind discriminates the four CALL-family opcodes for the shared builder.
type callKind uint8

const (
	ckCall callKind = iota
	ckCallCode
	ckDelegateCall
	ckStaticCall
)

type callArgs struct {
	gasRequested           uint64
	target                 common.Address
	value                  *big.Int
	argsOffset, argsSize   uint64
	retOffset, retSize     uint64
}

func popCallArgs(fr *Frame, kind callKind) (callArgs, bool) {
	g, err := fr.Stack.Pop()
	if err != nil {
		return callArgs{}, false
	}
	a, err := fr.Stack.Pop()
	if err != nil {
		return callArgs{}, false
	}
	var value *big.Int = new(big.Int)
	if kind == ckCall || kind == ckCallCode {
		v, err := fr.Stack.Pop()
		if err != nil {
			return callArgs{}, false
		}
		value = v.ToBig()
	}
	argsOff, err := fr.Stack.Pop()
	if err != nil {
		return callArgs{}, false
	}
	argsSz, err := fr.Stack.Pop()
	if err != nil {
		return callArgs{}, false
	}
	retOff, err := fr.Stack.Pop()
	if err != nil {
		return callArgs{}, false
	}
	retSz, err := fr.Stack.Pop()
	if err != nil {
		return callArgs{}, false
	}
	return callArgs{
		gasRequested: g.Uint64(),
		target:       toAddress(&a),
		value:        value,
		argsOffset:   argsOff.Uint64(), argsSize: argsSz.Uint64(),
		retOffset: retOff.Uint64(), retSize: retSz.Uint64(),
	}, true
}

// runCallFamily is the shared builder for CALL/CALLCODE/DELEGATECALL/STATICCALL.
// applyForwardingCap, when true, caps the requested child gas per spec
// §4.4's 98/100 rule (Mini-Rex/Rex only); baseline Equivalence passes false
// and forwards the raw requested amount (capped by what remains).
// volatileDetect, when true, marks the Volatile-Data Tracker on frame init
// (spec §4.2 call-frame clause).
func runCallFamily(ctx *Context, fr *Frame, kind callKind, applyForwardingCap bool, volatileDetect bool) (*InterpreterResult, error) {
	args, ok := popCallArgs(fr, kind)
	if !ok {
		return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
	}
	hasValue := (kind == ckCall || kind == ckCallCode) && args.value.Sign() != 0
	if fr.IsStatic && kind == ckCall && hasValue {
		return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
	}

	inNewLen, inCost := memoryExpansionCost(fr.Memory.Len(), args.argsOffset, args.argsSize)
	fr.Memory.Resize(inNewLen)
	outNewLen, outCost := memoryExpansionCost(fr.Memory.Len(), args.retOffset, args.retSize)

	warm := ctx.Journal.IsAddressWarm(args.target)
	accessCost := warmStorageReadCost
	if !warm {
		accessCost = coldAccountAccessCost
	}

	var valueCost uint64
	existed := true
	if kind == ckCall {
		var err error
		existed, err = ctx.Journal.Exist(args.target)
		if err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
	}
	if hasValue {
		valueCost += callValueTransferGas
		if kind == ckCall && !existed {
			valueCost += callNewAccountGas
		}
	}

	if !fr.Gas.Consume(accessCost + inCost + outCost + valueCost) {
		return oogResult(fr.Gas), nil
	}
	if err := ctx.Journal.MarkAddressWarm(args.target); err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	fr.Memory.Resize(outNewLen)

	if hasValue && kind == ckCall && !existed {
		// spec §4.4: "CALL with value transfer to an empty account charges
		// new-account storage gas; the gas-forwarding cap then applies."
		if applyStorageGas := volatileDetect; applyStorageGas {
			m, err := bucketoracle.LookupMultiplier(ctx.Oracle, bucketoracle.AccountBucket(args.target))
			if err != nil {
				return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
			}
			if !fr.Gas.Consume(newAccountStorageGas(ctx.Rules, m, false)) {
				return oogResult(fr.Gas), nil
			}
			data, kv := limits.CallWithValueCost(false)
			ctx.Limits.AccrueDiscardable(data, kv)
		}
	}

	requestedGas := minUint64(args.gasRequested, fr.Gas.Remaining())
	if applyForwardingCap {
		requestedGas = ForwardedCap(requestedGas, fr.Gas.Remaining()-requestedGas, megaparams.ForwardingCapNumerator, megaparams.ForwardingCapDenominator, 0, false)
	}
	fr.Gas.Consume(requestedGas)
	childGasLimit := requestedGas
	if hasValue {
		// the CALL-value stipend (spec §4.4) is added on top of whatever was
		// forwarded and deducted from the parent, not carved out of it.
		childGasLimit += callStipend
	}

	var callerForChild, targetForChild common.Address
	var valueForChild *big.Int
	var isStaticForChild bool
	switch kind {
	case ckCall, ckCallCode:
		callerForChild = fr.Target
		valueForChild = args.value
		isStaticForChild = fr.IsStatic
	case ckDelegateCall:
		callerForChild = fr.Caller
		valueForChild = fr.Value
		isStaticForChild = fr.IsStatic
	case ckStaticCall:
		callerForChild = fr.Target
		valueForChild = new(big.Int)
		isStaticForChild = true
	}
	switch kind {
	case ckCall:
		targetForChild = args.target
	case ckCallCode, ckDelegateCall:
		targetForChild = fr.Target
	case ckStaticCall:
		targetForChild = args.target
	}

	if volatileDetect {
		ctx.Volatile.MaybeMarkCallFrame(args.target)
	}

	code, err := ctx.Journal.GetCode(args.target)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	if volatileDetect && len(code) == 0 {
		// A CALL-family opcode forwarding control into an account with no
		// code spawns a trivial frame that runs no opcodes of its own; charge
		// its read cost here since the child interpreter loop never gets a
		// chance to (spec §4.3's call-to-EOA row).
		data, kv := limits.TransientFrameCost(hasValue)
		ctx.Limits.AccrueDiscardable(data, kv)
	}
	input := fr.Memory.GetCopy(args.argsOffset, args.argsSize)

	if hasValue && kind == ckCall {
		bal, err := ctx.Journal.GetBalance(fr.Target)
		if err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
		if bal.Cmp(args.value) < 0 {
			// insufficient balance: push failure and give the forwarded gas
			// back; the call's own access, memory and value costs stay charged.
			fr.Gas.Erase(requestedGas)
			var zero uint256.Int
			pushOrOverflow(fr, &zero)
			return nil, nil
		}
		// value moves before the callee runs, per standard CALL semantics.
		// The child's snapshot is taken after this transfer, so resume moves
		// the value back if the callee fails.
		if err := ctx.Journal.SubBalance(fr.Target, args.value); err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
		if err := ctx.Journal.AddBalance(args.target, args.value); err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
	}

	retOffset, retSize := args.retOffset, args.retSize
	fr.pendingChild = &frameInit{
		kind: FrameCall, target: targetForChild, codeAddress: args.target, caller: callerForChild,
		value: valueForChild, input: input, code: code, gasLimit: childGasLimit, isStatic: isStaticForChild,
		retOffset: retOffset, retSize: retSize,
		resume: func(parent *Frame, result FrameResult) {
			var successWord uint256.Int
			if result.Interp.Succeeded() {
				successWord.SetOne()
			} else if hasValue && kind == ckCall {
				ctx.Journal.SubBalance(args.target, args.value)
				ctx.Journal.AddBalance(parent.Target, args.value)
			}
			pushOrOverflow(parent, &successWord)
			parent.ReturnData = result.Interp.Output
			n := uint64(len(result.Interp.Output))
			if n > retSize {
				n = retSize
			}
			if n > 0 {
				parent.Memory.Set(retOffset, n, result.Interp.Output[:n])
			}
			parent.Gas.Erase(result.Interp.Gas.Remaining())
			parent.Gas.AddRefund(result.Interp.Gas.Refund)
		},
	}
	return nil, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func opCallBaseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckCall, false, false)
}
func opCallCodeBaseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckCallCode, false, false)
}
func opDelegateCallBaseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckDelegateCall, false, false)
}
func opStaticCallBaseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckStaticCall, false, false)
}

// Mini-Rex/Rex wrapped CALL-family bodies: add volatile-data detection and
// (for CALL/CALLCODE, which Mini-Rex wires directly) the 98/100 forwarding
// cap; Rex additionally routes DELEGATECALL/STATICCALL through the same cap.
func opCallMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckCall, true, true)
}
func opCallCodeMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckCallCode, true, true)
}
func opDelegateCallMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckDelegateCall, true, true)
}
func opStaticCallMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCallFamily(ctx, fr, ckStaticCall, true, true)
}

// --- CREATE / CREATE2 --------------------------------------------------------

func runCreateFamily(ctx *Context, fr *Frame, isCreate2 bool, applyForwardingCap, applyStorageGas bool) (*InterpreterResult, error) {
	if fr.IsStatic {
		return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
	}
	val, _ := fr.Stack.Pop()
	off, _ := fr.Stack.Pop()
	sz, _ := fr.Stack.Pop()
	var salt uint256.Int
	if isCreate2 {
		s, err := fr.Stack.Pop()
		if err != nil {
			return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
		}
		salt = s
	}
	offset, size := off.Uint64(), sz.Uint64()

	newLen, memCost := memoryExpansionCost(fr.Memory.Len(), offset, size)
	cost := createGas + memCost
	if isCreate2 {
		cost += create2WordGas * memoryWordSize(size)
	}
	if !fr.Gas.Consume(cost) {
		return oogResult(fr.Gas), nil
	}
	fr.Memory.Resize(newLen)
	initCode := fr.Memory.GetCopy(offset, size)

	nonce, err := ctx.Journal.GetNonce(fr.Target)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	var newAddr common.Address
	if isCreate2 {
		saltBytes := salt.Bytes32()
		newAddr = crypto.CreateAddress2(fr.Target, saltBytes, crypto.Keccak256(initCode))
	} else {
		newAddr = crypto.CreateAddress(fr.Target, nonce)
	}
	if err := ctx.Journal.SetNonce(fr.Target, nonce+1); err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}

	if applyStorageGas {
		m, err := bucketoracle.LookupMultiplier(ctx.Oracle, bucketoracle.AccountBucket(newAddr))
		if err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
		surcharge := newAccountStorageGas(ctx.Rules, m, true)
		if !fr.Gas.Consume(surcharge) {
			return oogResult(fr.Gas), nil
		}
	}

	requestedGas := fr.Gas.Remaining()
	if applyForwardingCap {
		requestedGas = ForwardedCap(requestedGas, fr.Gas.Remaining()-requestedGas, megaparams.ForwardingCapNumerator, megaparams.ForwardingCapDenominator, 0, false)
	}
	fr.Gas.Consume(requestedGas)

	if err := ctx.Journal.CreateAccount(newAddr); err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	if val.Sign() != 0 {
		if err := ctx.Journal.SubBalance(fr.Target, val.ToBig()); err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
		if err := ctx.Journal.AddBalance(newAddr, val.ToBig()); err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
	}

	fr.pendingChild = &frameInit{
		kind: FrameCreate, target: newAddr, codeAddress: newAddr, caller: fr.Target,
		value: val.ToBig(), input: nil, code: initCode, gasLimit: requestedGas, isStatic: fr.IsStatic,
		resume: func(parent *Frame, result FrameResult) {
			if !result.Interp.Succeeded() {
				var zero uint256.Int
				pushOrOverflow(parent, &zero)
				parent.Gas.Erase(result.Interp.Gas.Remaining())
				return
			}
			if applyStorageGas {
				data, kv := limits.CreateSuccessCost(len(result.Interp.Output))
				ctx.Limits.AccrueDiscardable(data, kv)
				if ctx.Rules.IsRex {
					result.Interp.Gas.Consume(megaparams.RexCodeDepositAdditionalGasPerByte * uint64(len(result.Interp.Output)))
				}
			}
			if err := ctx.Journal.SetCode(newAddr, result.Interp.Output, crypto.Keccak256Hash(result.Interp.Output)); err == nil {
				w := addressToWord(newAddr)
				pushOrOverflow(parent, &w)
			} else {
				var zero uint256.Int
				pushOrOverflow(parent, &zero)
			}
			parent.Gas.Erase(result.Interp.Gas.Remaining())
			parent.Gas.AddRefund(result.Interp.Gas.Refund)
		},
	}
	return nil, nil
}

// newAccountStorageGas applies the Mini-Rex/Rex new-account storage-gas
// formula (spec §4.4): Mini-Rex charges base*multiplier; Rex charges
// base*(multiplier-1), using the contract-creation base when forContract.
func newAccountStorageGas(rules megaparams.Rules, multiplier uint64, forContract bool) uint64 {
	if rules.IsRex {
		base := megaparams.RexNewAccountStorageGasAccount
		if forContract {
			base = megaparams.RexNewAccountStorageGasContract
		}
		if multiplier == 0 {
			return 0
		}
		return base * (multiplier - 1)
	}
	return megaparams.MiniRexNewAccountStorageGas * multiplier
}

func opCreateBaseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCreateFamily(ctx, fr, false, false, false)
}
func opCreate2Baseline(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCreateFamily(ctx, fr, true, false, false)
}
func opCreateMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCreateFamily(ctx, fr, false, true, true)
}
func opCreate2Mega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	return runCreateFamily(ctx, fr, true, true, true)
}

// --- Mini-Rex/Rex SSTORE and LOG wrappers -----------------------------------

// opSstoreMega wraps the baseline SSTORE with storage-gas scaling (spec
// §4.4) and Additional-Limit Tracker accrual on cold SSTOREs (spec §4.3).
func opSstoreMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
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
	computeCost := sstoreComputeCost(ctx, fr.Target, h, newVal, warm)
	if !fr.Gas.Consume(computeCost) {
		return oogResult(fr.Gas), nil
	}
	ctx.Limits.AccrueComputeGas(computeCost)

	original, err := ctx.Journal.GetCommittedState(fr.Target, h)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	present, err := ctx.Journal.Inspect(fr.Target, h)
	if err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	if !warm {
		data, kv := limits.ColdSStoreCost()
		ctx.Limits.AccrueDiscardable(data, kv)
	}
	if original == (common.Hash{}) && present == (common.Hash{}) && newVal != (common.Hash{}) {
		m, err := bucketoracle.LookupMultiplier(ctx.Oracle, bucketoracle.StorageBucket(fr.Target, h))
		if err != nil {
			return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
		}
		surcharge := sstoreSetStorageGas(ctx.Rules, m)
		if !fr.Gas.Consume(surcharge) {
			return oogResult(fr.Gas), nil
		}
	}
	if err := ctx.Journal.MarkWarm(fr.Target, h); err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	if err := ctx.Journal.SetState(fr.Target, h, newVal); err != nil {
		return haltResult(megatypes.HaltFatalExternalError, fr.Gas), nil
	}
	return nil, nil
}

func sstoreSetStorageGas(rules megaparams.Rules, multiplier uint64) uint64 {
	if rules.IsRex {
		if multiplier == 0 {
			return 0
		}
		return megaparams.RexSStoreSetStorageGas * (multiplier - 1)
	}
	return megaparams.MiniRexSStoreSetStorageGas * multiplier
}

// opLogMega wraps baseline LOG with the Mini-Rex/Rex storage-gas surcharge
// (10x baseline per topic, spec §4.4) and Additional-Limit accrual.
func opLogMega(ctx *Context, fr *Frame) (*InterpreterResult, error) {
	if fr.IsStatic {
		return haltResult(megatypes.HaltInvalidFEOpcode, fr.Gas), nil
	}
	offset, size, ok := memArgs(fr)
	if !ok {
		return oogResult(fr.Gas), nil
	}
	op := OpCode(fr.Code[fr.PC])
	topics, _ := op.IsLog()
	hashes := make([]common.Hash, topics)
	for i := 0; i < topics; i++ {
		t, err := fr.Stack.Pop()
		if err != nil {
			return haltResult(megatypes.HaltStackUnderflow, fr.Gas), nil
		}
		hashes[i] = wordToHash(&t)
	}
	baseCost := logGas + logTopicGas*uint64(topics) + logDataGas*size
	if !fr.Gas.Consume(baseCost) {
		return oogResult(fr.Gas), nil
	}
	ctx.Limits.AccrueComputeGas(baseCost)
	storageSurcharge := megaparams.MiniRexLogTopicStorageGasMultiplier * logTopicGas * uint64(topics)
	if !fr.Gas.Consume(storageSurcharge) {
		return oogResult(fr.Gas), nil
	}
	data, kv := limits.LogCost(topics, int(size))
	ctx.Limits.AccrueDiscardable(data, kv)
	logData := fr.Memory.GetCopy(offset, size)
	ctx.Journal.AddLog(megatypes.Log{Address: fr.Target, Topics: hashes, Data: logData})
	return nil, nil
}
