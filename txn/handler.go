// Package txn implements the Transaction Handler (spec §4.6): the pipeline
// that validates intrinsic gas, primes or bypasses pre-execution deductions
// for deposit-like transactions, drives the Frame Engine, reimburses and
// rewards, and produces a typed ExecutionResult.
//
// Grounded on core/vm/evm_arbitrum.go's TxProcessingHook
// (StartTxHook/GasChargingHook/EndTxHook/ForceRefundGas), generalized into
// the seven named steps spec §4.6 lists, and on core/state_processor.go's
// ApplyTransaction for intrinsic-gas validation and receipt assembly.
package txn

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/limits"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/megaeth-labs/mega-evm-sub000/state"
	"github.com/megaeth-labs/mega-evm-sub000/vm"
	"github.com/megaeth-labs/mega-evm-sub000/volatile"
)

// Handler runs one transaction at a time against a shared Journal (spec §5
// "Journal is exclusively owned by the Transaction Handler").
type Handler struct {
	Journal *state.Journal
	Config  *megaparams.ChainConfig
	Block   vm.BlockContext
	Hooks   vm.EnvHooks
	Oracle  bucketoracle.Oracle

	// NoBeneficiaryReward disables beneficiary crediting for ephemeral
	// simulation (spec §4.6 step 5).
	NoBeneficiaryReward bool

	// Limits carries the block-level caps; PerTxComputeGasLimit seeds each
	// transaction's Additional-Limit Tracker compute-gas ceiling. Zero means
	// unlimited.
	Limits megaparams.BlockLimits
}

// Outcome is what Run returns: the typed ExecutionResult plus the tracker
// totals the Block Executor needs for aggregation (spec §4.7 step 4).
type Outcome struct {
	Result         megatypes.ExecutionResult
	DataUsed       uint64
	KVUsed         uint64
	ComputeGasUsed uint64
}

// Run executes tx against the handler's Journal at the given block number,
// implementing the full before_run -> validate -> pre_execution -> execution
// -> post_execution -> last_frame_result -> execution_result pipeline.
func (h *Handler) Run(tx *megatypes.Transaction, blockNumber *big.Int) (*Outcome, error) {
	rules := h.Config.Rules(blockNumber)

	// 1. before_run.
	if err := h.beforeRun(tx, rules); err != nil {
		return nil, err
	}

	isSystem := tx.Caller == megaparams.MegaSystemAddress
	tracker := limits.New(megaparams.TxLimits{
		DataLimit:       0,
		KVUpdateLimit:   0,
		ComputeGasLimit: h.Limits.PerTxComputeGasLimit,
	})
	volatileTracker := volatile.New(megaparams.OracleAddress, h.Block.Coinbase, isSystem)

	// 2. validate.
	initialGas, err := h.validate(tx, rules, tracker)
	if err != nil {
		return nil, err
	}

	// 3. pre_execution.
	if err := h.preExecution(tx, initialGas); err != nil {
		return nil, err
	}

	// 4. execution.
	if initialGas > tx.GasLimit {
		return nil, megatypes.ErrCallGasCostMoreThanGasLimit
	}
	target, codeAddr, code, createdAddr, err := h.resolveTarget(tx)
	if err != nil {
		return nil, err
	}

	jumpTable := vm.ForHardfork(rules)
	ctx := &vm.Context{
		Journal:             h.Journal,
		Limits:              tracker,
		Volatile:            volatileTracker,
		Oracle:              h.Oracle,
		Rules:               rules,
		Block:                h.Block,
		Hooks:                h.Hooks,
		ChainID:              tx.ChainID,
		NoBeneficiaryReward:  h.NoBeneficiaryReward,
		JumpTable:            jumpTable,
	}

	root := vm.NewFrame(frameKind(tx), target, codeAddr, tx.Caller, valueOrZero(tx.Value), tx.Input, code, tx.GasLimit-initialGas, 0, false)
	interp := vm.NewInterpreter(ctx)
	interpResult := interp.Run(root)

	// 5. post_execution.
	gasUsed := h.postExecution(tx, interpResult)

	// 6. last_frame_result.
	rescued := tracker.TakeRescuedGas()
	interpResult.Gas.Erase(rescued)
	gasUsed = tx.GasLimit - interpResult.Gas.Remaining()

	// 7. execution_result.
	result := h.executionResult(interpResult, gasUsed, createdAddr, volatileTracker, tracker)

	dataUsed, kvUsed, computeGasUsed := tracker.Totals()
	return &Outcome{Result: result, DataUsed: dataUsed, KVUsed: kvUsed, ComputeGasUsed: computeGasUsed}, nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func frameKind(tx *megatypes.Transaction) vm.FrameKind {
	if tx.IsCreate() {
		return vm.FrameCreate
	}
	return vm.FrameCall
}

// beforeRun applies the mega-system-address deposit-like bypass (spec §4.6
// step 1).
func (h *Handler) beforeRun(tx *megatypes.Transaction, rules megaparams.Rules) error {
	if tx.Caller != megaparams.MegaSystemAddress || !rules.IsMiniRex {
		return nil
	}
	if tx.IsCreate() {
		return megatypes.ErrSystemTxMayNotCreate
	}
	whitelisted := false
	for _, addr := range megaparams.SystemCallWhitelist {
		if addr == tx.Target {
			whitelisted = true
			break
		}
	}
	if !whitelisted {
		return megatypes.ErrSystemTxTargetNotWhitelisted
	}
	tx.Deposit = &megatypes.DepositFields{SourceHash: crypto.Keccak256Hash(tx.Caller[:], tx.Target[:])}
	tx.GasPrice = new(big.Int)
	return nil
}

// validate computes the initial-gas figure (spec §4.6 step 2) and records it
// as compute gas in the Additional-Limit Tracker.
func (h *Handler) validate(tx *megatypes.Transaction, rules megaparams.Rules, tracker *limits.Tracker) (uint64, error) {
	initialGas := baseIntrinsicGas(tx)

	if rules.IsMiniRex {
		storageGas, _ := calldataStorageGas(tx)
		initialGas += storageGas
	}
	if rules.IsRex {
		initialGas += megaparams.TxIntrinsicStorageGas
	}
	if rules.IsMiniRex {
		extra, err := h.newAccountStorageGasForCallee(tx, rules)
		if err != nil {
			return 0, err
		}
		initialGas += extra
	}

	if initialGas > tx.GasLimit {
		return 0, megatypes.ErrCallGasCostMoreThanGasLimit
	}

	calldataBytes := len(tx.Input)
	accessListBytes := tx.AccessList.StorageKeyCount() * 32
	data, kv := limits.TxStartCost(calldataBytes, accessListBytes, len(tx.AuthorityList))
	tracker.AccrueCommitted(data, kv)
	tracker.AccrueComputeGas(initialGas)

	return initialGas, nil
}

// newAccountStorageGasForCallee computes the Mini-Rex new-account storage-gas
// addition for a CREATE's to-be-deployed address, or a CALL transferring
// value to an account observed empty (spec §4.6 step 2).
func (h *Handler) newAccountStorageGasForCallee(tx *megatypes.Transaction, rules megaparams.Rules) (uint64, error) {
	if tx.IsCreate() {
		nonce, err := h.Journal.GetNonce(tx.Caller)
		if err != nil {
			return 0, err
		}
		created := crypto.CreateAddress(tx.Caller, nonce)
		mult, err := bucketoracle.LookupMultiplier(h.Oracle, bucketoracle.AccountBucket(created))
		if err != nil {
			return 0, err
		}
		return contractStorageGas(rules, mult), nil
	}
	if tx.Value == nil || tx.Value.Sign() == 0 {
		return 0, nil
	}
	empty, err := h.Journal.Empty(tx.Target)
	if err != nil {
		return 0, err
	}
	if !empty {
		return 0, nil
	}
	mult, err := bucketoracle.LookupMultiplier(h.Oracle, bucketoracle.AccountBucket(tx.Target))
	if err != nil {
		return 0, err
	}
	return accountStorageGas(rules, mult), nil
}

func accountStorageGas(rules megaparams.Rules, mult uint64) uint64 {
	if rules.IsRex {
		return megaparams.RexNewAccountStorageGasAccount * (mult - 1)
	}
	return megaparams.MiniRexNewAccountStorageGas * mult
}

func contractStorageGas(rules megaparams.Rules, mult uint64) uint64 {
	if rules.IsRex {
		return megaparams.RexNewAccountStorageGasContract * (mult - 1)
	}
	return megaparams.MiniRexNewAccountStorageGas * mult
}

// preExecution checks the nonce and that the balance covers gas and value,
// deducts the prepaid gas fee and advances the nonce (spec §4.6 step 3); the
// value itself is moved later, by resolveTarget. Deposit-like transactions
// are exempt from fee deduction and nonce/balance validation.
func (h *Handler) preExecution(tx *megatypes.Transaction, initialGas uint64) error {
	if tx.IsDeposit() {
		return nil
	}

	nonce, err := h.Journal.GetNonce(tx.Caller)
	if err != nil {
		return err
	}
	if nonce != tx.Nonce {
		return megatypes.ErrNonceMismatch
	}

	balance, err := h.Journal.GetBalance(tx.Caller)
	if err != nil {
		return err
	}
	cost := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), gasPriceOf(tx))
	if tx.Value != nil {
		cost.Add(cost, tx.Value)
	}
	if balance.Cmp(cost) < 0 {
		return megatypes.ErrBalanceTooLow
	}

	prepay := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), gasPriceOf(tx))
	if err := h.Journal.SubBalance(tx.Caller, prepay); err != nil {
		return err
	}
	return h.Journal.SetNonce(tx.Caller, nonce+1)
}

func gasPriceOf(tx *megatypes.Transaction) *big.Int {
	if tx.GasPrice == nil {
		return new(big.Int)
	}
	return tx.GasPrice
}

// resolveTarget derives the target/code address/code bytes the root frame
// should run, performing the top-level value transfer (spec §4.6 step 4:
// "build the first frame") and CREATE address derivation/account creation
// before the frame starts running.
func (h *Handler) resolveTarget(tx *megatypes.Transaction) (target, codeAddr common.Address, code []byte, created *common.Address, err error) {
	value := valueOrZero(tx.Value)

	if tx.IsCreate() {
		nonce, nerr := h.Journal.GetNonce(tx.Caller)
		if nerr != nil {
			return common.Address{}, common.Address{}, nil, nil, nerr
		}
		// preExecution already advanced the nonce for non-deposit txs; the
		// address must be derived from the nonce observed at signing time.
		deployNonce := nonce
		if !tx.IsDeposit() && nonce > 0 {
			deployNonce = nonce - 1
		}
		addr := crypto.CreateAddress(tx.Caller, deployNonce)
		if cerr := h.Journal.CreateAccount(addr); cerr != nil {
			return common.Address{}, common.Address{}, nil, nil, cerr
		}
		if value.Sign() != 0 {
			if serr := h.Journal.SubBalance(tx.Caller, value); serr != nil {
				return common.Address{}, common.Address{}, nil, nil, serr
			}
			if aerr := h.Journal.AddBalance(addr, value); aerr != nil {
				return common.Address{}, common.Address{}, nil, nil, aerr
			}
		}
		return addr, addr, tx.Input, &addr, nil
	}

	if value.Sign() != 0 {
		if serr := h.Journal.SubBalance(tx.Caller, value); serr != nil {
			return common.Address{}, common.Address{}, nil, nil, serr
		}
		if aerr := h.Journal.AddBalance(tx.Target, value); aerr != nil {
			return common.Address{}, common.Address{}, nil, nil, aerr
		}
	}
	code, cerr := h.Journal.GetCode(tx.Target)
	if cerr != nil {
		return common.Address{}, common.Address{}, nil, nil, cerr
	}
	return tx.Target, tx.Target, code, nil, nil
}

// postExecution applies the EIP-3529 refund cap, reimburses unspent gas to
// the caller, and rewards the beneficiary (spec §4.6 step 5).
func (h *Handler) postExecution(tx *megatypes.Transaction, result *vm.InterpreterResult) uint64 {
	gasUsed := tx.GasLimit - result.Gas.Remaining()

	maxRefund := gasUsed / refundQuotient
	refund := result.Gas.Refund
	if refund > maxRefund {
		refund = maxRefund
	}
	result.Gas.Erase(refund)
	gasUsed = tx.GasLimit - result.Gas.Remaining()

	if tx.IsDeposit() {
		return gasUsed
	}

	reimbursement := new(big.Int).Mul(new(big.Int).SetUint64(result.Gas.Remaining()), gasPriceOf(tx))
	_ = h.Journal.AddBalance(tx.Caller, reimbursement)

	if !h.NoBeneficiaryReward {
		reward := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPriceOf(tx))
		_ = h.Journal.AddBalance(h.Block.Coinbase, reward)
	}

	return gasUsed
}

// executionResult maps the interpreter's terminal result to the typed
// ExecutionResult, consulting the Volatile-Data and Additional-Limit
// trackers to refine a bare OutOfGas halt (spec §4.6 step 7, §7).
func (h *Handler) executionResult(result *vm.InterpreterResult, gasUsed uint64, created *common.Address, vt *volatile.Tracker, lt *limits.Tracker) megatypes.ExecutionResult {
	switch result.Kind {
	case vm.ResultReturn, vm.ResultStop:
		return megatypes.ExecutionResult{
			Outcome:        megatypes.OutcomeSuccess,
			Output:         result.Output,
			GasUsed:        gasUsed,
			Logs:           h.Journal.Logs(),
			CreatedAddress: created,
		}
	case vm.ResultRevert:
		return megatypes.ExecutionResult{
			Outcome: megatypes.OutcomeRevert,
			Output:  result.Output,
			GasUsed: gasUsed,
		}
	default:
		return megatypes.ExecutionResult{
			Outcome: megatypes.OutcomeHalt,
			GasUsed: gasUsed,
			Halt:    h.refineHalt(result.Halt, vt, lt),
		}
	}
}

func (h *Handler) refineHalt(base *megatypes.HaltReason, vt *volatile.Tracker, lt *limits.Tracker) *megatypes.HaltReason {
	if base == nil {
		base = &megatypes.HaltReason{Kind: megatypes.HaltOutOfGas}
	}
	if base.Kind == megatypes.HaltOutOfGas {
		if cap, ok := vt.CurrentComputeCap(); ok {
			_, _, computeUsed := lt.Totals()
			blockEnv, oracle := vt.Categories()
			accessType := megatypes.VolatileAccessBlockEnv
			switch {
			case blockEnv && oracle:
				accessType = megatypes.VolatileAccessBoth
			case oracle:
				accessType = megatypes.VolatileAccessOracle
			}
			return &megatypes.HaltReason{
				Kind:         megatypes.HaltOutOfGas,
				VolatileData: &megatypes.VolatileDataHalt{AccessType: accessType, Limit: cap, Actual: computeUsed},
			}
		}
		switch lt.Exceeded() {
		case limits.ExceedData:
			dataUsed, _, _ := lt.Totals()
			dataLimit, _, _ := lt.Limits()
			return &megatypes.HaltReason{Kind: megatypes.HaltOutOfGas, DataLimit: &megatypes.LimitHalt{Limit: dataLimit, Used: dataUsed}}
		case limits.ExceedKVUpdate:
			_, kvUsed, _ := lt.Totals()
			_, kvLimit, _ := lt.Limits()
			return &megatypes.HaltReason{Kind: megatypes.HaltOutOfGas, KVUpdateLimit: &megatypes.LimitHalt{Limit: kvLimit, Used: kvUsed}}
		}
	}
	return base
}

// TransactSystemCall runs a zero-value call from caller to contract by
// driving the Frame Engine directly, without building a Transaction and
// bypassing pre_execution/post_execution (spec §4.6 "System-call path").
// The Block Executor does not call it: its pre-execution deployments are
// raw code writes.
func (h *Handler) TransactSystemCall(caller, contract common.Address, data []byte, blockNumber *big.Int, gasLimit uint64) (*megatypes.ExecutionResult, error) {
	rules := h.Config.Rules(blockNumber)
	tracker := limits.New(megaparams.TxLimits{})
	volatileTracker := volatile.New(megaparams.OracleAddress, h.Block.Coinbase, true)

	code, err := h.Journal.GetCode(contract)
	if err != nil {
		return nil, fmt.Errorf("txn: system call target code: %w", err)
	}

	ctx := &vm.Context{
		Journal:  h.Journal,
		Limits:   tracker,
		Volatile: volatileTracker,
		Oracle:   h.Oracle,
		Rules:    rules,
		Block:    h.Block,
		Hooks:    h.Hooks,
		JumpTable: vm.ForHardfork(rules),
	}
	root := vm.NewFrame(vm.FrameCall, contract, contract, caller, new(big.Int), data, code, gasLimit, 0, false)
	interp := vm.NewInterpreter(ctx)
	result := interp.Run(root)
	gasUsed := gasLimit - result.Gas.Remaining()

	out := h.executionResult(result, gasUsed, nil, volatileTracker, tracker)
	return &out, nil
}
