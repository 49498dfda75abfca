// Package block implements the Block Executor (spec §4.7): the component
// that dispatches transactions to the Transaction Handler one at a time,
// enforces the four block-wide resource caps, applies protocol-level
// pre-execution changes at hardfork activation, and assembles the final
// BlockOutput.
//
// Grounded on core/state_processor.go's StateProcessor.Process (the
// per-block, strictly-serial transaction loop) and core/arbitrum_hooks.go's
// externally-injected block-level-knob pattern.
package block

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/megaeth-labs/mega-evm-sub000/txn"
)

// RecoveredTx pairs a decoded Transaction with the raw encoded length the
// Block Executor needs for tx-size metering (spec §4.7 step 2); the codec
// producing EncodedLength/raw bytes is out of scope (spec §6).
type RecoveredTx struct {
	Tx  *megatypes.Transaction
	Raw []byte
}

// Executor drives one block's worth of transactions through a Handler,
// enforcing BlockLimits and aggregating receipts (spec §4.7).
type Executor struct {
	Handler     *txn.Handler
	Limits      megaparams.BlockLimits
	BlockNumber *big.Int
	Metrics     *Metrics

	dataUsed         uint64
	kvUsed           uint64
	txsEncodeUsed    uint64

	receipts []*megatypes.ExecutionResult
}

// NewExecutor returns an Executor ready to process one block. A zero-valued
// field in limits means unlimited, matching the Additional-Limit Tracker's
// own orMax convention (megaparams/limits.go, limits/tracker.go), so a caller
// building a partial BlockLimits{} gets the same "unset dimension is
// unbounded" behavior the Handler gives per-transaction.
func NewExecutor(handler *txn.Handler, limits megaparams.BlockLimits, blockNumber *big.Int, metrics *Metrics) *Executor {
	limits = orMaxLimits(limits)
	handler.Limits = limits
	return &Executor{Handler: handler, Limits: limits, BlockNumber: blockNumber, Metrics: metrics}
}

// orMaxLimits replaces every zero-valued BlockLimits field with MaxUint64.
func orMaxLimits(limits megaparams.BlockLimits) megaparams.BlockLimits {
	limits.DataLimit = orMax(limits.DataLimit)
	limits.KVUpdateLimit = orMax(limits.KVUpdateLimit)
	limits.TxsEncodeSizeLimit = orMax(limits.TxsEncodeSizeLimit)
	limits.PerTxComputeGasLimit = orMax(limits.PerTxComputeGasLimit)
	return limits
}

func orMax(v uint64) uint64 {
	if v == 0 {
		return math.MaxUint64
	}
	return v
}

// ExecuteTransaction runs the pre-flight admission check, the encode-size
// check, dispatches to the Transaction Handler, and updates block aggregates
// on a receipt-producing outcome (spec §4.7 step 1-4).
func (e *Executor) ExecuteTransaction(rtx *RecoveredTx) (*megatypes.ExecutionResult, error) {
	if e.dataUsed >= e.Limits.DataLimit {
		log.Warn("block: rejecting transaction, data limit reached", "used", e.dataUsed, "limit", e.Limits.DataLimit)
		return nil, megatypes.ErrBlockDataLimitReached
	}
	if e.kvUsed >= e.Limits.KVUpdateLimit {
		log.Warn("block: rejecting transaction, kv-update limit reached", "used", e.kvUsed, "limit", e.Limits.KVUpdateLimit)
		return nil, megatypes.ErrBlockKVLimitReached
	}

	encodedLen := uint64(len(rtx.Raw))
	if e.txsEncodeUsed >= e.Limits.TxsEncodeSizeLimit {
		log.Warn("block: rejecting transaction, encode-size limit reached", "used", e.txsEncodeUsed, "limit", e.Limits.TxsEncodeSizeLimit)
		return nil, megatypes.ErrTransactionEncodeSizeLimit
	}

	outcome, err := e.Handler.Run(rtx.Tx, e.BlockNumber)
	if err != nil {
		// Validation-stage rejection: no receipt produced, the transaction is
		// never included (spec §4.7 step 5).
		log.Warn("block: transaction rejected at validation", "caller", rtx.Tx.Caller, "err", err)
		if e.Metrics != nil {
			e.Metrics.RejectedTxs.Inc()
		}
		return nil, fmt.Errorf("block: transaction rejected: %w", err)
	}

	e.dataUsed += outcome.DataUsed
	e.kvUsed += outcome.KVUsed
	e.txsEncodeUsed += encodedLen
	e.receipts = append(e.receipts, &outcome.Result)

	if e.Metrics != nil {
		e.Metrics.ProcessedTxs.Inc()
		e.Metrics.DataUsed.Set(float64(e.dataUsed))
		e.Metrics.KVUsed.Set(float64(e.kvUsed))
		e.Metrics.ComputeGasUsed.Add(float64(outcome.ComputeGasUsed))
	}

	return &outcome.Result, nil
}

// ApplyPreExecutionChanges deploys the oracle contract and/or the
// keyless-deploy contract at their reserved addresses via a raw code write
// (no EVM execution), if blockNumber is exactly the block at which the
// corresponding hardfork first activates (spec §4.7 "apply_pre_execution_changes").
func (e *Executor) ApplyPreExecutionChanges(oracleBytecode, keylessDeployBytecode []byte) error {
	cfg := e.Handler.Config
	if activatesAt(cfg.MiniRexBlock, e.BlockNumber) && len(oracleBytecode) > 0 {
		if err := writeRawCode(e.Handler, megaparams.OracleAddress, oracleBytecode); err != nil {
			return fmt.Errorf("block: deploy oracle contract: %w", err)
		}
	}
	if activatesAt(cfg.Rex2Block, e.BlockNumber) && len(keylessDeployBytecode) > 0 {
		if err := writeRawCode(e.Handler, megaparams.KeylessDeployAddress, keylessDeployBytecode); err != nil {
			return fmt.Errorf("block: deploy keyless-deploy contract: %w", err)
		}
	}
	return nil
}

func activatesAt(activation, block *big.Int) bool {
	return activation != nil && block != nil && activation.Cmp(block) == 0
}

func writeRawCode(h *txn.Handler, addr common.Address, code []byte) error {
	if err := h.Journal.CreateAccount(addr); err != nil {
		return err
	}
	return h.Journal.SetCode(addr, code, crypto.Keccak256Hash(code))
}

// Finish returns the accumulated BlockOutput: the Journal's state delta and
// the receipts collected so far (spec §4.7 "finish").
func (e *Executor) Finish() *megatypes.BlockOutput {
	return &megatypes.BlockOutput{
		Delta:    e.Handler.Journal.BuildDelta(),
		Receipts: e.receipts,
	}
}
