package megatypes

import "errors"

// Validation errors (spec §7) — rejected before execution, the transaction is
// never included.
var (
	ErrInvalidTxType               = errors.New("invalid tx type")
	ErrUnsupportedTxType           = errors.New("unsupported tx type")
	ErrMalformedAuth               = errors.New("malformed authorization tuple")
	ErrMalformedAccessList         = errors.New("malformed access list")
	ErrCallGasCostMoreThanGasLimit = errors.New("call gas cost exceeds gas limit")
	ErrBalanceTooLow               = errors.New("insufficient sender balance")
	ErrNonceMismatch               = errors.New("nonce mismatch")
	ErrSystemTxTargetNotWhitelisted = errors.New("system transaction target not whitelisted")
	ErrSystemTxMayNotCreate        = errors.New("system transaction may not create")
	ErrTransactionEncodeSizeLimit  = errors.New("transaction exceeds block encode-size limit")
	ErrBlockDataLimitReached       = errors.New("block data limit reached")
	ErrBlockKVLimitReached         = errors.New("block kv-update limit reached")
	ErrBlockComputeGasLimitReached = errors.New("block per-tx compute gas limit reached")
)
