package megaparams

import "github.com/ethereum/go-ethereum/common"

// Volatile-data compute-gas caps (spec §4.2).
const (
	CapBlockEnv uint64 = 20_000_000
	CapOracle   uint64 = 1_000_000
)

// Bucket oracle baseline (spec §4.1).
const MinBucketSize uint64 = 32

// Storage-gas bases per hardfork (spec §4.4).
const (
	// MiniRex charges base x multiplier for both SSTORE-set and new-account creation.
	MiniRexSStoreSetStorageGas    uint64 = 2_000_000
	MiniRexNewAccountStorageGas   uint64 = 2_000_000

	// Rex charges base x (multiplier - 1), with smaller, more granular bases.
	RexSStoreSetStorageGas         uint64 = 20_000
	RexNewAccountStorageGasAccount uint64 = 25_000
	RexNewAccountStorageGasContract uint64 = 32_000

	// LOG topics are charged at 10x the baseline EVM per-topic cost as a storage-gas surcharge.
	MiniRexLogTopicStorageGasMultiplier uint64 = 10

	// CODEDEPOSIT_ADDITIONAL_GAS, Rex-only: per deployed byte, on top of the
	// baseline EVM per-byte code-deposit compute charge.
	RexCodeDepositAdditionalGasPerByte uint64 = 3_000

	// Calldata storage-gas additions (spec §4.6 step 2).
	StandardTokenStorageGas      uint64 = 10
	StandardTokenStorageFloorGas uint64 = 5

	// Rex's fixed intrinsic-gas adder.
	TxIntrinsicStorageGas uint64 = 39_000
)

// Additional-Limit Tracker data-size cost constants (spec §4.3 table).
const (
	TxStartBaseDataSize      uint64 = 110
	AuthorityListEntryBytes  uint64 = 101

	AccountInfoUpdateBytes uint64 = 8 + 32
	ColdSlotReadBytes      uint64 = 20 + 32 + 32 + 8
	SStoreSurchargeBytes   uint64 = 84
	WarmAccessUnitBytes    uint64 = 32 + 8

	TransientFrameReadBytes uint64 = 20 + 8 + 32 + 32 + 8 + 3*(32+8)
)

// Gas-forwarding rule (spec §4.4): cap forwarded gas at numerator/denominator
// of the parent's post-deduction remaining gas.
const (
	ForwardingCapNumerator   uint64 = 98
	ForwardingCapDenominator uint64 = 100
	CallStipend              uint64 = 2300
)

// Reserved protocol addresses (spec §4.2, §4.5, §4.6, §4.7).
var (
	// OracleAddress is the designated oracle contract, touching it marks the
	// Oracle volatile category and its reads/calls are intercepted.
	OracleAddress = common.HexToAddress("0x0000000000000000000000000000000000f0ac")

	// KeylessDeployAddress is the Rex2 keyless-deploy contract placeholder.
	KeylessDeployAddress = common.HexToAddress("0x00000000000000000000000000000000de910d")

	// MegaSystemAddress is the reserved sender whose transactions are treated
	// as deposit-like (no signature/nonce/fee) and whose volatile-data tracking
	// is bypassed entirely.
	MegaSystemAddress = common.HexToAddress("0xdeaddeaddeaddeaddeaddeaddeaddeaddead0001")
)

// SystemCallWhitelist is the compile-time whitelist of CALL targets the
// MegaSystemAddress may invoke (spec §4.6 step 1). CREATE is always rejected
// for system transactions regardless of this list.
var SystemCallWhitelist = []common.Address{
	OracleAddress,
	KeylessDeployAddress,
}
