package vm

// Baseline EVM gas costs (spec §1 "generic EVM opcode semantics... assumed
// available"). Restated here as local constants rather than imported from
// go-ethereum/params: the teacher's retrieval slice carries only its
// Arbitrum-specific overlay files, not the unmodified upstream params
// package, so these are reproduced directly from the well-known EIP-determined
// values (EIP-150, EIP-2200, EIP-2929, EIP-3529) rather than grounded on a
// specific teacher file.
const (
	gasQuickStep   uint64 = 2
	gasFastestStep uint64 = 3
	gasFastStep    uint64 = 5
	gasMidStep     uint64 = 8
	gasSlowStep    uint64 = 10
	gasExtStep     uint64 = 20

	keccak256Gas     uint64 = 30
	keccak256WordGas uint64 = 6

	sstoreSetGas   uint64 = 20_000
	sstoreResetGas uint64 = 2_900
	sstoreClearsRefund uint64 = 4_800

	coldSloadCost        uint64 = 2_100
	coldAccountAccessCost uint64 = 2_600
	warmStorageReadCost  uint64 = 100

	logGas      uint64 = 375
	logTopicGas uint64 = 375
	logDataGas  uint64 = 8

	callStipend          uint64 = 2_300
	callValueTransferGas uint64 = 9_000
	callNewAccountGas    uint64 = 25_000

	createGas      uint64 = 32_000
	create2WordGas uint64 = 6
	createDataGas  uint64 = 200

	jumpdestGas uint64 = 1

	memoryGas     uint64 = 3
	quadCoeffDiv  uint64 = 512

	copyWordGas uint64 = 3
)

// memoryExpansionCost returns the incremental gas cost of growing memory
// from currentLen bytes to a size that covers [offset, offset+size), following
// the standard quadratic memory cost formula.
func memoryExpansionCost(currentLen int, offset, size uint64) (newLen uint64, cost uint64) {
	if size == 0 {
		return uint64(currentLen), 0
	}
	end := offset + size
	if end <= uint64(currentLen) {
		return uint64(currentLen), 0
	}
	newWords := memoryWordSize(end)
	oldWords := memoryWordSize(uint64(currentLen))
	newCost := memoryGas*newWords + newWords*newWords/quadCoeffDiv
	oldCost := memoryGas*oldWords + oldWords*oldWords/quadCoeffDiv
	return newWords * 32, newCost - oldCost
}

// dynamicCopyGas returns the per-word cost of a *COPY opcode's data movement.
func dynamicCopyGas(size uint64) uint64 {
	return copyWordGas * memoryWordSize(size)
}
