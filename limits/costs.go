package limits

import "github.com/megaeth-labs/mega-evm-sub000/megaparams"

// Cost helpers implementing the event table of spec §4.3. Each returns the
// (data-size delta, kv-update delta) charged for that event; callers decide
// discardability by routing the call through AccrueDiscardable or
// AccrueCommitted.

// TxStartCost is the non-discardable transaction-start charge.
func TxStartCost(calldataBytes, accessListBytes, authorityListLen int) (data, kv uint64) {
	data = megaparams.TxStartBaseDataSize + uint64(calldataBytes) + uint64(accessListBytes) + megaparams.AuthorityListEntryBytes*uint64(authorityListLen)
	kv = 1 + uint64(authorityListLen)
	return
}

// ColdSLoadCost is charged on a cold SLOAD.
func ColdSLoadCost() (data, kv uint64) {
	data = megaparams.ColdSlotReadBytes + 3*megaparams.WarmAccessUnitBytes
	return data, 0
}

// ColdSStoreCost is charged on a cold SSTORE.
func ColdSStoreCost() (data, kv uint64) {
	data = megaparams.ColdSlotReadBytes + megaparams.SStoreSurchargeBytes + 3*megaparams.WarmAccessUnitBytes
	return data, 1
}

// LogCost is charged on a LOG(n, len).
func LogCost(topics int, dataLen int) (data, kv uint64) {
	data = 32*uint64(topics) + uint64(dataLen)
	return data, 0
}

// CreateSuccessCost is charged when a CREATE/CREATE2 returns successfully.
func CreateSuccessCost(createdCodeLen int) (data, kv uint64) {
	data = megaparams.AccountInfoUpdateBytes + uint64(createdCodeLen)
	return data, 1
}

// CallWithValueCost is charged for a CALL transferring value to a target
// untouched so far this frame; callerAlsoUntouched additionally charges the
// caller's own account-info update.
func CallWithValueCost(callerAlsoUntouched bool) (data, kv uint64) {
	data = 2 * megaparams.AccountInfoUpdateBytes
	if callerAlsoUntouched {
		data += megaparams.AccountInfoUpdateBytes
	}
	return data, 2
}

// TransientFrameCost is charged for the first frame of a call into an EOA
// (no code); valueOrCreate adds the kv-update for a balance/account change.
func TransientFrameCost(valueOrCreate bool) (data, kv uint64) {
	data = megaparams.TransientFrameReadBytes
	if valueOrCreate {
		kv = 1
	}
	return data, kv
}
