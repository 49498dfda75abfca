// Package volatile implements the Volatile-Data Tracker (spec §4.2): a
// per-transaction ledger of which volatile categories (block-environment
// fields, the coinbase account, the oracle contract) have been touched, and
// the minimum compute-gas cap those touches impose.
//
// Grounded on arbitrum/multigas.ResourceKind's small fixed-enum-plus-flags
// idiom (a tiny array of booleans rather than a bitset, since there are only
// two categories) and on the requirement that the final cap be order-
// independent: it is always the min over whichever flags are set.
package volatile

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
)

// Category is a volatile-data class with a fixed compute-gas cap.
type Category uint8

const (
	CategoryBlockEnv Category = iota
	CategoryOracle
	numCategories
)

var categoryCap = [numCategories]uint64{
	CategoryBlockEnv: megaparams.CapBlockEnv,
	CategoryOracle:   megaparams.CapOracle,
}

// Tracker is the per-transaction volatile-data ledger.
type Tracker struct {
	flags [numCategories]bool

	// exempt disables all tracking for mega-system-caller transactions
	// (spec §4.2 Exemption).
	exempt bool

	oracleAddress, coinbase common.Address
}

// New returns a fresh Tracker for one transaction. exempt should be true iff
// the transaction's caller is the designated mega-system address.
func New(oracleAddress, coinbase common.Address, exempt bool) *Tracker {
	return &Tracker{oracleAddress: oracleAddress, coinbase: coinbase, exempt: exempt}
}

// MarkBlockEnv records that a block-environment field, the coinbase account,
// or a coinbase-targeting call frame was touched. Idempotent.
func (t *Tracker) MarkBlockEnv() {
	if t.exempt {
		return
	}
	t.flags[CategoryBlockEnv] = true
}

// MarkOracle records that the oracle contract was targeted. Idempotent.
func (t *Tracker) MarkOracle(target common.Address) {
	if t.exempt {
		return
	}
	if target == t.oracleAddress {
		t.flags[CategoryOracle] = true
	}
}

// MaybeMarkAccountInspect marks CategoryBlockEnv when an account-inspecting
// instruction (BALANCE, EXTCODESIZE, EXTCODECOPY, EXTCODEHASH) touches the
// coinbase account (spec §4.2).
func (t *Tracker) MaybeMarkAccountInspect(touched common.Address) {
	if touched == t.coinbase {
		t.MarkBlockEnv()
	}
}

// MaybeMarkCallFrame marks CategoryBlockEnv when a call frame targets the
// coinbase account, and CategoryOracle when it targets the oracle contract
// (spec §4.2). A frame returning to the coinbase account is not marked.
func (t *Tracker) MaybeMarkCallFrame(target common.Address) {
	if target == t.coinbase {
		t.MarkBlockEnv()
	}
	t.MarkOracle(target)
}

// CurrentComputeCap returns the min over caps of set categories, or ok=false
// if no category has been touched (spec §4.2 current_compute_cap).
func (t *Tracker) CurrentComputeCap() (cap uint64, ok bool) {
	for c := Category(0); c < numCategories; c++ {
		if !t.flags[c] {
			continue
		}
		if !ok || categoryCap[c] < cap {
			cap = categoryCap[c]
			ok = true
		}
	}
	return cap, ok
}

// Categories reports which categories are currently set, for mapping a
// volatile-data halt to its AccessType (spec §7 VolatileAccessType).
func (t *Tracker) Categories() (blockEnv, oracle bool) {
	return t.flags[CategoryBlockEnv], t.flags[CategoryOracle]
}
