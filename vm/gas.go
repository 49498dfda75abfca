package vm

// Gas is a frame's gas accounting record (spec §3 Data model: "Gas —
// (limit, spent, remaining, refund)"). remaining is derived, never stored
// independently, so the spec's invariant `spent + remaining == limit` holds
// by construction at every observation.
type Gas struct {
	Limit  uint64
	spent  uint64
	Refund uint64
}

// NewGas returns a Gas record with the full limit available.
func NewGas(limit uint64) *Gas {
	return &Gas{Limit: limit}
}

// Spent returns the gas consumed so far.
func (g *Gas) Spent() uint64 { return g.spent }

// Remaining returns the gas left to spend.
func (g *Gas) Remaining() uint64 { return g.Limit - g.spent }

// Consume deducts amount from the remaining budget, reporting false (an
// OutOfGas condition) without mutating state if amount exceeds what remains.
func (g *Gas) Consume(amount uint64) bool {
	if amount > g.Remaining() {
		return false
	}
	g.spent += amount
	return true
}

// Erase un-spends amount, floored so spent never goes negative. Used both to
// return excess forwarded gas to a parent frame (spec §4.4 98/100 rule) and
// to apply the rescued-gas refund at top-frame return (spec §4.3, §4.6).
func (g *Gas) Erase(amount uint64) {
	if amount > g.spent {
		amount = g.spent
	}
	g.spent -= amount
}

// spentAll marks the entire limit as spent, mirroring classical EVM OOG
// behavior (spec §4.3 "zeroes that frame's remaining gas and refund").
func (g *Gas) spentAll() { g.spent = g.Limit }

// AddRefund increases the refund counter.
func (g *Gas) AddRefund(amount uint64) { g.Refund += amount }

// SubRefund decreases the refund counter, floored at zero.
func (g *Gas) SubRefund(amount uint64) {
	if amount > g.Refund {
		g.Refund = 0
		return
	}
	g.Refund -= amount
}

// ForwardedCap applies the 98/100 gas-forwarding rule (spec §4.4): caps a
// requested child gas-limit at numerator/denominator of the parent's
// post-deduction remaining, carving the CALL-value stipend out of the cap
// computation when present and restoring it afterward.
func ForwardedCap(requested, parentRemainingAfterDeduction, numerator, denominator, stipend uint64, hasStipend bool) uint64 {
	if hasStipend && requested >= stipend {
		requested -= stipend
	}
	cap := numerator * (parentRemainingAfterDeduction + requested) / denominator
	if requested > cap {
		requested = cap
	}
	if hasStipend {
		requested += stipend
	}
	return requested
}
