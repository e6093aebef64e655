package vault

import (
	"strconv"

	"lendledger/core/types"
)

const EventTypeCollateralLocked = "vault.collateral_locked"

// NewCollateralLockedEvent returns the canonical payload emitted once
// collateral enters custody.
func NewCollateralLockedEvent(d *Deposit) *types.Event {
	attrs := make(map[string]string)
	if d == nil {
		return &types.Event{Type: EventTypeCollateralLocked, Attributes: attrs}
	}
	attrs["loanId"] = strconv.FormatUint(d.LoanID, 10)
	attrs["depositor"] = d.Depositor.String()
	attrs["kind"] = d.Kind.String()
	if d.Amount != nil {
		attrs["amount"] = d.Amount.String()
	}
	return &types.Event{Type: EventTypeCollateralLocked, Attributes: attrs}
}
