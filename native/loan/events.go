package loan

import (
	"strconv"

	"lendledger/core/types"
)

const (
	EventTypeLoanDisbursed = "loan.disbursed"
	EventTypeLoanRepaid    = "loan.repaid"
)

// NewLoanDisbursedEvent returns the canonical payload emitted when a loan is
// recorded. "Disbursed" is bookkeeping language: the principal itself is not
// transferred by this ledger.
func NewLoanDisbursedEvent(l *Loan) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: EventTypeLoanDisbursed, Attributes: attrs}
	}
	attrs["loanId"] = strconv.FormatUint(l.ID, 10)
	attrs["borrower"] = l.Borrower.String()
	if l.Principal != nil {
		attrs["principal"] = l.Principal.String()
	}
	attrs["interestRate"] = strconv.FormatUint(l.InterestRate, 10)
	attrs["collateralKind"] = l.CollateralKind.String()
	if l.CollateralAmount != nil {
		attrs["collateralAmount"] = l.CollateralAmount.String()
	}
	return &types.Event{Type: EventTypeLoanDisbursed, Attributes: attrs}
}

// NewLoanRepaidEvent returns the canonical payload emitted when a borrower
// marks their loan repaid.
func NewLoanRepaidEvent(l *Loan) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: EventTypeLoanRepaid, Attributes: attrs}
	}
	attrs["loanId"] = strconv.FormatUint(l.ID, 10)
	attrs["borrower"] = l.Borrower.String()
	return &types.Event{Type: EventTypeLoanRepaid, Attributes: attrs}
}
