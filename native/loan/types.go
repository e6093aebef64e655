package loan

import (
	"math/big"

	"lendledger/crypto"
	"lendledger/native/vault"
)

// Loan is one disbursement record. Every field except Repaid is immutable
// after creation; Repaid flips to true exactly once.
type Loan struct {
	// ID is assigned at creation, strictly increasing from 1.
	ID uint64
	// Borrower is the applicant identity.
	Borrower crypto.Address
	// Principal is the requested amount in lending-asset units. It is
	// recorded only; no transfer of principal happens on this ledger.
	Principal *big.Int
	// InterestRate is derived from the borrower's risk score at creation.
	InterestRate uint64
	// Tenure is the loan duration in time units.
	Tenure uint64
	// CollateralAmount and CollateralKind describe the posted collateral.
	CollateralAmount *big.Int
	CollateralKind   vault.CollateralKind
	// Repaid marks the terminal state. No partial repayment is modelled.
	Repaid bool
}

// Copy returns a deep copy to avoid callers mutating ledger-owned records.
func (l *Loan) Copy() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Principal != nil {
		clone.Principal = new(big.Int).Set(l.Principal)
	}
	if l.CollateralAmount != nil {
		clone.CollateralAmount = new(big.Int).Set(l.CollateralAmount)
	}
	return &clone
}

type storedLoan struct {
	Borrower         []byte
	Principal        *big.Int
	InterestRate     uint64
	Tenure           uint64
	CollateralAmount *big.Int
	KindClass        uint8
	KindToken        string
	Repaid           bool
}

func toStoredLoan(l *Loan) *storedLoan {
	class, tokenID := l.CollateralKind.MarshalParts()
	return &storedLoan{
		Borrower:         l.Borrower.Bytes(),
		Principal:        l.Principal,
		InterestRate:     l.InterestRate,
		Tenure:           l.Tenure,
		CollateralAmount: l.CollateralAmount,
		KindClass:        class,
		KindToken:        tokenID,
		Repaid:           l.Repaid,
	}
}

func fromStoredLoan(id uint64, stored *storedLoan) (*Loan, error) {
	kind, err := vault.ParseKind(stored.KindClass, stored.KindToken)
	if err != nil {
		return nil, err
	}
	return &Loan{
		ID:               id,
		Borrower:         crypto.NewAddress(crypto.LedgerPrefix, stored.Borrower),
		Principal:        stored.Principal,
		InterestRate:     stored.InterestRate,
		Tenure:           stored.Tenure,
		CollateralAmount: stored.CollateralAmount,
		CollateralKind:   kind,
		Repaid:           stored.Repaid,
	}, nil
}
