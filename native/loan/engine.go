// Package loan implements the loan lifecycle: application, rate derivation,
// disbursement bookkeeping and repayment marking. Disbursement is recorded,
// not executed. The principal never moves on this ledger, and tests assert
// as much.
package loan

import (
	"encoding/binary"
	"errors"
	"math/big"

	"lendledger/core/events"
	"lendledger/crypto"
	"lendledger/native/vault"
)

var (
	errNilStore          = errors.New("loan engine: store not configured")
	errNilRisk           = errors.New("loan engine: risk registry not configured")
	errNilVault          = errors.New("loan engine: collateral vault not configured")
	errInvalidAmount     = errors.New("loan engine: principal must be positive")
	errInvalidTenure     = errors.New("loan engine: tenure must be positive")
	errInvalidCollateral = errors.New("loan engine: collateral amount must not be negative")
	errUnsetKind         = errors.New("loan engine: collateral kind not set")

	// ErrNotScored rejects applicants with no recorded score or an explicit
	// zero. The two are treated identically here; the registry itself keeps
	// them distinguishable.
	ErrNotScored = errors.New("loan engine: borrower has no positive risk score")
	// ErrLoanNotFound is returned for repayment of an unknown loan id.
	ErrLoanNotFound = errors.New("loan engine: loan not found")
	// ErrNotBorrower is returned when someone other than the borrower tries
	// to mark a loan repaid.
	ErrNotBorrower = errors.New("loan engine: caller does not own the loan")
	// ErrAlreadyRepaid is returned on a second repayment attempt.
	ErrAlreadyRepaid = errors.New("loan engine: loan already repaid")
)

var (
	loanRecordPrefix = []byte("loan/record/")
	nextLoanIDKey    = []byte("loan/nextid")
)

// MaxScore mirrors the registry scale; a score of MaxScore yields the floor
// rate of 1, a score of 1 the ceiling rate of MaxScore.
const MaxScore uint64 = 100

// Storage abstracts the subset of state manager functionality required by the
// loan ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type riskView interface {
	GetScore(borrower crypto.Address) (uint64, bool, error)
}

type collateralVault interface {
	DepositNative(loanID uint64, depositor crypto.Address, amount, valueSent *big.Int) error
	DepositToken(loanID uint64, depositor crypto.Address, tokenID string, amount, valueSent *big.Int) error
}

// Engine owns the append-only loans sequence and the next-id counter. It
// reads scores through a read-only registry view and delegates custody to
// the vault; it never touches token balances directly.
type Engine struct {
	store   Storage
	risk    riskView
	vault   collateralVault
	emitter events.Emitter
}

// NewEngine constructs a loan engine over the provided storage backend.
func NewEngine(store Storage) *Engine {
	return &Engine{store: store, emitter: events.NoopEmitter{}}
}

// SetRisk wires the read-only risk score view.
func (e *Engine) SetRisk(risk riskView) {
	if e == nil {
		return
	}
	e.risk = risk
}

// SetVault wires the collateral custody backend.
func (e *Engine) SetVault(v collateralVault) {
	if e == nil {
		return
	}
	e.vault = v
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func loanKey(id uint64) []byte {
	key := append([]byte(nil), loanRecordPrefix...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return append(key, buf[:]...)
}

// NextLoanID returns the id the next successful application will receive.
func (e *Engine) NextLoanID() (uint64, error) {
	if e == nil || e.store == nil {
		return 0, errNilStore
	}
	var next uint64
	ok, err := e.store.KVGet(nextLoanIDKey, &next)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return next, nil
}

// ApplyForLoan runs the issuance state transition. The score guard runs
// strictly before the rate derivation: the rate formula divides by the score,
// so admitting a zero or absent score would be a divide-by-zero, not a
// pricing decision. Collateral is routed through the vault before the record
// is appended; any rejection aborts with no loan created and no funds moved.
func (e *Engine) ApplyForLoan(borrower crypto.Address, principal *big.Int, tenure uint64, collateralAmount *big.Int, kind vault.CollateralKind, nativeValueSent *big.Int) (*Loan, error) {
	if e == nil || e.store == nil {
		return nil, errNilStore
	}
	if e.risk == nil {
		return nil, errNilRisk
	}
	if e.vault == nil {
		return nil, errNilVault
	}
	if principal == nil || principal.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if tenure == 0 {
		return nil, errInvalidTenure
	}
	if collateralAmount == nil || collateralAmount.Sign() < 0 {
		return nil, errInvalidCollateral
	}

	score, present, err := e.risk.GetScore(borrower)
	if err != nil {
		return nil, err
	}
	if !present || score == 0 {
		return nil, ErrNotScored
	}

	id, err := e.NextLoanID()
	if err != nil {
		return nil, err
	}

	if kind.IsNative() {
		if err := e.vault.DepositNative(id, borrower, collateralAmount, nativeValueSent); err != nil {
			return nil, err
		}
	} else {
		tokenID, ok := kind.TokenID()
		if !ok {
			return nil, errUnsetKind
		}
		if err := e.vault.DepositToken(id, borrower, tokenID, collateralAmount, nativeValueSent); err != nil {
			return nil, err
		}
	}

	record := &Loan{
		ID:               id,
		Borrower:         borrower,
		Principal:        principal,
		InterestRate:     MaxScore / score,
		Tenure:           tenure,
		CollateralAmount: collateralAmount,
		CollateralKind:   kind,
		Repaid:           false,
	}
	if err := e.store.KVPut(loanKey(id), toStoredLoan(record)); err != nil {
		return nil, err
	}
	if err := e.store.KVPut(nextLoanIDKey, id+1); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(NewLoanDisbursedEvent(record)))
	return record.Copy(), nil
}

// Get returns the loan with the given id, if it exists.
func (e *Engine) Get(id uint64) (*Loan, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilStore
	}
	var stored storedLoan
	ok, err := e.store.KVGet(loanKey(id), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	record, err := fromStoredLoan(id, &stored)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// Loans returns every loan issued so far, in id order.
func (e *Engine) Loans() ([]*Loan, error) {
	if e == nil || e.store == nil {
		return nil, errNilStore
	}
	next, err := e.NextLoanID()
	if err != nil {
		return nil, err
	}
	loans := make([]*Loan, 0, next-1)
	for id := uint64(1); id < next; id++ {
		record, ok, err := e.Get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrLoanNotFound
		}
		loans = append(loans, record)
	}
	return loans, nil
}

// MarkRepaid flips the repaid flag on the caller's loan. Valid exactly once:
// Active → Repaid is the only transition, and Repaid is terminal.
func (e *Engine) MarkRepaid(caller crypto.Address, id uint64) (*Loan, error) {
	if e == nil || e.store == nil {
		return nil, errNilStore
	}
	record, ok, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLoanNotFound
	}
	if !record.Borrower.Equal(caller) {
		return nil, ErrNotBorrower
	}
	if record.Repaid {
		return nil, ErrAlreadyRepaid
	}
	record.Repaid = true
	if err := e.store.KVPut(loanKey(id), toStoredLoan(record)); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(NewLoanRepaidEvent(record)))
	return record.Copy(), nil
}
