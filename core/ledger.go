// Package core aggregates the ledger state machine: one root object owns the
// token ledger, risk registry, collateral vault and loan engine, and
// serializes every mutating operation. This matches the execution model the
// modules assume: atomic, totally ordered transitions with no partial
// visibility.
package core

import (
	"math/big"
	"sync"

	"lendledger/core/events"
	"lendledger/crypto"
	"lendledger/native/loan"
	"lendledger/native/oracle"
	"lendledger/native/token"
	"lendledger/native/vault"
	"lendledger/state"
	"lendledger/storage"
)

// VaultModuleName seeds the deterministic vault account address.
const VaultModuleName = "vault"

// Ledger is the root state aggregate. All mutation is routed through its
// methods under a single mutex; the engines themselves are lock-free.
type Ledger struct {
	mu sync.Mutex

	tokens   *token.Ledger
	registry *oracle.Registry
	vault    *vault.Vault
	loans    *loan.Engine

	policy   oracle.SingleIdentityPolicy
	recorder *events.Recorder
}

// NewLedger wires the module engines over a shared state manager. The trusted
// oracle identity is fixed for the lifetime of the ledger.
func NewLedger(db storage.Database, trustedOracle crypto.Address) *Ledger {
	manager := state.NewManager(db)
	policy := oracle.NewSingleIdentityPolicy(trustedOracle)

	recorder := &events.Recorder{}
	tokens := token.NewLedger(manager)
	tokens.SetEmitter(recorder)

	registry := oracle.NewRegistry(manager, policy)
	registry.SetEmitter(recorder)

	v := vault.NewVault(manager, crypto.ModuleAddress(VaultModuleName))
	v.SetTokenLedger(tokens)
	v.SetWhitelist(registry)
	v.SetEmitter(recorder)

	loans := loan.NewEngine(manager)
	loans.SetRisk(registry)
	loans.SetVault(v)
	loans.SetEmitter(recorder)

	return &Ledger{
		tokens:   tokens,
		registry: registry,
		vault:    v,
		loans:    loans,
		policy:   policy,
		recorder: recorder,
	}
}

// TrustedOracle returns the configured oracle identity.
func (l *Ledger) TrustedOracle() crypto.Address { return l.policy.TrustedOracle() }

// VaultAddress returns the custody account.
func (l *Ledger) VaultAddress() crypto.Address { return l.vault.ModuleAddress() }

// Events returns everything emitted so far, in order.
func (l *Ledger) Events() []events.Event { return l.recorder.Events() }

// --- oracle-gated writes ---

// SetRiskScore records a borrower score on behalf of caller.
func (l *Ledger) SetRiskScore(caller, borrower crypto.Address, score uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.SetScore(caller, borrower, score)
}

// AddCollateralToken whitelists a token for collateral use on behalf of caller.
func (l *Ledger) AddCollateralToken(caller crypto.Address, tokenID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.AddCollateralToken(caller, tokenID)
}

// --- reads ---

// RiskScore returns the borrower's score and whether one was ever recorded.
func (l *Ledger) RiskScore(borrower crypto.Address) (uint64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.GetScore(borrower)
}

// CollateralSupported reports whitelist membership.
func (l *Ledger) CollateralSupported(tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.IsSupported(tokenID)
}

// Loan returns a loan by id.
func (l *Ledger) Loan(id uint64) (*loan.Loan, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loans.Get(id)
}

// Loans returns the full append-only sequence.
func (l *Ledger) Loans() ([]*loan.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loans.Loans()
}

// NextLoanID returns the id the next successful application will take.
func (l *Ledger) NextLoanID() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loans.NextLoanID()
}

// TokenBalance returns a token balance.
func (l *Ledger) TokenBalance(symbol string, addr crypto.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens.BalanceOf(symbol, addr)
}

// --- loan lifecycle ---

// ApplyForLoan runs the issuance transition for the calling borrower.
func (l *Ledger) ApplyForLoan(borrower crypto.Address, principal *big.Int, tenure uint64, collateralAmount *big.Int, kind vault.CollateralKind, nativeValueSent *big.Int) (*loan.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loans.ApplyForLoan(borrower, principal, tenure, collateralAmount, kind, nativeValueSent)
}

// MarkRepaid flips the caller's loan to its terminal state.
func (l *Ledger) MarkRepaid(caller crypto.Address, id uint64) (*loan.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loans.MarkRepaid(caller, id)
}

// --- bootstrap ---

// MintToken issues token supply for genesis bootstrap and tests.
func (l *Ledger) MintToken(symbol string, to crypto.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens.Mint(symbol, to, amount)
}

// ApproveToken grants the vault (or any spender) a pull allowance.
func (l *Ledger) ApproveToken(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens.Approve(symbol, owner, spender, amount)
}
