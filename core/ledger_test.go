package core

import (
	"errors"
	"math/big"
	"testing"

	"lendledger/crypto"
	"lendledger/native/loan"
	"lendledger/native/oracle"
	"lendledger/native/vault"
	"lendledger/storage"
)

func makeAddress(fill byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = fill
	}
	return crypto.NewAddress(crypto.LedgerPrefix, buf)
}

func TestLedgerEndToEnd(t *testing.T) {
	trusted := makeAddress(0xAA)
	borrower := makeAddress(0x0B)
	ledger := NewLedger(storage.NewMemDB(), trusted)

	if err := ledger.SetRiskScore(borrower, borrower, 50); !errors.Is(err, oracle.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.SetRiskScore(trusted, borrower, 50); err != nil {
		t.Fatalf("set score: %v", err)
	}

	record, err := ledger.ApplyForLoan(borrower, big.NewInt(10), 12, big.NewInt(5), vault.NativeCollateral(), big.NewInt(5))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if record.ID != 1 || record.InterestRate != 2 {
		t.Fatalf("expected {id:1, rate:2}, got {id:%d, rate:%d}", record.ID, record.InterestRate)
	}

	if _, err := ledger.MarkRepaid(borrower, 1); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if _, err := ledger.MarkRepaid(borrower, 1); !errors.Is(err, loan.ErrAlreadyRepaid) {
		t.Fatalf("expected ErrAlreadyRepaid, got %v", err)
	}

	var sawDisbursed, sawRepaid bool
	for _, evt := range ledger.Events() {
		switch evt.EventType() {
		case loan.EventTypeLoanDisbursed:
			sawDisbursed = true
		case loan.EventTypeLoanRepaid:
			sawRepaid = true
		}
	}
	if !sawDisbursed || !sawRepaid {
		t.Fatalf("expected disbursed and repaid events, got %v", ledger.Events())
	}
}

func TestLedgerPersistsAcrossRestart(t *testing.T) {
	db := storage.NewMemDB()
	trusted := makeAddress(0xAA)
	borrower := makeAddress(0x0B)

	ledger := NewLedger(db, trusted)
	if err := ledger.SetRiskScore(trusted, borrower, 25); err != nil {
		t.Fatalf("set score: %v", err)
	}
	if _, err := ledger.ApplyForLoan(borrower, big.NewInt(10), 6, big.NewInt(4), vault.NativeCollateral(), big.NewInt(4)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	reopened := NewLedger(db, trusted)
	score, present, err := reopened.RiskScore(borrower)
	if err != nil || !present || score != 25 {
		t.Fatalf("expected score 25 after reopen, got %d/%v err=%v", score, present, err)
	}
	record, ok, err := reopened.Loan(1)
	if err != nil || !ok {
		t.Fatalf("loan lookup after reopen: ok=%v err=%v", ok, err)
	}
	if record.InterestRate != 4 {
		t.Fatalf("expected rate 4, got %d", record.InterestRate)
	}
	if next, _ := reopened.NextLoanID(); next != 2 {
		t.Fatalf("expected next id 2, got %d", next)
	}
}

func TestLedgerTokenBootstrapFlow(t *testing.T) {
	trusted := makeAddress(0xAA)
	borrower := makeAddress(0x0B)
	ledger := NewLedger(storage.NewMemDB(), trusted)

	if err := ledger.SetRiskScore(trusted, borrower, 50); err != nil {
		t.Fatalf("set score: %v", err)
	}
	if err := ledger.MintToken("CLTX", borrower, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.ApproveToken("CLTX", borrower, ledger.VaultAddress(), big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.AddCollateralToken(trusted, "CLTX"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}

	record, err := ledger.ApplyForLoan(borrower, big.NewInt(10), 12, big.NewInt(30), vault.TokenCollateral("CLTX"), nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if id, ok := record.CollateralKind.TokenID(); !ok || id != "CLTX" {
		t.Fatalf("unexpected kind %s", record.CollateralKind)
	}
	vaultBalance, err := ledger.TokenBalance("CLTX", ledger.VaultAddress())
	if err != nil {
		t.Fatalf("vault balance: %v", err)
	}
	if vaultBalance.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected vault balance 30, got %s", vaultBalance)
	}
}
