// Package vault custodies the collateral posted for a loan. Custody is one
// way: no withdrawal or liquidation path exists, because the release rules
// are unspecified upstream. Funds stay under the vault module account even
// after a loan is marked repaid.
package vault

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"lendledger/core/events"
	"lendledger/crypto"
)

var (
	errNilStore       = errors.New("collateral vault: store not configured")
	errNilTokenLedger = errors.New("collateral vault: token ledger not configured")
	errNilWhitelist   = errors.New("collateral vault: whitelist not configured")
	errInvalidAmount  = errors.New("collateral vault: amount must not be negative")

	// ErrCollateralMismatch is returned when the native value sent does not
	// equal the declared collateral amount.
	ErrCollateralMismatch = errors.New("collateral vault: sent value does not match declared amount")
	// ErrUnsupportedCollateral is returned for token kinds outside the
	// whitelist.
	ErrUnsupportedCollateral = errors.New("collateral vault: token not approved as collateral")
	// ErrUnexpectedNativeValue is returned when native currency accompanies a
	// token-kind deposit.
	ErrUnexpectedNativeValue = errors.New("collateral vault: native value sent with token collateral")
	// ErrTransferFailed wraps a rejected token pull-transfer.
	ErrTransferFailed = errors.New("collateral vault: collateral transfer rejected")
)

var (
	depositPrefix    = []byte("vault/deposit/")
	nativeCustodyKey = []byte("vault/native/custody")
)

// Storage abstracts the subset of state manager functionality required by the
// vault.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type tokenLedger interface {
	TransferFrom(symbol string, spender, owner, to crypto.Address, amount *big.Int) error
}

type whitelist interface {
	IsSupported(tokenID string) (bool, error)
}

// Deposit records the collateral custodied for one loan.
type Deposit struct {
	LoanID    uint64
	Depositor crypto.Address
	Kind      CollateralKind
	Amount    *big.Int
}

type storedDeposit struct {
	Depositor []byte
	KindClass uint8
	KindToken string
	Amount    *big.Int
}

// Vault routes collateral into custody under its module address.
type Vault struct {
	store      Storage
	tokens     tokenLedger
	whitelist  whitelist
	moduleAddr crypto.Address
	emitter    events.Emitter
}

// NewVault constructs a vault custodying funds under moduleAddr.
func NewVault(store Storage, moduleAddr crypto.Address) *Vault {
	return &Vault{store: store, moduleAddr: moduleAddr, emitter: events.NoopEmitter{}}
}

// SetTokenLedger wires the fungible-token ledger used for token-kind pulls.
func (v *Vault) SetTokenLedger(tokens tokenLedger) {
	if v == nil {
		return
	}
	v.tokens = tokens
}

// SetWhitelist wires the collateral whitelist consulted for token kinds.
func (v *Vault) SetWhitelist(w whitelist) {
	if v == nil {
		return
	}
	v.whitelist = w
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if v == nil {
		return
	}
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// ModuleAddress returns the account holding custodied funds.
func (v *Vault) ModuleAddress() crypto.Address { return v.moduleAddr }

func depositKey(loanID uint64) []byte {
	key := append([]byte(nil), depositPrefix...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], loanID)
	return append(key, buf[:]...)
}

// DepositNative locks native-currency collateral for the given loan. The
// caller must send exactly the declared amount alongside the call.
func (v *Vault) DepositNative(loanID uint64, depositor crypto.Address, amount, valueSent *big.Int) error {
	if v == nil || v.store == nil {
		return errNilStore
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	sent := valueSent
	if sent == nil {
		sent = new(big.Int)
	}
	if sent.Cmp(amount) != 0 {
		return ErrCollateralMismatch
	}
	custody, err := v.NativeCustody()
	if err != nil {
		return err
	}
	if err := v.store.KVPut(nativeCustodyKey, new(big.Int).Add(custody, amount)); err != nil {
		return err
	}
	deposit := &Deposit{LoanID: loanID, Depositor: depositor, Kind: NativeCollateral(), Amount: amount}
	if err := v.putDeposit(deposit); err != nil {
		return err
	}
	v.emitter.Emit(events.Wrap(NewCollateralLockedEvent(deposit)))
	return nil
}

// DepositToken pulls token collateral from the depositor via a pre-authorized
// transfer. The checks run in contract order: whitelist membership, zero
// native value, then the pull itself; a failed pull aborts with no partial
// transfer.
func (v *Vault) DepositToken(loanID uint64, depositor crypto.Address, tokenID string, amount, valueSent *big.Int) error {
	if v == nil || v.store == nil {
		return errNilStore
	}
	if v.whitelist == nil {
		return errNilWhitelist
	}
	if v.tokens == nil {
		return errNilTokenLedger
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	supported, err := v.whitelist.IsSupported(tokenID)
	if err != nil {
		return err
	}
	if !supported {
		return ErrUnsupportedCollateral
	}
	if valueSent != nil && valueSent.Sign() != 0 {
		return ErrUnexpectedNativeValue
	}
	if amount.Sign() > 0 {
		if err := v.tokens.TransferFrom(tokenID, v.moduleAddr, depositor, v.moduleAddr, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	deposit := &Deposit{LoanID: loanID, Depositor: depositor, Kind: TokenCollateral(tokenID), Amount: amount}
	if err := v.putDeposit(deposit); err != nil {
		return err
	}
	v.emitter.Emit(events.Wrap(NewCollateralLockedEvent(deposit)))
	return nil
}

// Custody returns the deposit recorded for a loan, if any.
func (v *Vault) Custody(loanID uint64) (*Deposit, bool, error) {
	if v == nil || v.store == nil {
		return nil, false, errNilStore
	}
	var stored storedDeposit
	ok, err := v.store.KVGet(depositKey(loanID), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	kind, err := ParseKind(stored.KindClass, stored.KindToken)
	if err != nil {
		return nil, false, err
	}
	deposit := &Deposit{
		LoanID:    loanID,
		Depositor: crypto.NewAddress(crypto.LedgerPrefix, stored.Depositor),
		Kind:      kind,
		Amount:    stored.Amount,
	}
	return deposit, true, nil
}

// NativeCustody returns the total native currency held by the vault.
func (v *Vault) NativeCustody() (*big.Int, error) {
	if v == nil || v.store == nil {
		return nil, errNilStore
	}
	custody := new(big.Int)
	ok, err := v.store.KVGet(nativeCustodyKey, custody)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return custody, nil
}

func (v *Vault) putDeposit(deposit *Deposit) error {
	class, tokenID := deposit.Kind.MarshalParts()
	stored := &storedDeposit{
		Depositor: deposit.Depositor.Bytes(),
		KindClass: class,
		KindToken: tokenID,
		Amount:    deposit.Amount,
	}
	return v.store.KVPut(depositKey(deposit.LoanID), stored)
}
