package token

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"lendledger/core/events"
	"lendledger/crypto"
)

var (
	errNilStore              = errors.New("token ledger: store not configured")
	errEmptySymbol           = errors.New("token ledger: symbol required")
	errInvalidAmount         = errors.New("token ledger: amount must be positive")
	ErrInsufficientBalance   = errors.New("token ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
)

var (
	balancePrefix   = []byte("token/balance/")
	allowancePrefix = []byte("token/allowance/")
)

// Storage abstracts the subset of state manager functionality required by the
// token ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger is a minimal fungible-token ledger: balances, allowances and a
// bootstrap mint. It backs the token collateral kind accepted by the vault.
type Ledger struct {
	store   Storage
	emitter events.Emitter
}

// NewLedger constructs a token ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if l == nil {
		return
	}
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// NormalizeSymbol renders the canonical token identifier used in state keys.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func balanceKey(symbol string, addr crypto.Address) []byte {
	key := append([]byte(nil), balancePrefix...)
	key = append(key, symbol...)
	key = append(key, '/')
	key = append(key, hex.EncodeToString(addr.Bytes())...)
	return key
}

func allowanceKey(symbol string, owner, spender crypto.Address) []byte {
	key := append([]byte(nil), allowancePrefix...)
	key = append(key, symbol...)
	key = append(key, '/')
	key = append(key, hex.EncodeToString(owner.Bytes())...)
	key = append(key, '/')
	key = append(key, hex.EncodeToString(spender.Bytes())...)
	return key
}

func (l *Ledger) readAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := l.store.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// BalanceOf returns the balance of addr for the given token, zero when the
// account has never held it.
func (l *Ledger) BalanceOf(symbol string, addr crypto.Address) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, errNilStore
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, errEmptySymbol
	}
	return l.readAmount(balanceKey(symbol, addr))
}

// Allowance returns the amount spender may pull from owner.
func (l *Ledger) Allowance(symbol string, owner, spender crypto.Address) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, errNilStore
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, errEmptySymbol
	}
	return l.readAmount(allowanceKey(symbol, owner, spender))
}

// Mint credits newly issued tokens to an account. Mint exists for genesis
// bootstrap and tests only; there is no burn path.
func (l *Ledger) Mint(symbol string, to crypto.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return errNilStore
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return errEmptySymbol
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	balance, err := l.readAmount(balanceKey(symbol, to))
	if err != nil {
		return err
	}
	balance = new(big.Int).Add(balance, amount)
	if err := l.store.KVPut(balanceKey(symbol, to), balance); err != nil {
		return err
	}
	l.emitter.Emit(events.Wrap(NewMintedEvent(symbol, to, amount)))
	return nil
}

// Approve grants spender the right to pull up to amount from owner. Setting a
// new value overwrites any previous allowance.
func (l *Ledger) Approve(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return errNilStore
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return errEmptySymbol
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	if err := l.store.KVPut(allowanceKey(symbol, owner, spender), amount); err != nil {
		return err
	}
	l.emitter.Emit(events.Wrap(NewApprovedEvent(symbol, owner, spender, amount)))
	return nil
}

// TransferFrom moves amount of symbol from owner to recipient on behalf of
// spender, consuming the matching allowance. All checks run before any state
// is written so a rejection leaves balances untouched.
func (l *Ledger) TransferFrom(symbol string, spender, owner, to crypto.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return errNilStore
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return errEmptySymbol
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	allowance, err := l.readAmount(allowanceKey(symbol, owner, spender))
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	ownerBalance, err := l.readAmount(balanceKey(symbol, owner))
	if err != nil {
		return err
	}
	if ownerBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	recipientBalance, err := l.readAmount(balanceKey(symbol, to))
	if err != nil {
		return err
	}

	if err := l.store.KVPut(allowanceKey(symbol, owner, spender), new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	if err := l.store.KVPut(balanceKey(symbol, owner), new(big.Int).Sub(ownerBalance, amount)); err != nil {
		return err
	}
	if err := l.store.KVPut(balanceKey(symbol, to), new(big.Int).Add(recipientBalance, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Wrap(NewTransferredEvent(symbol, owner, to, amount)))
	return nil
}
