package token

import (
	"math/big"

	"lendledger/core/types"
	"lendledger/crypto"
)

const (
	EventTypeMinted      = "token.minted"
	EventTypeApproved    = "token.approved"
	EventTypeTransferred = "token.transferred"
)

// NewMintedEvent returns the canonical payload for a bootstrap mint.
func NewMintedEvent(symbol string, to crypto.Address, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeMinted, Attributes: map[string]string{
		"token":  symbol,
		"to":     to.String(),
		"amount": amount.String(),
	}}
}

// NewApprovedEvent returns the canonical payload for an allowance grant.
func NewApprovedEvent(symbol string, owner, spender crypto.Address, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeApproved, Attributes: map[string]string{
		"token":   symbol,
		"owner":   owner.String(),
		"spender": spender.String(),
		"amount":  amount.String(),
	}}
}

// NewTransferredEvent returns the canonical payload for a completed transfer.
func NewTransferredEvent(symbol string, from, to crypto.Address, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTransferred, Attributes: map[string]string{
		"token":  symbol,
		"from":   from.String(),
		"to":     to.String(),
		"amount": amount.String(),
	}}
}
