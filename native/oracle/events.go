package oracle

import (
	"strconv"

	"lendledger/core/types"
	"lendledger/crypto"
)

const (
	EventTypeScoreUpdated    = "risk.score_updated"
	EventTypeCollateralAdded = "collateral.token_added"
)

// NewScoreUpdatedEvent returns the canonical payload emitted when the oracle
// writes a borrower score.
func NewScoreUpdatedEvent(borrower crypto.Address, score uint64) *types.Event {
	return &types.Event{Type: EventTypeScoreUpdated, Attributes: map[string]string{
		"borrower": borrower.String(),
		"score":    strconv.FormatUint(score, 10),
	}}
}

// NewCollateralAddedEvent returns the canonical payload emitted when a token
// joins the collateral whitelist.
func NewCollateralAddedEvent(tokenID string) *types.Event {
	return &types.Event{Type: EventTypeCollateralAdded, Attributes: map[string]string{
		"token": tokenID,
	}}
}
