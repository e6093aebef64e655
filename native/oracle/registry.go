package oracle

import (
	"encoding/hex"
	"errors"
	"strings"

	"lendledger/core/events"
	"lendledger/crypto"
)

var (
	errNilStore     = errors.New("risk registry: store not configured")
	errNilPolicy    = errors.New("risk registry: authorizer not configured")
	errEmptyTokenID = errors.New("risk registry: token identifier required")

	// ErrInvalidScore is returned when a score falls outside [0,100].
	ErrInvalidScore = errors.New("risk registry: score outside [0,100]")
)

// MaxScore is the upper bound of the risk scale.
const MaxScore uint64 = 100

var (
	scorePrefix     = []byte("risk/score/")
	whitelistPrefix = []byte("collateral/supported/")
)

// Storage abstracts the subset of state manager functionality required by the
// registry.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// A score of zero and an absent score are distinct states: presence is the
// existence of a stored record, not the value. GetScore surfaces both.
type storedScore struct {
	Score uint64
}

// Registry owns the borrower risk scores and the collateral whitelist. All
// writes are gated through the configured Authorizer.
type Registry struct {
	store   Storage
	policy  Authorizer
	emitter events.Emitter
}

// NewRegistry constructs a registry bound to the storage backend and the
// authorization policy for its write paths.
func NewRegistry(store Storage, policy Authorizer) *Registry {
	return &Registry{store: store, policy: policy, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func scoreKey(borrower crypto.Address) []byte {
	key := append([]byte(nil), scorePrefix...)
	key = append(key, hex.EncodeToString(borrower.Bytes())...)
	return key
}

func whitelistKey(tokenID string) []byte {
	key := append([]byte(nil), whitelistPrefix...)
	key = append(key, tokenID...)
	return key
}

// SetScore records the latest risk score for a borrower. The caller must be
// authorized by the gate policy; the check runs before the range validation
// so an unauthorized call never observes other failures or side effects.
// Re-setting the same value is legal and re-emits the notification.
func (r *Registry) SetScore(caller, borrower crypto.Address, score uint64) error {
	if r == nil || r.store == nil {
		return errNilStore
	}
	if r.policy == nil {
		return errNilPolicy
	}
	if err := r.policy.Authorize(caller); err != nil {
		return err
	}
	if score > MaxScore {
		return ErrInvalidScore
	}
	if err := r.store.KVPut(scoreKey(borrower), &storedScore{Score: score}); err != nil {
		return err
	}
	r.emitter.Emit(events.Wrap(NewScoreUpdatedEvent(borrower, score)))
	return nil
}

// GetScore returns the stored score and whether the borrower has ever been
// scored. A borrower explicitly scored zero reports present=true.
func (r *Registry) GetScore(borrower crypto.Address) (uint64, bool, error) {
	if r == nil || r.store == nil {
		return 0, false, errNilStore
	}
	var stored storedScore
	ok, err := r.store.KVGet(scoreKey(borrower), &stored)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	return stored.Score, true, nil
}

// AddCollateralToken approves a token identifier for use as collateral.
// Adding an already-approved token is a no-op that still emits the
// notification. Oracle-gated.
func (r *Registry) AddCollateralToken(caller crypto.Address, tokenID string) error {
	if r == nil || r.store == nil {
		return errNilStore
	}
	if r.policy == nil {
		return errNilPolicy
	}
	if err := r.policy.Authorize(caller); err != nil {
		return err
	}
	tokenID = strings.ToUpper(strings.TrimSpace(tokenID))
	if tokenID == "" {
		return errEmptyTokenID
	}
	if err := r.store.KVPut(whitelistKey(tokenID), true); err != nil {
		return err
	}
	r.emitter.Emit(events.Wrap(NewCollateralAddedEvent(tokenID)))
	return nil
}

// IsSupported reports whitelist membership for a token identifier.
func (r *Registry) IsSupported(tokenID string) (bool, error) {
	if r == nil || r.store == nil {
		return false, errNilStore
	}
	tokenID = strings.ToUpper(strings.TrimSpace(tokenID))
	if tokenID == "" {
		return false, nil
	}
	var supported bool
	ok, err := r.store.KVGet(whitelistKey(tokenID), &supported)
	if err != nil {
		return false, err
	}
	return ok && supported, nil
}
