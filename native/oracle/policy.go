package oracle

import (
	"errors"

	"lendledger/crypto"
)

// ErrUnauthorized is returned when a caller other than the trusted oracle
// attempts an oracle-gated write.
var ErrUnauthorized = errors.New("oracle gate: caller is not the trusted oracle")

// Authorizer decides whether a caller may perform oracle-gated writes. The
// registry consults it before any validation or mutation, so a denial has no
// side effects. Alternate schemes (multi-sig, rotation) can be substituted
// without touching the registry logic.
type Authorizer interface {
	Authorize(caller crypto.Address) error
}

// SingleIdentityPolicy authorizes exactly one identity, fixed at
// construction. There is no rotation path.
type SingleIdentityPolicy struct {
	trusted crypto.Address
}

// NewSingleIdentityPolicy builds the policy around the trusted oracle
// identity.
func NewSingleIdentityPolicy(trusted crypto.Address) SingleIdentityPolicy {
	return SingleIdentityPolicy{trusted: trusted}
}

// Authorize implements the Authorizer interface.
func (p SingleIdentityPolicy) Authorize(caller crypto.Address) error {
	if p.trusted.IsZero() || !caller.Equal(p.trusted) {
		return ErrUnauthorized
	}
	return nil
}

// TrustedOracle exposes the configured identity for diagnostics.
func (p SingleIdentityPolicy) TrustedOracle() crypto.Address { return p.trusted }
