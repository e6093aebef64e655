package vault

import (
	"errors"
	"strings"
)

type collateralClass uint8

const (
	classNative collateralClass = iota + 1
	classToken
)

var errUnknownKind = errors.New("collateral vault: unknown collateral kind")

// CollateralKind is a tagged variant: native currency or a registered
// fungible token. The tag replaces the address-zero sentinel the on-chain
// convention would otherwise need.
type CollateralKind struct {
	class   collateralClass
	tokenID string
}

// NativeCollateral denotes the chain's native currency.
func NativeCollateral() CollateralKind {
	return CollateralKind{class: classNative}
}

// TokenCollateral denotes a specific fungible token.
func TokenCollateral(tokenID string) CollateralKind {
	return CollateralKind{class: classToken, tokenID: strings.ToUpper(strings.TrimSpace(tokenID))}
}

// IsNative reports whether the kind is native currency.
func (k CollateralKind) IsNative() bool { return k.class == classNative }

// TokenID returns the token identifier and whether the kind is token-backed.
func (k CollateralKind) TokenID() (string, bool) {
	if k.class != classToken {
		return "", false
	}
	return k.tokenID, true
}

// Equal compares by tag and, for token kinds, by identifier.
func (k CollateralKind) Equal(other CollateralKind) bool {
	return k.class == other.class && k.tokenID == other.tokenID
}

func (k CollateralKind) String() string {
	switch k.class {
	case classNative:
		return "native"
	case classToken:
		return "token:" + k.tokenID
	default:
		return "unset"
	}
}

// MarshalParts renders the kind for storage; ParseKind reverses it.
func (k CollateralKind) MarshalParts() (uint8, string) {
	return uint8(k.class), k.tokenID
}

// ParseKind rebuilds a kind from its stored parts.
func ParseKind(class uint8, tokenID string) (CollateralKind, error) {
	switch collateralClass(class) {
	case classNative:
		return NativeCollateral(), nil
	case classToken:
		return TokenCollateral(tokenID), nil
	default:
		return CollateralKind{}, errUnknownKind
	}
}
