package x402

import (
	"math/big"
	"strings"
	"time"
)

// ValidateHeader runs the scheme and network checks that only need the outer
// header. These run before payload decoding so a wrong-network payment is
// rejected without touching scheme-specific parsing.
func ValidateHeader(header *PaymentHeader, requirements PaymentRequirements) Reason {
	if header.Scheme != requirements.Scheme {
		return ReasonSchemeMismatch
	}
	if header.Network != requirements.Network {
		return ReasonNetworkMismatch
	}
	return ""
}

// ValidateAuthorization checks a normalized authorization against the
// seller's requirements. Checks run in a fixed order and the first failure
// wins, so a given (authorization, requirements) pair always rejects with the
// same reason.
//
// Amounts are compared as arbitrary-precision integers. The validity window
// is a closed interval: an authorization is usable at both boundary seconds.
func ValidateAuthorization(auth *Authorization, requirements PaymentRequirements, now time.Time) Reason {
	if !addressEqual(auth.Payee, requirements.PayTo) {
		return ReasonPayToMismatch
	}

	if requirements.Asset != "" && !addressEqual(auth.Asset, requirements.Asset) {
		return ReasonAssetMismatch
	}

	amount, ok := new(big.Int).SetString(auth.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return ReasonMissingPayload
	}
	maxAmount, ok := new(big.Int).SetString(requirements.MaxAmountRequired, 10)
	if !ok || amount.Cmp(maxAmount) > 0 {
		return ReasonAmountTooLarge
	}

	ts := now.Unix()
	if ts < auth.ValidAfter || ts > auth.ValidBefore {
		return ReasonAuthorizationExpired
	}

	if requirements.Resource != "" && auth.Resource != requirements.Resource {
		return ReasonResourceMismatch
	}

	return ""
}

// addressEqual compares two on-chain identifiers. Hex addresses compare
// case-insensitively; everything else (Algorand addresses, asset IDs) is
// case-sensitive.
func addressEqual(a, b string) bool {
	if strings.HasPrefix(a, "0x") && strings.HasPrefix(b, "0x") {
		return strings.EqualFold(a, b)
	}
	return a == b
}
