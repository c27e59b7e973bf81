package x402

import (
	"testing"
	"time"
)

func matcherFixtures() (*PaymentHeader, *Authorization, PaymentRequirements, time.Time) {
	header := &PaymentHeader{
		X402Version: X402Version,
		Scheme:      SchemeExact,
		Network:     NetworkAlgorandTestnet,
	}
	auth := &Authorization{
		Payer:       "PAYER",
		Payee:       "SELLER",
		Asset:       "0",
		Amount:      "1000",
		ValidAfter:  1000,
		ValidBefore: 2000,
		Nonce:       "n-1",
		Resource:    "/api/data",
	}
	requirements := PaymentRequirements{
		Scheme:            SchemeExact,
		Network:           NetworkAlgorandTestnet,
		MaxAmountRequired: "1000",
		PayTo:             "SELLER",
		Asset:             "0",
		Resource:          "/api/data",
	}
	return header, auth, requirements, time.Unix(1500, 0)
}

func TestValidateHeaderOrder(t *testing.T) {
	header, _, requirements, _ := matcherFixtures()

	if reason := ValidateHeader(header, requirements); reason != "" {
		t.Fatalf("expected pass, got %q", reason)
	}

	// Scheme is checked before network even when both mismatch.
	bad := *header
	bad.Scheme = "streaming"
	bad.Network = "base"
	if reason := ValidateHeader(&bad, requirements); reason != ReasonSchemeMismatch {
		t.Errorf("expected scheme_mismatch, got %q", reason)
	}

	bad = *header
	bad.Network = "base"
	if reason := ValidateHeader(&bad, requirements); reason != ReasonNetworkMismatch {
		t.Errorf("expected network_mismatch, got %q", reason)
	}
}

func TestValidateAuthorizationFirstFailureWins(t *testing.T) {
	_, auth, requirements, now := matcherFixtures()

	if reason := ValidateAuthorization(auth, requirements, now); reason != "" {
		t.Fatalf("expected pass, got %q", reason)
	}

	cases := []struct {
		name   string
		mutate func(a *Authorization)
		want   Reason
	}{
		{"wrong payee", func(a *Authorization) { a.Payee = "OTHER" }, ReasonPayToMismatch},
		{"wrong asset", func(a *Authorization) { a.Asset = "31566704" }, ReasonAssetMismatch},
		{"amount over max", func(a *Authorization) { a.Amount = "1001" }, ReasonAmountTooLarge},
		{"amount unparsable", func(a *Authorization) { a.Amount = "12x" }, ReasonMissingPayload},
		{"amount zero", func(a *Authorization) { a.Amount = "0" }, ReasonMissingPayload},
		{"wrong resource", func(a *Authorization) { a.Resource = "/other" }, ReasonResourceMismatch},
		// payee is checked before asset: both wrong still reports payTo.
		{"payee and asset wrong", func(a *Authorization) {
			a.Payee = "OTHER"
			a.Asset = "31566704"
		}, ReasonPayToMismatch},
	}
	for _, tc := range cases {
		_, auth, requirements, now := matcherFixtures()
		tc.mutate(auth)
		if reason := ValidateAuthorization(auth, requirements, now); reason != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, reason)
		}
	}
}

func TestValidateAuthorizationAmountBoundary(t *testing.T) {
	_, auth, requirements, now := matcherFixtures()

	// amount == maxAmountRequired passes.
	auth.Amount = requirements.MaxAmountRequired
	if reason := ValidateAuthorization(auth, requirements, now); reason != "" {
		t.Errorf("amount == max should pass, got %q", reason)
	}

	// max + 1 fails, including past 64-bit range.
	requirements.MaxAmountRequired = "18446744073709551616"
	auth.Amount = "18446744073709551617"
	if reason := ValidateAuthorization(auth, requirements, now); reason != ReasonAmountTooLarge {
		t.Errorf("amount == max+1 should fail, got %q", reason)
	}
}

func TestValidateAuthorizationClosedWindow(t *testing.T) {
	_, auth, requirements, _ := matcherFixtures()

	cases := []struct {
		at   int64
		want Reason
	}{
		{auth.ValidAfter - 1, ReasonAuthorizationExpired},
		{auth.ValidAfter, ""},
		{auth.ValidBefore, ""},
		{auth.ValidBefore + 1, ReasonAuthorizationExpired},
	}
	for _, tc := range cases {
		if reason := ValidateAuthorization(auth, requirements, time.Unix(tc.at, 0)); reason != tc.want {
			t.Errorf("at t=%d: expected %q, got %q", tc.at, tc.want, reason)
		}
	}
}

func TestValidateAuthorizationHexAddressesCaseInsensitive(t *testing.T) {
	_, auth, requirements, now := matcherFixtures()
	auth.Payee = "0xAbCd000000000000000000000000000000000001"
	requirements.PayTo = "0xabcd000000000000000000000000000000000001"
	auth.Asset = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	requirements.Asset = "0x036cbd53842c5426634e7929541ec2318f3dcf7e"

	if reason := ValidateAuthorization(auth, requirements, now); reason != "" {
		t.Errorf("hex addresses should compare case-insensitively, got %q", reason)
	}
}

func TestValidateAuthorizationOptionalRequirements(t *testing.T) {
	_, auth, requirements, now := matcherFixtures()
	requirements.Asset = ""
	requirements.Resource = ""
	auth.Asset = "31566704"
	auth.Resource = "/anything"

	if reason := ValidateAuthorization(auth, requirements, now); reason != "" {
		t.Errorf("unset asset/resource requirements should not constrain, got %q", reason)
	}
}
