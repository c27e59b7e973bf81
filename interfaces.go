package x402

import "context"

// DecodedPayment is a scheme payload after decoding: the normalized
// authorization plus the signature material the scheme verifies. ChainID and
// VerifyingContract carry the payer-asserted signing domain on schemes that
// have one (EIP-712); schemes without a domain leave them empty.
type DecodedPayment struct {
	Authorization     Authorization
	Signature         string
	ChainID           string
	VerifyingContract string
}

// SchemeNetworkFacilitator is implemented by facilitator-side payment
// mechanisms. One implementation handles one scheme on one or more networks;
// the Facilitator routes to it by the (scheme, network) pair in the header.
type SchemeNetworkFacilitator interface {
	Scheme() string

	// Decode parses the scheme-specific payload into its decoded form. A
	// non-empty Reason reports a malformed payload (missing
	// authorization, missing signature, unparsable fields); the matcher
	// never sees such payments.
	Decode(payload map[string]interface{}, requirements PaymentRequirements) (*DecodedPayment, Reason)

	// VerifySignature checks that the signature binds the payer to this
	// exact authorization. It is pure with respect to settlement state:
	// no ledger access, no chain writes. A non-empty Reason reports a
	// cryptographic rejection; the error is for transient infrastructure
	// failures only.
	VerifySignature(ctx context.Context, payment *DecodedPayment, requirements PaymentRequirements) (Reason, error)

	// Transfer executes the authorized transfer on chain and returns a
	// transaction reference. It is called at most once per settlement key.
	Transfer(ctx context.Context, payment *DecodedPayment, requirements PaymentRequirements) (string, error)
}

// PaymentProcessor is the facilitator surface resource servers depend on.
// Implemented by the in-process LocalProcessor and the HTTP client in the
// http package, so a gate can switch between embedded and remote
// facilitators without changing.
type PaymentProcessor interface {
	Verify(ctx context.Context, paymentHeader string, requirements PaymentRequirements) (VerifyResponse, error)
	Settle(ctx context.Context, paymentHeader string, requirements PaymentRequirements) (SettleResponse, error)
	Supported(ctx context.Context) (SupportedResponse, error)
}
