package directproof

import (
	"context"
	"time"
)

// Outcome is a gate decision for one request.
type Outcome int

const (
	// OutcomeChallenge means no proof was presented: answer 402 with the
	// issued payment request.
	OutcomeChallenge Outcome = iota
	// OutcomeRejected means a proof was presented and refused.
	OutcomeRejected
	// OutcomeGranted means the proof checked out and the request may
	// proceed.
	OutcomeGranted
)

// Rejection codes for Result.ErrorCode.
const (
	ErrMissingNonce           = "missing_nonce"
	ErrPaymentRequestNotFound = "payment_request_not_found"
	ErrPaymentInvalid         = "payment_invalid"
)

// Result is the explicit outcome of gating one request. Exactly one of the
// three outcomes holds; Challenge is set for OutcomeChallenge, ErrorCode
// (and Detail for verification failures) for OutcomeRejected.
type Result struct {
	Outcome   Outcome
	Challenge *PaymentRequest
	ErrorCode string
	Detail    string
}

// Gate ties pricing, the request store and the verifier into the
// challenge/proof flow.
type Gate struct {
	pricing  *Pricing
	verifier *Verifier
	store    *RequestStore
}

// NewGate creates a gate with its own request store.
func NewGate(pricing *Pricing, verifier *Verifier) *Gate {
	return &Gate{
		pricing:  pricing,
		verifier: verifier,
		store:    NewRequestStore(),
	}
}

// Store exposes the request store, primarily for inspection in tests.
func (g *Gate) Store() *RequestStore {
	return g.store
}

// Evaluate decides one request. With no proof it issues and stores a fresh
// payment request. With a proof it verifies the transaction and consumes the
// stored request before granting, so a proof is accepted at most once.
func (g *Gate) Evaluate(ctx context.Context, proof, nonce, description string) Result {
	if proof == "" {
		request := g.pricing.CreatePaymentRequest(description, 1.0)
		g.store.Put(request)
		g.store.Purge(time.Now(), g.pricing.TTL)
		return Result{Outcome: OutcomeChallenge, Challenge: &request}
	}

	if nonce == "" {
		return Result{Outcome: OutcomeRejected, ErrorCode: ErrMissingNonce}
	}

	request, ok := g.store.Get(nonce)
	if !ok {
		return Result{Outcome: OutcomeRejected, ErrorCode: ErrPaymentRequestNotFound}
	}

	verdict := g.verifier.VerifyPayment(ctx, &request, proof, nonce)
	if !verdict.OK {
		return Result{Outcome: OutcomeRejected, ErrorCode: ErrPaymentInvalid, Detail: verdict.Reason}
	}

	g.store.Delete(nonce)
	return Result{Outcome: OutcomeGranted}
}
