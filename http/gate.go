package http

import (
	"context"
	"net/http"

	x402 "github.com/algox402/algox402-go"
)

// GateOutcome classifies a gate decision.
type GateOutcome int

const (
	// GateChallenge means the request carried no payment: answer 402
	// with the accepted requirements.
	GateChallenge GateOutcome = iota
	// GateRejected means a payment was presented and refused.
	GateRejected
	// GateGranted means the payment verified and settled; serve the
	// resource.
	GateGranted
)

// GateResult is the explicit outcome of gating one request. Status and Body
// describe the response to write for challenges and rejections;
// ResponseHeader and Payer are set when granted.
type GateResult struct {
	Outcome        GateOutcome
	Status         int
	Body           *x402.PaymentRequired
	Reason         x402.Reason
	ResponseHeader string
	Payer          string
	Transaction    string
}

// PaymentGate guards a resource with the payment protocol. It verifies and
// settles presented payments through a PaymentProcessor, which may be a
// remote facilitator or an embedded one.
type PaymentGate struct {
	processor x402.PaymentProcessor
	accepts   []x402.PaymentRequirements
}

// NewPaymentGate creates a gate accepting any of the given requirements.
func NewPaymentGate(processor x402.PaymentProcessor, accepts ...x402.PaymentRequirements) *PaymentGate {
	return &PaymentGate{processor: processor, accepts: accepts}
}

// selectRequirements picks the accepted requirements matching the header's
// (scheme, network), falling back to the first entry so mismatches are
// rejected with a precise reason instead of a generic one.
func (g *PaymentGate) selectRequirements(paymentHeader string) x402.PaymentRequirements {
	header, err := x402.DecodePaymentHeader(paymentHeader)
	if err == nil {
		for _, requirements := range g.accepts {
			if requirements.Scheme == header.Scheme && requirements.Network == header.Network {
				return requirements
			}
		}
	}
	return g.accepts[0]
}

// Evaluate decides one request given its X-Payment header value, empty when
// absent. Settlement happens before the grant: the resource is only served
// once the transfer is confirmed.
func (g *PaymentGate) Evaluate(ctx context.Context, paymentHeader string) GateResult {
	if paymentHeader == "" {
		return GateResult{
			Outcome: GateChallenge,
			Status:  http.StatusPaymentRequired,
			Body: &x402.PaymentRequired{
				X402Version: x402.X402Version,
				Accepts:     g.accepts,
			},
		}
	}

	requirements := g.selectRequirements(paymentHeader)

	verify, err := g.processor.Verify(ctx, paymentHeader, requirements)
	if err != nil {
		return g.reject(http.StatusInternalServerError, x402.ReasonInternalError)
	}
	if !verify.IsValid {
		return g.reject(http.StatusPaymentRequired, verify.InvalidReason)
	}

	settle, err := g.processor.Settle(ctx, paymentHeader, requirements)
	if err != nil {
		return g.reject(http.StatusInternalServerError, x402.ReasonInternalError)
	}
	if !settle.Success {
		return g.reject(http.StatusPaymentRequired, settle.ErrorReason)
	}

	responseHeader, err := x402.EncodeSettlementHeader(&settle)
	if err != nil {
		return g.reject(http.StatusInternalServerError, x402.ReasonInternalError)
	}
	return GateResult{
		Outcome:        GateGranted,
		Status:         http.StatusOK,
		ResponseHeader: responseHeader,
		Payer:          settle.Payer,
		Transaction:    settle.Transaction,
	}
}

func (g *PaymentGate) reject(status int, reason x402.Reason) GateResult {
	return GateResult{
		Outcome: GateRejected,
		Status:  status,
		Reason:  reason,
		Body: &x402.PaymentRequired{
			X402Version: x402.X402Version,
			Error:       string(reason),
			Accepts:     g.accepts,
		},
	}
}
