package x402

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Facilitator verifies payment headers against requirements and settles them
// on chain with at-most-once semantics. Scheme mechanisms are registered per
// network; everything scheme-specific is behind SchemeNetworkFacilitator.
type Facilitator struct {
	mu      sync.RWMutex
	schemes map[Network]map[string]SchemeNetworkFacilitator

	ledger *SettlementLedger
	logger *log.Logger
	now    func() time.Time
}

// FacilitatorOption configures a Facilitator.
type FacilitatorOption func(*Facilitator)

// WithLedger replaces the settlement ledger. Useful for sharing one ledger
// across facilitators or injecting a pre-populated one in tests.
func WithLedger(ledger *SettlementLedger) FacilitatorOption {
	return func(f *Facilitator) { f.ledger = ledger }
}

// WithLogger sets the logger used for settlement failure detail. Adapter
// errors are logged here and never copied into responses.
func WithLogger(logger *log.Logger) FacilitatorOption {
	return func(f *Facilitator) { f.logger = logger }
}

// WithClock overrides the time source used for validity-window checks.
func WithClock(now func() time.Time) FacilitatorOption {
	return func(f *Facilitator) { f.now = now }
}

// NewFacilitator creates a facilitator with no registered mechanisms.
func NewFacilitator(opts ...FacilitatorOption) *Facilitator {
	f := &Facilitator{
		schemes: make(map[Network]map[string]SchemeNetworkFacilitator),
		ledger:  NewSettlementLedger(),
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register adds a mechanism for a network under the mechanism's scheme.
// Returns the facilitator for chaining.
func (f *Facilitator) Register(network Network, mechanism SchemeNetworkFacilitator) *Facilitator {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.schemes[network] == nil {
		f.schemes[network] = make(map[string]SchemeNetworkFacilitator)
	}
	f.schemes[network][mechanism.Scheme()] = mechanism
	return f
}

// Ledger exposes the settlement ledger, primarily for inspection in tests.
func (f *Facilitator) Ledger() *SettlementLedger {
	return f.ledger
}

func (f *Facilitator) find(network Network, scheme string) (SchemeNetworkFacilitator, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	byScheme, ok := f.schemes[network]
	if !ok {
		return nil, NewPaymentError(ErrCodeUnsupportedNetwork,
			fmt.Sprintf("no mechanism registered for network %q", network), nil)
	}
	mechanism, ok := byScheme[scheme]
	if !ok {
		return nil, NewPaymentError(ErrCodeUnsupportedScheme,
			fmt.Sprintf("scheme %q not registered for network %q", scheme, network), nil)
	}
	return mechanism, nil
}

// evaluation is the shared outcome of the verification pipeline, reused by
// Settle so both operations reject identically.
type evaluation struct {
	header    *PaymentHeader
	mechanism SchemeNetworkFacilitator
	payment   *DecodedPayment
	key       string
	reason    Reason
}

func (f *Facilitator) evaluate(ctx context.Context, rawHeader string, requirements PaymentRequirements) (*evaluation, error) {
	header, err := DecodePaymentHeader(rawHeader)
	if err != nil {
		return nil, err
	}

	ev := &evaluation{header: header}
	if header.X402Version != X402Version {
		ev.reason = ReasonUnsupportedVersion
		return ev, nil
	}

	if reason := ValidateHeader(header, requirements); reason != "" {
		ev.reason = reason
		return ev, nil
	}

	mechanism, err := f.find(requirements.Network, requirements.Scheme)
	if err != nil {
		return nil, err
	}
	ev.mechanism = mechanism

	payment, reason := mechanism.Decode(header.Payload, requirements)
	if reason != "" {
		ev.reason = reason
		return ev, nil
	}
	ev.payment = payment

	if reason := ValidateAuthorization(&payment.Authorization, requirements, f.now()); reason != "" {
		ev.reason = reason
		return ev, nil
	}

	reason, err = mechanism.VerifySignature(ctx, payment, requirements)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		ev.reason = reason
		return ev, nil
	}

	key, err := SettlementKey(header)
	if err != nil {
		return nil, err
	}
	ev.key = key

	// A previously failed settlement burns the authorization even though
	// the signature still verifies.
	if f.ledger.State(key) == StateFailed {
		ev.reason = ReasonNonceFailed
	}
	return ev, nil
}

// Verify checks a payment header against the requirements without touching
// the chain. The returned response carries the first failing check's reason,
// or the payer address when valid.
func (f *Facilitator) Verify(ctx context.Context, rawHeader string, requirements PaymentRequirements) (VerifyResponse, error) {
	ev, err := f.evaluate(ctx, rawHeader, requirements)
	if err != nil {
		return VerifyResponse{}, err
	}
	if ev.reason != "" {
		return VerifyResponse{IsValid: false, InvalidReason: ev.reason}, nil
	}
	return VerifyResponse{IsValid: true, Payer: ev.payment.Authorization.Payer}, nil
}

// Settle re-verifies the payment and executes the transfer at most once.
// Replaying a settled payment returns the recorded response; a payment whose
// transfer attempt failed is refused permanently.
func (f *Facilitator) Settle(ctx context.Context, rawHeader string, requirements PaymentRequirements) (SettleResponse, error) {
	ev, err := f.evaluate(ctx, rawHeader, requirements)
	if err != nil {
		return SettleResponse{}, err
	}
	if ev.reason != "" {
		return SettleResponse{Success: false, ErrorReason: ev.reason, Network: requirements.Network}, nil
	}

	state, recorded := f.ledger.Begin(ev.key)
	switch state {
	case StateSuccess:
		return *recorded, nil
	case StatePending:
		return SettleResponse{Success: false, ErrorReason: ReasonSettlementPending, Network: requirements.Network}, nil
	case StateFailed:
		return SettleResponse{Success: false, ErrorReason: ReasonNonceFailed, Network: requirements.Network}, nil
	}

	tx, err := ev.mechanism.Transfer(ctx, ev.payment, requirements)
	if err != nil {
		f.ledger.RecordFailure(ev.key)
		f.logger.Printf("settlement failed: network=%s payer=%s nonce=%s: %v",
			requirements.Network, ev.payment.Authorization.Payer, ev.payment.Authorization.Nonce, err)
		return SettleResponse{Success: false, ErrorReason: ReasonOnchainSettleFailed, Network: requirements.Network}, nil
	}

	resp := SettleResponse{
		Success:     true,
		Transaction: tx,
		Network:     requirements.Network,
		Payer:       ev.payment.Authorization.Payer,
	}
	f.ledger.RecordSuccess(ev.key, &resp)
	return resp, nil
}

// Supported lists every registered (scheme, network) pair.
func (f *Facilitator) Supported() SupportedResponse {
	f.mu.RLock()
	defer f.mu.RUnlock()

	resp := SupportedResponse{Kinds: []SupportedKind{}}
	for network, byScheme := range f.schemes {
		for scheme := range byScheme {
			resp.Kinds = append(resp.Kinds, SupportedKind{
				X402Version: X402Version,
				Scheme:      scheme,
				Network:     network,
			})
		}
	}
	return resp
}

// LocalProcessor adapts an in-process Facilitator to the PaymentProcessor
// interface, so resource servers can embed the facilitator instead of
// calling one over HTTP.
type LocalProcessor struct {
	Facilitator *Facilitator
}

func (p *LocalProcessor) Verify(ctx context.Context, paymentHeader string, requirements PaymentRequirements) (VerifyResponse, error) {
	return p.Facilitator.Verify(ctx, paymentHeader, requirements)
}

func (p *LocalProcessor) Settle(ctx context.Context, paymentHeader string, requirements PaymentRequirements) (SettleResponse, error) {
	return p.Facilitator.Settle(ctx, paymentHeader, requirements)
}

func (p *LocalProcessor) Supported(ctx context.Context) (SupportedResponse, error) {
	return p.Facilitator.Supported(), nil
}
