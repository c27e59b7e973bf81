package avm

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"

	x402 "github.com/algox402/algox402-go"
)

// FacilitatorSigner is the custody account a facilitator settles with on an
// AVM network. Implementations submit the transfer and block until it is
// confirmed, returning the transaction ID.
type FacilitatorSigner interface {
	Address() string
	SendPayment(ctx context.Context, receiver string, amount uint64, assetID uint64, note []byte) (string, error)
}

// ExactAvmFacilitator implements the exact scheme for AVM networks.
type ExactAvmFacilitator struct {
	signer FacilitatorSigner
}

// NewExactAvmFacilitator creates a facilitator mechanism settling through
// the given signer.
func NewExactAvmFacilitator(signer FacilitatorSigner) *ExactAvmFacilitator {
	return &ExactAvmFacilitator{signer: signer}
}

// Scheme returns the payment scheme identifier.
func (f *ExactAvmFacilitator) Scheme() string {
	return x402.SchemeExact
}

// Decode parses an AVM payload into its normalized form.
func (f *ExactAvmFacilitator) Decode(payload map[string]interface{}, requirements x402.PaymentRequirements) (*x402.DecodedPayment, x402.Reason) {
	if _, ok := payload["authorization"]; !ok {
		return nil, x402.ReasonMissingAuthorization
	}
	p, err := PayloadFromMap(payload)
	if err != nil {
		return nil, x402.ReasonMissingAuthorization
	}
	if p.Signature == "" {
		return nil, x402.ReasonMissingPayload
	}
	auth, ok := p.Authorization.Normalize()
	if !ok {
		return nil, x402.ReasonMissingPayload
	}
	return &x402.DecodedPayment{Authorization: auth, Signature: p.Signature}, ""
}

// VerifySignature checks the ed25519 signature over the canonical
// authorization encoding against the payer's address. An Algorand address is
// its account's public key, so no recovery step is needed.
func (f *ExactAvmFacilitator) VerifySignature(ctx context.Context, payment *x402.DecodedPayment, requirements x402.PaymentRequirements) (x402.Reason, error) {
	addr, err := types.DecodeAddress(payment.Authorization.Payer)
	if err != nil {
		return x402.ReasonInvalidSignature, nil
	}
	signature, err := base64.StdEncoding.DecodeString(payment.Signature)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return x402.ReasonInvalidSignature, nil
	}

	message := x402.EncodeAuthorization(&payment.Authorization)
	if !crypto.VerifyBytes(ed25519.PublicKey(addr[:]), message, signature) {
		return x402.ReasonInvalidSignature, nil
	}
	return "", nil
}

// Transfer pays the seller from the facilitator's custody account, tagging
// the transaction note with the authorization nonce and resource.
func (f *ExactAvmFacilitator) Transfer(ctx context.Context, payment *x402.DecodedPayment, requirements x402.PaymentRequirements) (string, error) {
	auth := payment.Authorization

	amount, err := strconv.ParseUint(auth.Amount, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", auth.Amount, err)
	}
	assetID, err := strconv.ParseUint(auth.Asset, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid asset %q: %w", auth.Asset, err)
	}

	return f.signer.SendPayment(ctx, auth.Payee, amount, assetID, SettlementNote(auth.Nonce, auth.Resource))
}
