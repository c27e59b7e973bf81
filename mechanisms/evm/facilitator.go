package evm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/algox402/algox402-go"
)

// FacilitatorSigner is the custody account that submits
// transferWithAuthorization transactions. Implementations block until the
// transaction is mined and report failure for reverted receipts.
type FacilitatorSigner interface {
	Address() string
	TransferWithAuthorization(ctx context.Context, tokenAddress string, authorization ExactEIP3009Authorization, signature []byte) (string, error)
}

// ExactEvmFacilitator implements the exact scheme for EVM networks.
type ExactEvmFacilitator struct {
	signer   FacilitatorSigner
	networks map[x402.Network]NetworkConfig
}

// NewExactEvmFacilitator creates a facilitator mechanism settling through
// the given signer on the default networks.
func NewExactEvmFacilitator(signer FacilitatorSigner) *ExactEvmFacilitator {
	return &ExactEvmFacilitator{
		signer:   signer,
		networks: DefaultNetworks(),
	}
}

// WithNetwork adds or overrides a network configuration. Returns the
// facilitator for chaining.
func (f *ExactEvmFacilitator) WithNetwork(network x402.Network, config NetworkConfig) *ExactEvmFacilitator {
	f.networks[network] = config
	return f
}

// Scheme returns the payment scheme identifier.
func (f *ExactEvmFacilitator) Scheme() string {
	return x402.SchemeExact
}

// Decode parses an EVM payload into its normalized form. EIP-3009 carries no
// asset or resource of its own: the asset is the network's token contract
// and the resource is bound by the requirements.
func (f *ExactEvmFacilitator) Decode(payload map[string]interface{}, requirements x402.PaymentRequirements) (*x402.DecodedPayment, x402.Reason) {
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

	validAfter, err := strconv.ParseInt(p.Authorization.ValidAfter, 10, 64)
	if err != nil {
		return nil, x402.ReasonMissingPayload
	}
	validBefore, err := strconv.ParseInt(p.Authorization.ValidBefore, 10, 64)
	if err != nil {
		return nil, x402.ReasonMissingPayload
	}
	nonce, err := HexToBytes(p.Authorization.Nonce)
	if err != nil || len(nonce) != 32 {
		return nil, x402.ReasonMissingPayload
	}

	config, ok := f.networks[requirements.Network]
	if !ok {
		return nil, x402.ReasonNetworkMismatch
	}

	decoded := &x402.DecodedPayment{
		Authorization: x402.Authorization{
			Payer:       p.Authorization.From,
			Payee:       p.Authorization.To,
			Asset:       config.TokenAddress,
			Amount:      p.Authorization.Value,
			ValidAfter:  validAfter,
			ValidBefore: validBefore,
			Nonce:       p.Authorization.Nonce,
			Resource:    requirements.Resource,
		},
		Signature: p.Signature,
	}
	if p.Domain != nil {
		decoded.ChainID = p.Domain.ChainID.String()
		decoded.VerifyingContract = p.Domain.VerifyingContract
	}
	return decoded, ""
}

// VerifySignature checks the payer-asserted signing domain against the
// network's token, then recovers the EIP-712 signer and compares it to the
// authorization's from address.
func (f *ExactEvmFacilitator) VerifySignature(ctx context.Context, payment *x402.DecodedPayment, requirements x402.PaymentRequirements) (x402.Reason, error) {
	config, ok := f.networks[requirements.Network]
	if !ok {
		return x402.ReasonNetworkMismatch, nil
	}

	if payment.ChainID != "" && payment.ChainID != config.ChainID.String() {
		return x402.ReasonInvalidChainID, nil
	}
	if payment.VerifyingContract != "" && !strings.EqualFold(payment.VerifyingContract, config.TokenAddress) {
		return x402.ReasonInvalidVerifyingContract, nil
	}

	digest, err := HashEIP3009Authorization(
		wireAuthorization(payment.Authorization),
		config.ChainID,
		config.TokenAddress,
		config.TokenName,
		config.TokenVersion,
	)
	if err != nil {
		return x402.ReasonInvalidSignature, nil
	}

	signature, err := HexToBytes(payment.Signature)
	if err != nil || len(signature) != 65 {
		return x402.ReasonInvalidSignature, nil
	}
	// Normalize v to the 0/1 recovery ID SigToPub expects.
	recovery := make([]byte, 65)
	copy(recovery, signature)
	if recovery[64] >= 27 {
		recovery[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, recovery)
	if err != nil {
		return x402.ReasonInvalidSignature, nil
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), payment.Authorization.Payer) {
		return x402.ReasonSignerMismatch, nil
	}
	return "", nil
}

// Transfer submits transferWithAuthorization to the network's token
// contract. The contract enforces the window and nonce a second time on
// chain.
func (f *ExactEvmFacilitator) Transfer(ctx context.Context, payment *x402.DecodedPayment, requirements x402.PaymentRequirements) (string, error) {
	config, ok := f.networks[requirements.Network]
	if !ok {
		return "", fmt.Errorf("network %q not configured", requirements.Network)
	}
	signature, err := HexToBytes(payment.Signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature: %w", err)
	}
	return f.signer.TransferWithAuthorization(ctx, config.TokenAddress, wireAuthorization(payment.Authorization), signature)
}

func wireAuthorization(auth x402.Authorization) ExactEIP3009Authorization {
	return ExactEIP3009Authorization{
		From:        auth.Payer,
		To:          auth.Payee,
		Value:       auth.Amount,
		ValidAfter:  strconv.FormatInt(auth.ValidAfter, 10),
		ValidBefore: strconv.FormatInt(auth.ValidBefore, 10),
		Nonce:       auth.Nonce,
	}
}
