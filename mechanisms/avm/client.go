package avm

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	x402 "github.com/algox402/algox402-go"
)

// ClientSigner is a payer account that can sign arbitrary bytes with its
// ed25519 key.
type ClientSigner interface {
	Address() string
	SignBytes(message []byte) ([]byte, error)
}

// ExactAvmClient builds signed payment headers on the payer side.
type ExactAvmClient struct {
	signer ClientSigner
	now    func() time.Time
}

// NewExactAvmClient creates a client signing with the given account.
func NewExactAvmClient(signer ClientSigner) *ExactAvmClient {
	return &ExactAvmClient{signer: signer, now: time.Now}
}

// Scheme returns the payment scheme identifier.
func (c *ExactAvmClient) Scheme() string {
	return x402.SchemeExact
}

// NewAuthorization builds a fresh authorization for the given requirements,
// valid from now for validFor. Each call draws a new nonce.
func (c *ExactAvmClient) NewAuthorization(requirements x402.PaymentRequirements, validFor time.Duration) (*x402.Authorization, error) {
	asset := requirements.Asset
	if asset == "" {
		asset = "0"
	}
	if _, err := strconv.ParseUint(asset, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid asset %q: %w", asset, err)
	}

	now := c.now().Unix()
	return &x402.Authorization{
		Payer:       c.signer.Address(),
		Payee:       requirements.PayTo,
		Asset:       asset,
		Amount:      requirements.MaxAmountRequired,
		ValidAfter:  now,
		ValidBefore: now + int64(validFor/time.Second),
		Nonce:       uuid.NewString(),
		Resource:    requirements.Resource,
	}, nil
}

// SignAuthorization signs the canonical encoding and wraps everything into a
// PaymentHeader ready for transport.
func (c *ExactAvmClient) SignAuthorization(auth *x402.Authorization, network x402.Network) (*x402.PaymentHeader, error) {
	signature, err := c.signer.SignBytes(x402.EncodeAuthorization(auth))
	if err != nil {
		return nil, fmt.Errorf("signing authorization: %w", err)
	}

	assetID, err := strconv.ParseUint(auth.Asset, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid asset %q: %w", auth.Asset, err)
	}

	payload := ExactAvmPayload{
		Signature: base64.StdEncoding.EncodeToString(signature),
		Authorization: ExactAvmAuthorization{
			Payer:       auth.Payer,
			Seller:      auth.Payee,
			AssetID:     assetID,
			Amount:      auth.Amount,
			ValidAfter:  strconv.FormatInt(auth.ValidAfter, 10),
			ValidBefore: strconv.FormatInt(auth.ValidBefore, 10),
			Nonce:       auth.Nonce,
			Resource:    auth.Resource,
		},
	}

	return &x402.PaymentHeader{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     network,
		Payload:     payload.ToMap(),
	}, nil
}

// NewPaymentHeader builds, signs and encodes a payment header for the given
// requirements in one step.
func (c *ExactAvmClient) NewPaymentHeader(requirements x402.PaymentRequirements, validFor time.Duration) (string, error) {
	auth, err := c.NewAuthorization(requirements, validFor)
	if err != nil {
		return "", err
	}
	header, err := c.SignAuthorization(auth, requirements.Network)
	if err != nil {
		return "", err
	}
	return x402.EncodePaymentHeader(header)
}
