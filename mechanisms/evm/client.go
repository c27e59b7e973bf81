package evm

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	x402 "github.com/algox402/algox402-go"
)

// ClientSigner is a payer account that signs 32-byte EIP-712 digests with
// its secp256k1 key, returning a 65-byte r||s||v signature.
type ClientSigner interface {
	Address() string
	SignDigest(digest []byte) ([]byte, error)
}

// ExactEvmClient builds signed payment headers on the payer side.
type ExactEvmClient struct {
	signer   ClientSigner
	networks map[x402.Network]NetworkConfig
	now      func() time.Time
}

// NewExactEvmClient creates a client signing with the given account on the
// default networks.
func NewExactEvmClient(signer ClientSigner) *ExactEvmClient {
	return &ExactEvmClient{
		signer:   signer,
		networks: DefaultNetworks(),
		now:      time.Now,
	}
}

// WithNetwork adds or overrides a network configuration. Returns the client
// for chaining.
func (c *ExactEvmClient) WithNetwork(network x402.Network, config NetworkConfig) *ExactEvmClient {
	c.networks[network] = config
	return c
}

// Scheme returns the payment scheme identifier.
func (c *ExactEvmClient) Scheme() string {
	return x402.SchemeExact
}

// NewPaymentHeader builds, signs and encodes a payment header for the given
// requirements. Each call draws a fresh 32-byte nonce.
func (c *ExactEvmClient) NewPaymentHeader(requirements x402.PaymentRequirements, validFor time.Duration) (string, error) {
	config, ok := c.networks[requirements.Network]
	if !ok {
		return "", fmt.Errorf("network %q not configured", requirements.Network)
	}

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	now := c.now().Unix()
	authorization := ExactEIP3009Authorization{
		From:        c.signer.Address(),
		To:          requirements.PayTo,
		Value:       requirements.MaxAmountRequired,
		ValidAfter:  strconv.FormatInt(now, 10),
		ValidBefore: strconv.FormatInt(now+int64(validFor/time.Second), 10),
		Nonce:       "0x" + hex.EncodeToString(nonce),
	}

	digest, err := HashEIP3009Authorization(
		authorization, config.ChainID, config.TokenAddress, config.TokenName, config.TokenVersion)
	if err != nil {
		return "", err
	}
	signature, err := c.signer.SignDigest(digest)
	if err != nil {
		return "", fmt.Errorf("signing authorization: %w", err)
	}
	if len(signature) != 65 {
		return "", fmt.Errorf("unexpected signature length %d", len(signature))
	}
	if signature[64] < 27 {
		signature[64] += 27
	}

	payload := ExactEvmPayload{
		Signature:     "0x" + hex.EncodeToString(signature),
		Authorization: authorization,
		Domain: &SigningDomain{
			ChainID:           json.Number(config.ChainID.String()),
			VerifyingContract: config.TokenAddress,
		},
	}
	header := &x402.PaymentHeader{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     requirements.Network,
		Payload:     payload.ToMap(),
	}
	return x402.EncodePaymentHeader(header)
}
