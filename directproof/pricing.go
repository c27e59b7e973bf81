// Package directproof implements the transaction-proof payment flow for AVM
// networks: the seller issues a priced payment request with a fresh nonce,
// the buyer pays on chain with the nonce in the transaction note, then
// retries the request presenting the transaction ID as proof.
package directproof

import (
	"time"

	"github.com/google/uuid"

	x402 "github.com/algox402/algox402-go"
)

// RequestVersion tags payment requests issued by this package.
const RequestVersion = "algox402-1.0"

// PaymentRequest is a single-use invoice: pay Amount of AssetID to
// SellerAddress before Expiry, quoting Nonce in the transaction note.
type PaymentRequest struct {
	Version            string       `json:"version"`
	Network            x402.Network `json:"chain"`
	AssetID            uint64       `json:"assetId"`
	Amount             uint64       `json:"amount"`
	SellerAddress      string       `json:"sellerAddress"`
	Description        string       `json:"description"`
	Expiry             int64        `json:"expiry"`
	Nonce              string       `json:"nonce"`
	FacilitatorAllowed bool         `json:"facilitatorAllowed"`
}

// Pricing issues payment requests with a flat base price, optionally scaled
// per request.
type Pricing struct {
	SellerAddress string
	Network       x402.Network
	AssetID       uint64
	BasePrice     uint64
	TTL           time.Duration

	now      func() time.Time
	newNonce func() string
}

// NewPricing creates a pricing policy. BasePrice is in the asset's base
// units; AssetID 0 means the native token.
func NewPricing(sellerAddress string, network x402.Network, assetID, basePrice uint64, ttl time.Duration) *Pricing {
	return &Pricing{
		SellerAddress: sellerAddress,
		Network:       network,
		AssetID:       assetID,
		BasePrice:     basePrice,
		TTL:           ttl,
		now:           time.Now,
		newNonce:      uuid.NewString,
	}
}

// CreatePaymentRequest issues a fresh request priced at BasePrice * factor.
func (p *Pricing) CreatePaymentRequest(description string, factor float64) PaymentRequest {
	now := p.now()
	return PaymentRequest{
		Version:            RequestVersion,
		Network:            p.Network,
		AssetID:            p.AssetID,
		Amount:             uint64(float64(p.BasePrice) * factor),
		SellerAddress:      p.SellerAddress,
		Description:        description,
		Expiry:             now.Add(p.TTL).Unix(),
		Nonce:              p.newNonce(),
		FacilitatorAllowed: true,
	}
}
