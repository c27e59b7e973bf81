// Package avm implements the exact payment scheme for Algorand-style
// networks. Payers sign the canonical authorization encoding with their
// account's ed25519 key; settlement submits a payment or asset transfer
// carrying the authorization nonce in the transaction note.
package avm

import (
	"encoding/json"
	"fmt"
	"strconv"

	x402 "github.com/algox402/algox402-go"
)

// NoteKeyword prefixes settlement transaction notes so payments made through
// the facilitator are identifiable on chain:
// "algox402-avm:<nonce>:<resource>".
const NoteKeyword = "algox402-avm"

// ExactAvmAuthorization is the wire form of an authorization on AVM
// networks. Amounts and timestamps travel as decimal strings; assetId is a
// number, with 0 meaning the native token.
type ExactAvmAuthorization struct {
	Payer       string `json:"payer"`
	Seller      string `json:"seller"`
	AssetID     uint64 `json:"assetId"`
	Amount      string `json:"amount"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Resource    string `json:"resource"`
}

// ExactAvmPayload is the payment payload for AVM networks. Signature is the
// base64 ed25519 signature over the canonical authorization encoding.
type ExactAvmPayload struct {
	Signature     string                `json:"signature,omitempty"`
	Authorization ExactAvmAuthorization `json:"authorization"`
}

// ToMap converts the payload to the generic form carried in a PaymentHeader.
func (p *ExactAvmPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"signature": p.Signature,
		"authorization": map[string]interface{}{
			"payer":       p.Authorization.Payer,
			"seller":      p.Authorization.Seller,
			"assetId":     p.Authorization.AssetID,
			"amount":      p.Authorization.Amount,
			"validAfter":  p.Authorization.ValidAfter,
			"validBefore": p.Authorization.ValidBefore,
			"nonce":       p.Authorization.Nonce,
			"resource":    p.Authorization.Resource,
		},
	}
}

// PayloadFromMap parses a generic payload map into an ExactAvmPayload.
func PayloadFromMap(data map[string]interface{}) (*ExactAvmPayload, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	var payload ExactAvmPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return &payload, nil
}

// Normalize converts a wire authorization to the scheme-independent form.
// Returns false if a numeric field does not parse.
func (a *ExactAvmAuthorization) Normalize() (x402.Authorization, bool) {
	validAfter, err := strconv.ParseInt(a.ValidAfter, 10, 64)
	if err != nil {
		return x402.Authorization{}, false
	}
	validBefore, err := strconv.ParseInt(a.ValidBefore, 10, 64)
	if err != nil {
		return x402.Authorization{}, false
	}
	return x402.Authorization{
		Payer:       a.Payer,
		Payee:       a.Seller,
		Asset:       strconv.FormatUint(a.AssetID, 10),
		Amount:      a.Amount,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       a.Nonce,
		Resource:    a.Resource,
	}, true
}

// SettlementNote builds the transaction note recorded with an on-chain
// settlement.
func SettlementNote(nonce, resource string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", NoteKeyword, nonce, resource))
}
