// Package evm implements the exact payment scheme for EVM networks using
// EIP-3009 transferWithAuthorization. The payer signs an EIP-712 typed
// message; settlement submits it to the token contract, which moves the
// funds and burns the nonce.
package evm

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// ExactEIP3009Authorization represents the EIP-3009 TransferWithAuthorization data
type ExactEIP3009Authorization struct {
	From        string `json:"from"`        // Ethereum address (hex)
	To          string `json:"to"`          // Ethereum address (hex)
	Value       string `json:"value"`       // Amount in token base units as string
	ValidAfter  string `json:"validAfter"`  // Unix timestamp as string
	ValidBefore string `json:"validBefore"` // Unix timestamp as string
	Nonce       string `json:"nonce"`       // 32-byte nonce as hex string
}

// SigningDomain is the payer-asserted EIP-712 domain carried alongside the
// authorization. The facilitator checks it against the network's token
// before any recovery work.
type SigningDomain struct {
	ChainID           json.Number `json:"chainId"`
	VerifyingContract string      `json:"verifyingContract"`
}

// ExactEvmPayload represents the exact payment payload for EVM networks
type ExactEvmPayload struct {
	Signature     string                    `json:"signature,omitempty"`
	Authorization ExactEIP3009Authorization `json:"authorization"`
	Domain        *SigningDomain            `json:"domain,omitempty"`
}

// ToMap converts the payload to the generic form carried in a PaymentHeader.
func (p *ExactEvmPayload) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"signature": p.Signature,
		"authorization": map[string]interface{}{
			"from":        p.Authorization.From,
			"to":          p.Authorization.To,
			"value":       p.Authorization.Value,
			"validAfter":  p.Authorization.ValidAfter,
			"validBefore": p.Authorization.ValidBefore,
			"nonce":       p.Authorization.Nonce,
		},
	}
	if p.Domain != nil {
		m["domain"] = map[string]interface{}{
			"chainId":           p.Domain.ChainID.String(),
			"verifyingContract": p.Domain.VerifyingContract,
		}
	}
	return m
}

// PayloadFromMap parses a generic payload map into an ExactEvmPayload.
func PayloadFromMap(data map[string]interface{}) (*ExactEvmPayload, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	var payload ExactEvmPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return &payload, nil
}

// TypedDataDomain represents the EIP-712 domain separator parameters
type TypedDataDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract string
}

// TypedDataField represents a single field in an EIP-712 type definition
type TypedDataField struct {
	Name string
	Type string
}

// HexToBytes decodes a hex string, with or without 0x prefix.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}
