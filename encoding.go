package x402

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AuthPrefix is the domain-separation prefix for authorization signing. It is
// prepended to the canonical JSON body so a signed authorization can never
// collide with any other signed message format.
const AuthPrefix = "ALGOX402-AUTH-1|"

// canonicalAuthorization fixes the key order and string-encodes every numeric
// field so the signing bytes are identical across implementations.
type canonicalAuthorization struct {
	Payer       string `json:"payer"`
	Seller      string `json:"seller"`
	AssetID     string `json:"assetId"`
	Amount      string `json:"amount"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Resource    string `json:"resource"`
}

// EncodeAuthorization produces the exact byte string a payer signs and a
// facilitator verifies. The encoding is total and deterministic: prefix plus
// a fixed-key-order JSON object with all numerics as decimal strings.
func EncodeAuthorization(auth *Authorization) []byte {
	c := canonicalAuthorization{
		Payer:       auth.Payer,
		Seller:      auth.Payee,
		AssetID:     auth.Asset,
		Amount:      auth.Amount,
		ValidAfter:  strconv.FormatInt(auth.ValidAfter, 10),
		ValidBefore: strconv.FormatInt(auth.ValidBefore, 10),
		Nonce:       auth.Nonce,
		Resource:    auth.Resource,
	}

	var buf bytes.Buffer
	buf.WriteString(AuthPrefix)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a flat struct of strings cannot fail.
	_ = enc.Encode(c)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// DecodePaymentHeader parses an X-Payment header value. The value is either
// base64-encoded JSON (the transport form) or bare JSON.
func DecodePaymentHeader(raw string) (*PaymentHeader, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, NewPaymentError(ErrCodeMalformedHeader, "empty payment header", nil)
	}

	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, NewPaymentError(ErrCodeMalformedHeader, fmt.Sprintf("invalid base64: %v", err), nil)
		}
		data = decoded
	}

	var header PaymentHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, NewPaymentError(ErrCodeMalformedHeader, fmt.Sprintf("invalid JSON: %v", err), nil)
	}
	return &header, nil
}

// EncodePaymentHeader serializes a payment header to its base64 transport
// form.
func EncodePaymentHeader(header *PaymentHeader) (string, error) {
	data, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeSettlementHeader serializes a settlement result for the
// X-Payment-Response header.
func EncodeSettlementHeader(resp *SettleResponse) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSettlementHeader parses an X-Payment-Response header value.
func DecodeSettlementHeader(raw string) (*SettleResponse, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid settlement header: %w", err)
	}
	var resp SettleResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid settlement header: %w", err)
	}
	return &resp, nil
}

// SettlementKey derives the idempotency key for a decoded payment header.
// The header is re-marshaled before hashing, so the key is independent of
// transport encoding: the same payment sent as base64 and as bare JSON, or
// with reordered keys, hashes identically. (encoding/json sorts map keys.)
func SettlementKey(header *PaymentHeader) (string, error) {
	data, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
