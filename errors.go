package x402

import "fmt"

// Reason is a machine-readable explanation for a rejected verification or a
// failed settlement. An empty Reason means the check passed.
type Reason string

const (
	ReasonSchemeMismatch           Reason = "scheme_mismatch"
	ReasonNetworkMismatch          Reason = "network_mismatch"
	ReasonMissingAuthorization     Reason = "missing_authorization"
	ReasonMissingPayload           Reason = "missing_payload"
	ReasonPayToMismatch            Reason = "payTo_mismatch"
	ReasonAssetMismatch            Reason = "asset_mismatch"
	ReasonAmountTooLarge           Reason = "amount_too_large"
	ReasonAuthorizationExpired     Reason = "authorization_expired"
	ReasonResourceMismatch         Reason = "resource_mismatch"
	ReasonInvalidSignature         Reason = "invalid_signature"
	ReasonInvalidChainID           Reason = "invalid_chainId"
	ReasonInvalidVerifyingContract Reason = "invalid_verifying_contract"
	ReasonSignerMismatch           Reason = "signer_mismatch"
	ReasonNonceFailed              Reason = "nonce_failed"
	ReasonSettlementPending        Reason = "settlement_pending"
	ReasonOnchainSettleFailed      Reason = "onchain_settle_failed"
	ReasonInternalError            Reason = "internal_error"
	ReasonUnsupportedVersion       Reason = "unsupported_x402_version"
)

// PaymentError represents a payment-specific error
type PaymentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeMalformedHeader    = "malformed_payment_header"
	ErrCodeUnsupportedScheme  = "unsupported_scheme"
	ErrCodeUnsupportedNetwork = "unsupported_network"
)

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
