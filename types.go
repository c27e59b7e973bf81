package x402

// X402Version is the protocol version carried in payment headers and
// facilitator requests.
const X402Version = 1

// SchemeExact is the single-transfer payment scheme: the payer authorizes
// exactly one transfer of a fixed amount to a fixed recipient.
const SchemeExact = "exact"

// Network identifies a settlement network, e.g. "algorand-testnet" or
// "base-sepolia".
type Network string

// Known networks. Mechanisms register under one or more of these; nothing
// prevents registering additional network tags.
const (
	NetworkAlgorandMainnet  Network = "algorand-mainnet"
	NetworkAlgorandTestnet  Network = "algorand-testnet"
	NetworkAlgorandLocalnet Network = "algorand-localnet"
	NetworkBase             Network = "base"
	NetworkBaseSepolia      Network = "base-sepolia"
)

// Authorization is the normalized form of a payer-signed transfer
// authorization. Every scheme decodes its wire payload into this shape so
// requirement matching is scheme-independent.
//
// Asset identifies the asset in the network's own notation: a decimal asset
// ID on Algorand-style networks ("0" for the native token) or a token
// contract address on EVM networks.
type Authorization struct {
	Payer       string
	Payee       string
	Asset       string
	Amount      string
	ValidAfter  int64
	ValidBefore int64
	Nonce       string
	Resource    string
}

// PaymentHeader is the decoded X-Payment header. Payload stays schemeless
// here; the registered mechanism for (scheme, network) interprets it.
type PaymentHeader struct {
	X402Version int                    `json:"x402Version"`
	Scheme      string                 `json:"scheme"`
	Network     Network                `json:"network"`
	Payload     map[string]interface{} `json:"payload"`
}

// PaymentRequirements describes one way a seller will accept payment for a
// resource. A 402 challenge carries one or more of these in its accepts list.
type PaymentRequirements struct {
	Scheme            string  `json:"scheme"`
	Network           Network `json:"network"`
	MaxAmountRequired string  `json:"maxAmountRequired"`
	PayTo             string  `json:"payTo"`
	Asset             string  `json:"asset,omitempty"`
	Resource          string  `json:"resource,omitempty"`
	Description       string  `json:"description,omitempty"`
	MimeType          string  `json:"mimeType,omitempty"`
	MaxTimeoutSeconds int     `json:"maxTimeoutSeconds,omitempty"`
}

// PaymentRequired is the body of a 402 response.
type PaymentRequired struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error,omitempty"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// VerifyRequest is the body of a facilitator /verify call.
type VerifyRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentHeader       string              `json:"paymentHeader"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse reports whether a payment header satisfies the requirements.
// InvalidReason is set exactly when IsValid is false.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason Reason `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleRequest is the body of a facilitator /settle call.
type SettleRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentHeader       string              `json:"paymentHeader"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// SettleResponse reports the outcome of a settlement attempt. The same shape
// is encoded into the X-Payment-Response header after a successful gate pass.
type SettleResponse struct {
	Success     bool    `json:"success"`
	Transaction string  `json:"transaction,omitempty"`
	Network     Network `json:"network,omitempty"`
	Payer       string  `json:"payer,omitempty"`
	ErrorReason Reason  `json:"error,omitempty"`
}

// SupportedKind names one (scheme, network) pair a facilitator can settle.
type SupportedKind struct {
	X402Version int     `json:"x402Version"`
	Scheme      string  `json:"scheme"`
	Network     Network `json:"network"`
}

// SupportedResponse is the body of a facilitator /supported call.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}
