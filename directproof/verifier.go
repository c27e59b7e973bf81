package directproof

import (
	"context"
	"strings"
	"time"
)

// Rejection reasons reported by VerifyPayment.
const (
	ReasonTxNotFound         = "tx_not_found_or_node_error"
	ReasonReceiverMismatch   = "receiver_mismatch"
	ReasonAmountInsufficient = "amount_insufficient"
	ReasonAssetMismatch      = "asset_mismatch"
	ReasonNoNote             = "no_note"
	ReasonNonceMismatch      = "nonce_mismatch"
	ReasonNotConfirmed       = "not_confirmed"
	ReasonPaymentExpired     = "payment_expired"
)

// TransferRecord is the subset of a confirmed transaction the verifier
// needs. AssetID is 0 for native-token payments.
type TransferRecord struct {
	Receiver       string
	Amount         uint64
	AssetID        uint64
	Note           []byte
	ConfirmedRound uint64
}

// TransactionReader looks up a transaction on chain, typically through an
// indexer.
type TransactionReader interface {
	GetTransaction(ctx context.Context, txid string) (*TransferRecord, error)
}

// VerifyResult is the outcome of checking a payment proof.
type VerifyResult struct {
	OK     bool
	Reason string
}

// Verifier checks claimed payment transactions against issued requests.
type Verifier struct {
	reader TransactionReader
	now    func() time.Time
}

// NewVerifier creates a verifier reading transactions through the given
// reader.
func NewVerifier(reader TransactionReader) *Verifier {
	return &Verifier{reader: reader, now: time.Now}
}

// VerifyPayment checks that txid is a confirmed on-chain payment satisfying
// the request. Checks run in a fixed order and the first failure wins. The
// amount check is at-least: overpaying is the buyer's choice. The note must
// quote both the request nonce and the nonce the caller presented.
func (v *Verifier) VerifyPayment(ctx context.Context, request *PaymentRequest, txid, nonce string) VerifyResult {
	record, err := v.reader.GetTransaction(ctx, txid)
	if err != nil || record == nil {
		return VerifyResult{Reason: ReasonTxNotFound}
	}

	if record.Receiver != request.SellerAddress {
		return VerifyResult{Reason: ReasonReceiverMismatch}
	}
	if record.Amount < request.Amount {
		return VerifyResult{Reason: ReasonAmountInsufficient}
	}
	if record.AssetID != request.AssetID {
		return VerifyResult{Reason: ReasonAssetMismatch}
	}

	if len(record.Note) == 0 {
		return VerifyResult{Reason: ReasonNoNote}
	}
	note := string(record.Note)
	if !strings.Contains(note, request.Nonce) || !strings.Contains(note, nonce) {
		return VerifyResult{Reason: ReasonNonceMismatch}
	}

	if record.ConfirmedRound == 0 {
		return VerifyResult{Reason: ReasonNotConfirmed}
	}

	if v.now().Unix() > request.Expiry {
		return VerifyResult{Reason: ReasonPaymentExpired}
	}

	return VerifyResult{OK: true}
}
