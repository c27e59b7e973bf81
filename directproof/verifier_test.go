package directproof

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	x402 "github.com/algox402/algox402-go"
)

type fakeReader struct {
	records map[string]*TransferRecord
	err     error
}

func (r *fakeReader) GetTransaction(ctx context.Context, txid string) (*TransferRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	record, ok := r.records[txid]
	if !ok {
		return nil, errors.New("transaction not found")
	}
	return record, nil
}

func verifierFixtures() (*PaymentRequest, *TransferRecord) {
	request := &PaymentRequest{
		Version:       RequestVersion,
		Network:       x402.NetworkAlgorandTestnet,
		AssetID:       0,
		Amount:        1000,
		SellerAddress: "SELLER",
		Expiry:        time.Now().Add(10 * time.Minute).Unix(),
		Nonce:         "req-nonce",
	}
	record := &TransferRecord{
		Receiver:       "SELLER",
		Amount:         1000,
		AssetID:        0,
		Note:           []byte("paying for req-nonce"),
		ConfirmedRound: 12345,
	}
	return request, record
}

func newTestVerifier(record *TransferRecord) *Verifier {
	return NewVerifier(&fakeReader{records: map[string]*TransferRecord{"TX1": record}})
}

func TestVerifyPaymentAccepts(t *testing.T) {
	request, record := verifierFixtures()
	v := newTestVerifier(record)

	result := v.VerifyPayment(context.Background(), request, "TX1", "req-nonce")
	assert.True(t, result.OK, "reason: %s", result.Reason)
}

func TestVerifyPaymentAcceptsOverpayment(t *testing.T) {
	request, record := verifierFixtures()
	record.Amount = 5000
	v := newTestVerifier(record)

	result := v.VerifyPayment(context.Background(), request, "TX1", "req-nonce")
	assert.True(t, result.OK)
}

func TestVerifyPaymentRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(request *PaymentRequest, record *TransferRecord)
		want   string
	}{
		{"wrong receiver", func(q *PaymentRequest, r *TransferRecord) { r.Receiver = "OTHER" }, ReasonReceiverMismatch},
		{"underpaid", func(q *PaymentRequest, r *TransferRecord) { r.Amount = 999 }, ReasonAmountInsufficient},
		{"wrong asset", func(q *PaymentRequest, r *TransferRecord) { r.AssetID = 31566704 }, ReasonAssetMismatch},
		{"no note", func(q *PaymentRequest, r *TransferRecord) { r.Note = nil }, ReasonNoNote},
		{"nonce not quoted", func(q *PaymentRequest, r *TransferRecord) { r.Note = []byte("other payment") }, ReasonNonceMismatch},
		{"unconfirmed", func(q *PaymentRequest, r *TransferRecord) { r.ConfirmedRound = 0 }, ReasonNotConfirmed},
		{"expired request", func(q *PaymentRequest, r *TransferRecord) { q.Expiry = time.Now().Add(-time.Minute).Unix() }, ReasonPaymentExpired},
		// Receiver is checked before amount.
		{"receiver and amount wrong", func(q *PaymentRequest, r *TransferRecord) {
			r.Receiver = "OTHER"
			r.Amount = 1
		}, ReasonReceiverMismatch},
	}
	for _, tc := range cases {
		request, record := verifierFixtures()
		tc.mutate(request, record)

		result := newTestVerifier(record).VerifyPayment(context.Background(), request, "TX1", "req-nonce")
		assert.False(t, result.OK, tc.name)
		assert.Equal(t, tc.want, result.Reason, tc.name)
	}
}

func TestVerifyPaymentUnknownTransaction(t *testing.T) {
	request, record := verifierFixtures()
	v := newTestVerifier(record)

	result := v.VerifyPayment(context.Background(), request, "UNKNOWN", "req-nonce")
	assert.Equal(t, ReasonTxNotFound, result.Reason)
}

func TestVerifyPaymentReaderError(t *testing.T) {
	request, _ := verifierFixtures()
	v := NewVerifier(&fakeReader{err: errors.New("indexer down")})

	result := v.VerifyPayment(context.Background(), request, "TX1", "req-nonce")
	assert.Equal(t, ReasonTxNotFound, result.Reason)
}
