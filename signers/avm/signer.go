// Package avm provides account-backed signers for AVM networks: a payer-side
// bytes signer, a facilitator custody account submitting transfers through
// algod, and an indexer-backed transaction reader for payment proofs.
package avm

import (
	"context"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Signer is an Algorand account that can sign authorization bytes and, when
// constructed with an algod client, submit transfers as a facilitator
// custody account.
type Signer struct {
	account    crypto.Account
	algod      *algod.Client
	waitRounds uint64
}

// NewSignerFromMnemonic builds a signer from a 25-word mnemonic. algodURL
// may be empty for payer-side use; SendPayment then fails.
func NewSignerFromMnemonic(mn, algodURL, algodToken string) (*Signer, error) {
	privateKey, err := mnemonic.ToPrivateKey(mn)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	account, err := crypto.AccountFromPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("deriving account: %w", err)
	}

	signer := &Signer{account: account, waitRounds: 4}
	if algodURL != "" {
		client, err := algod.MakeClient(algodURL, algodToken)
		if err != nil {
			return nil, fmt.Errorf("connecting to algod at %s: %w", algodURL, err)
		}
		signer.algod = client
	}
	return signer, nil
}

// Address returns the account address.
func (s *Signer) Address() string {
	return s.account.Address.String()
}

// SignBytes signs arbitrary bytes with the account's ed25519 key, using the
// standard signed-bytes domain prefix.
func (s *Signer) SignBytes(message []byte) ([]byte, error) {
	return crypto.SignBytes(s.account.PrivateKey, message)
}

// SendPayment submits a payment (assetID 0) or asset transfer and blocks
// until it is confirmed, returning the transaction ID.
func (s *Signer) SendPayment(ctx context.Context, receiver string, amount uint64, assetID uint64, note []byte) (string, error) {
	if s.algod == nil {
		return "", fmt.Errorf("signer has no algod client")
	}

	params, err := s.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching suggested params: %w", err)
	}

	var txn types.Transaction
	if assetID == 0 {
		txn, err = transaction.MakePaymentTxn(s.Address(), receiver, amount, note, "", params)
	} else {
		txn, err = transaction.MakeAssetTransferTxn(s.Address(), receiver, amount, note, params, "", assetID)
	}
	if err != nil {
		return "", fmt.Errorf("building transaction: %w", err)
	}

	txid, signed, err := crypto.SignTransaction(s.account.PrivateKey, txn)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}
	if _, err := s.algod.SendRawTransaction(signed).Do(ctx); err != nil {
		return "", fmt.Errorf("submitting transaction: %w", err)
	}
	if _, err := transaction.WaitForConfirmation(s.algod, txid, s.waitRounds, ctx); err != nil {
		return "", fmt.Errorf("waiting for confirmation of %s: %w", txid, err)
	}
	return txid, nil
}
