package avm

import (
	"context"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/indexer"

	"github.com/algox402/algox402-go/directproof"
)

// IndexerReader implements directproof.TransactionReader against an
// Algorand indexer.
type IndexerReader struct {
	client *indexer.Client
}

// NewIndexerReader connects to an indexer endpoint.
func NewIndexerReader(indexerURL, indexerToken string) (*IndexerReader, error) {
	client, err := indexer.MakeClient(indexerURL, indexerToken)
	if err != nil {
		return nil, fmt.Errorf("connecting to indexer at %s: %w", indexerURL, err)
	}
	return &IndexerReader{client: client}, nil
}

// GetTransaction looks up a confirmed transaction and flattens it into a
// TransferRecord. Payment and asset-transfer transactions are supported;
// anything else fails.
func (r *IndexerReader) GetTransaction(ctx context.Context, txid string) (*directproof.TransferRecord, error) {
	resp, err := r.client.LookupTransaction(txid).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("looking up transaction %s: %w", txid, err)
	}

	txn := resp.Transaction
	record := &directproof.TransferRecord{
		Note:           txn.Note,
		ConfirmedRound: txn.ConfirmedRound,
	}
	switch txn.Type {
	case "pay":
		record.Receiver = txn.PaymentTransaction.Receiver
		record.Amount = txn.PaymentTransaction.Amount
	case "axfer":
		record.Receiver = txn.AssetTransferTransaction.Receiver
		record.Amount = txn.AssetTransferTransaction.Amount
		record.AssetID = txn.AssetTransferTransaction.AssetId
	default:
		return nil, fmt.Errorf("transaction %s is not a transfer (type %s)", txid, txn.Type)
	}
	return record, nil
}
