// Package evm provides key-backed signers for EVM networks: a payer-side
// digest signer and a facilitator custody account that submits EIP-3009
// transfers through an RPC node.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	x402evm "github.com/algox402/algox402-go/mechanisms/evm"
)

const transferWithAuthorizationABI = `[{
	"name": "transferWithAuthorization",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "value", "type": "uint256"},
		{"name": "validAfter", "type": "uint256"},
		{"name": "validBefore", "type": "uint256"},
		{"name": "nonce", "type": "bytes32"},
		{"name": "v", "type": "uint8"},
		{"name": "r", "type": "bytes32"},
		{"name": "s", "type": "bytes32"}
	],
	"outputs": []
}]`

// ClientSigner implements x402evm.ClientSigner using an ECDSA private key.
type ClientSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewClientSignerFromPrivateKey creates a payer signer from a hex-encoded
// private key, with or without 0x prefix.
func NewClientSignerFromPrivateKey(privateKeyHex string) (*ClientSigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &ClientSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the Ethereum address of the signer.
func (s *ClientSigner) Address() string {
	return s.address.Hex()
}

// SignDigest signs a 32-byte digest, returning r||s||v with v as a 0/1
// recovery ID.
func (s *ClientSigner) SignDigest(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, s.privateKey)
}

// FacilitatorSigner implements x402evm.FacilitatorSigner: a custody account
// that submits transferWithAuthorization transactions and waits for them to
// mine.
type FacilitatorSigner struct {
	privateKey     *ecdsa.PrivateKey
	address        common.Address
	client         *ethclient.Client
	chainID        *big.Int
	contractABI    abi.ABI
	receiptTimeout time.Duration
	pollInterval   time.Duration
}

// NewFacilitatorSigner connects to an RPC node and prepares a custody signer
// from a hex-encoded private key.
func NewFacilitatorSigner(ctx context.Context, privateKeyHex, rpcURL string) (*FacilitatorSigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", rpcURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying chain id: %w", err)
	}
	contractABI, err := abi.JSON(strings.NewReader(transferWithAuthorizationABI))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}
	return &FacilitatorSigner{
		privateKey:     privateKey,
		address:        crypto.PubkeyToAddress(privateKey.PublicKey),
		client:         client,
		chainID:        chainID,
		contractABI:    contractABI,
		receiptTimeout: 2 * time.Minute,
		pollInterval:   time.Second,
	}, nil
}

// Address returns the Ethereum address of the custody account.
func (s *FacilitatorSigner) Address() string {
	return s.address.Hex()
}

// TransferWithAuthorization submits the signed authorization to the token
// contract and blocks until the transaction mines. A reverted receipt is an
// error.
func (s *FacilitatorSigner) TransferWithAuthorization(ctx context.Context, tokenAddress string, authorization x402evm.ExactEIP3009Authorization, signature []byte) (string, error) {
	if len(signature) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}
	v := signature[64]
	if v < 27 {
		v += 27
	}
	var r, sv [32]byte
	copy(r[:], signature[0:32])
	copy(sv[:], signature[32:64])

	value, ok := new(big.Int).SetString(authorization.Value, 10)
	if !ok {
		return "", fmt.Errorf("invalid value %q", authorization.Value)
	}
	validAfter, ok := new(big.Int).SetString(authorization.ValidAfter, 10)
	if !ok {
		return "", fmt.Errorf("invalid validAfter %q", authorization.ValidAfter)
	}
	validBefore, ok := new(big.Int).SetString(authorization.ValidBefore, 10)
	if !ok {
		return "", fmt.Errorf("invalid validBefore %q", authorization.ValidBefore)
	}
	nonceBytes, err := x402evm.HexToBytes(authorization.Nonce)
	if err != nil || len(nonceBytes) != 32 {
		return "", fmt.Errorf("invalid nonce %q", authorization.Nonce)
	}
	var nonce [32]byte
	copy(nonce[:], nonceBytes)

	data, err := s.contractABI.Pack("transferWithAuthorization",
		common.HexToAddress(authorization.From),
		common.HexToAddress(authorization.To),
		value, validAfter, validBefore, nonce, v, r, sv)
	if err != nil {
		return "", fmt.Errorf("packing call: %w", err)
	}

	token := common.HexToAddress(tokenAddress)
	accountNonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", fmt.Errorf("querying account nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("querying gas price: %w", err)
	}
	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &token,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("estimating gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    accountNonce,
		To:       &token,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("sending transaction: %w", err)
	}

	receipt, err := s.waitForReceipt(ctx, signed.Hash())
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("transaction %s reverted", signed.Hash().Hex())
	}
	return signed.Hash().Hex(), nil
}

func (s *FacilitatorSigner) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(s.receiptTimeout)
	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("querying receipt: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for transaction %s", hash.Hex())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}
