package main

import (
	"context"
	"log"
	"os"

	x402 "github.com/algox402/algox402-go"
	x402http "github.com/algox402/algox402-go/http"
	avmmech "github.com/algox402/algox402-go/mechanisms/avm"
	evmmech "github.com/algox402/algox402-go/mechanisms/evm"
	avmsigner "github.com/algox402/algox402-go/signers/avm"
	evmsigner "github.com/algox402/algox402-go/signers/evm"
)

const defaultPort = "4022"

// Facilitator service. Mechanisms are enabled by environment:
//
//	PORT                listen port (default 4022)
//	ALGORAND_MNEMONIC   custody account mnemonic, enables the AVM mechanism
//	ALGOD_URL           algod endpoint (default Algonode testnet)
//	ALGOD_TOKEN         algod API token
//	ALGORAND_NETWORK    network identifier (default algorand-testnet)
//	EVM_PRIVATE_KEY     custody key hex, enables the EVM mechanism
//	EVM_RPC_URL         EVM JSON-RPC endpoint (default Base Sepolia)
//	EVM_NETWORK         network identifier (default base-sepolia)
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := log.New(os.Stderr, "facilitator: ", log.LstdFlags)
	facilitator := x402.NewFacilitator(x402.WithLogger(logger))

	registered := 0

	if mn := os.Getenv("ALGORAND_MNEMONIC"); mn != "" {
		algodURL := os.Getenv("ALGOD_URL")
		if algodURL == "" {
			algodURL = "https://testnet-api.algonode.cloud"
		}
		signer, err := avmsigner.NewSignerFromMnemonic(mn, algodURL, os.Getenv("ALGOD_TOKEN"))
		if err != nil {
			log.Fatalf("AVM signer: %v", err)
		}
		network := x402.Network(os.Getenv("ALGORAND_NETWORK"))
		if network == "" {
			network = x402.NetworkAlgorandTestnet
		}
		facilitator.Register(network, avmmech.NewExactAvmFacilitator(signer))
		log.Printf("AVM mechanism enabled: network=%s custody=%s algod=%s", network, signer.Address(), algodURL)
		registered++
	}

	if key := os.Getenv("EVM_PRIVATE_KEY"); key != "" {
		rpcURL := os.Getenv("EVM_RPC_URL")
		if rpcURL == "" {
			rpcURL = "https://sepolia.base.org"
		}
		signer, err := evmsigner.NewFacilitatorSigner(context.Background(), key, rpcURL)
		if err != nil {
			log.Fatalf("EVM signer: %v", err)
		}
		network := x402.Network(os.Getenv("EVM_NETWORK"))
		if network == "" {
			network = x402.NetworkBaseSepolia
		}
		facilitator.Register(network, evmmech.NewExactEvmFacilitator(signer))
		log.Printf("EVM mechanism enabled: network=%s custody=%s rpc=%s", network, signer.Address(), rpcURL)
		registered++
	}

	if registered == 0 {
		log.Fatal("no mechanisms configured: set ALGORAND_MNEMONIC and/or EVM_PRIVATE_KEY")
	}

	server := x402http.NewFacilitatorServer(facilitator, logger)
	log.Printf("facilitator listening on :%s", port)
	if err := server.Router().Run(":" + port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
