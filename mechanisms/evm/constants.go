package evm

import (
	"math/big"

	x402 "github.com/algox402/algox402-go"
)

// NetworkConfig ties an EVM network tag to the token contract payments
// settle in. TokenName and TokenVersion feed the EIP-712 domain.
type NetworkConfig struct {
	ChainID      *big.Int
	TokenAddress string
	TokenName    string
	TokenVersion string
}

// DefaultNetworks returns the built-in USDC configurations.
func DefaultNetworks() map[x402.Network]NetworkConfig {
	return map[x402.Network]NetworkConfig{
		x402.NetworkBase: {
			ChainID:      big.NewInt(8453),
			TokenAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			TokenName:    "USD Coin",
			TokenVersion: "2",
		},
		x402.NetworkBaseSepolia: {
			ChainID:      big.NewInt(84532),
			TokenAddress: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			TokenName:    "USDC",
			TokenVersion: "2",
		},
	}
}
