package registry

import (
	"math/big"
	"strings"
)

// Static lookup tables for the EVM decoding layer: function selectors, event
// topics, curated mainnet contracts, and the scam address set. All tables are
// keyed by lowercased hex and are read-only after init.

// FunctionSignature describes a known 4-byte selector.
type FunctionSignature struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Risk        string `json:"risk"`
	Description string `json:"description"`
}

// EventSignature describes a known topic0.
type EventSignature struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// KnownContract is a curated mainnet entry. Trusted is always true here;
// scam addresses live in their own set, the two are disjoint by construction.
type KnownContract struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Trusted bool   `json:"trusted"`
}

var functionSignatures = map[string]FunctionSignature{
	"0x095ea7b3": {Name: "approve", Type: "ERC-20", Risk: "medium", Description: "Token spending approval"},
	"0xa9059cbb": {Name: "transfer", Type: "ERC-20", Risk: "low", Description: "Token transfer"},
	"0x23b872dd": {Name: "transferFrom", Type: "ERC-20", Risk: "low", Description: "Token transfer (delegated)"},
	"0xa22cb465": {Name: "setApprovalForAll", Type: "ERC-721", Risk: "high", Description: "NFT collection approval"},
	"0x42842e0e": {Name: "safeTransferFrom", Type: "ERC-721", Risk: "low", Description: "Safe NFT transfer"},
	"0x38ed1739": {Name: "swapExactTokensForTokens", Type: "Uniswap V2", Risk: "low", Description: "DEX swap"},
	"0x7ff36ab5": {Name: "swapExactETHForTokens", Type: "Uniswap V2", Risk: "low", Description: "ETH → token swap"},
	"0x18cbafe5": {Name: "swapExactTokensForETH", Type: "Uniswap V2", Risk: "low", Description: "Token → ETH swap"},
	"0xe8e33700": {Name: "addLiquidity", Type: "Uniswap V2", Risk: "low", Description: "Add LP"},
	"0xf305d719": {Name: "addLiquidityETH", Type: "Uniswap V2", Risk: "low", Description: "Add LP with ETH"},
	"0x414bf389": {Name: "exactInputSingle", Type: "Uniswap V3", Risk: "low", Description: "Single-hop swap"},
	"0xc04b8d59": {Name: "exactInput", Type: "Uniswap V3", Risk: "low", Description: "Multi-hop swap"},
	"0xac9650d8": {Name: "multicall", Type: "Uniswap V3", Risk: "medium", Description: "Batched calls"},
	"0xd0e30db0": {Name: "deposit", Type: "WETH", Risk: "low", Description: "Wrap ETH"},
	"0x2e1a7d4d": {Name: "withdraw", Type: "WETH", Risk: "low", Description: "Unwrap ETH"},
	"0x3593564c": {Name: "execute", Type: "Universal Router", Risk: "medium", Description: "Universal router execution"},
}

var eventSignatures = map[string]EventSignature{
	"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef": {Name: "Transfer", Type: "ERC-20/721"},
	"0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925": {Name: "Approval", Type: "ERC-20"},
	"0x17307eab39ab6107e8899845ad3d59bd9653f200f220920489ca2b5937696c31": {Name: "ApprovalForAll", Type: "ERC-721"},
	"0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822": {Name: "Swap", Type: "Uniswap V2"},
	"0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67": {Name: "Swap", Type: "Uniswap V3"},
	"0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1": {Name: "Sync", Type: "Uniswap V2"},
}

var knownContracts = map[string]KnownContract{
	// Tokens
	"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": {Name: "USDC", Type: "ERC-20", Trusted: true},
	"0xdac17f958d2ee523a2206206994597c13d831ec7": {Name: "USDT", Type: "ERC-20", Trusted: true},
	"0x6b175474e89094c44da98b954eedeac495271d0f": {Name: "DAI", Type: "ERC-20", Trusted: true},
	"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": {Name: "WETH", Type: "ERC-20", Trusted: true},
	"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599": {Name: "WBTC", Type: "ERC-20", Trusted: true},
	"0x514910771af9ca656af840dff83e8264ecf986ca": {Name: "LINK", Type: "ERC-20", Trusted: true},
	"0x1f9840a85d5af5bf1d1762f925bdaddc4201f984": {Name: "UNI", Type: "ERC-20", Trusted: true},
	// DEX routers
	"0x7a250d5630b4cf539739df2c5dacb4c659f2488d": {Name: "Uniswap V2 Router", Type: "DEX", Trusted: true},
	"0xe592427a0aece92de3edee1f18e0157c05861564": {Name: "Uniswap V3 Router", Type: "DEX", Trusted: true},
	"0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45": {Name: "Uniswap V3 Router 02", Type: "DEX", Trusted: true},
	"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad": {Name: "Uniswap Universal Router", Type: "DEX", Trusted: true},
	"0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f": {Name: "SushiSwap Router", Type: "DEX", Trusted: true},
	"0x1111111254eeb25477b68fb85ed929f73a960582": {Name: "1inch V5 Router", Type: "DEX", Trusted: true},
	// NFT
	"0x00000000000000adc04c56bf30ac9d3c0aaf14dc": {Name: "OpenSea Seaport 1.5", Type: "NFT", Trusted: true},
	// DeFi
	"0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9": {Name: "Aave V2", Type: "Lending", Trusted: true},
	"0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2": {Name: "Aave V3", Type: "Lending", Trusted: true},
	"0x3d9819210a31b4961b30ef54be2aed79b9c9cd3b": {Name: "Compound Comptroller", Type: "Lending", Trusted: true},
}

// Known scam/dangerous addresses (lowercase).
var knownScamAddresses = map[string]bool{
	"0x0000000000000000000000000000000000000000": true,
	"0x000000000000000000000000000000000000dead": true,
	"0xbad00000000000000000000000000000000bad01": true,
	"0xbad00000000000000000000000000000000bad02": true,
	"0xbad00000000000000000000000000000000bad03": true,
}

// MaxUint256 is 2^256 - 1.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// UnlimitedThreshold is (2^256 - 1) / 2. Any approval amount strictly above
// it is treated as an unlimited approval.
var UnlimitedThreshold = new(big.Int).Rsh(MaxUint256, 1)

// LookupSelector resolves the first 4 bytes of call data. The input may be
// the full data payload; only the first 10 characters are considered.
func LookupSelector(data string) (FunctionSignature, bool) {
	s := strings.ToLower(data)
	if len(s) > 10 {
		s = s[:10]
	}
	sig, ok := functionSignatures[s]
	return sig, ok
}

// LookupEvent resolves a 32-byte topic0.
func LookupEvent(topic0 string) (EventSignature, bool) {
	ev, ok := eventSignatures[strings.ToLower(topic0)]
	return ev, ok
}

// LookupContract resolves a curated mainnet address.
func LookupContract(address string) (KnownContract, bool) {
	kc, ok := knownContracts[strings.ToLower(address)]
	return kc, ok
}

// IsKnownScam reports whether the address is on the scam/phishing list.
func IsKnownScam(address string) bool {
	return knownScamAddresses[strings.ToLower(address)]
}
