// Package unlock implements the Copus pay-per-unlock payment protocol client.
// It negotiates a machine-payable HTTP 402 exchange: an ERC-3009
// TransferWithAuthorization is built as EIP-712 typed data, signed by a
// user-controlled wallet, encoded into an X-PAYMENT header and submitted to
// unlock gated content. The package root holds the network/asset registry and
// the shared protocol types; the flow package drives the full exchange.
package unlock

import (
	"os"
	"sort"
)

// Network identifies a supported blockchain network.
type Network string

const (
	// NetworkXLayer is the OKX X Layer mainnet.
	NetworkXLayer Network = "xlayer"

	// NetworkBaseMainnet is the Base mainnet.
	NetworkBaseMainnet Network = "base-mainnet"

	// NetworkBaseSepolia is the Base Sepolia testnet.
	NetworkBaseSepolia Network = "base-sepolia"
)

// Networks returns all supported networks in display order.
func Networks() []Network {
	return []Network{NetworkBaseMainnet, NetworkBaseSepolia, NetworkXLayer}
}

// Token identifies a supported stablecoin.
type Token string

const (
	// TokenUSDC is Circle's USD Coin.
	TokenUSDC Token = "usdc"

	// TokenUSDT is Tether USD.
	TokenUSDT Token = "usdt"
)

// Tier selects the deployed contract set.
type Tier string

const (
	// TierProduction selects the production contract set.
	TierProduction Tier = "production"

	// TierTest selects the test contract set.
	TierTest Tier = "test"
)

// TierEnvVar is the environment variable consulted by CurrentTier.
const TierEnvVar = "COPUS_DEPLOY_TIER"

// CurrentTier reads the active deployment tier from the environment.
// Anything other than an explicit "test" means production.
func CurrentTier() Tier {
	if os.Getenv(TierEnvVar) == string(TierTest) {
		return TierTest
	}
	return TierProduction
}

// NativeCurrency describes a network's gas currency.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// NetworkDescriptor is the immutable per-network configuration. Descriptors
// are defined at package init and never mutated.
type NetworkDescriptor struct {
	// ID is the protocol network identifier.
	ID Network

	// ChainID is the numeric EVM chain id.
	ChainID uint64

	// ChainIDHex is the 0x-prefixed chain id used in wallet switch/add calls.
	ChainIDHex string

	// Name is the human-readable network name.
	Name string

	// RPCURLs is the ordered list of public RPC endpoints.
	RPCURLs []string

	// BlockExplorerURLs lists the block explorers for wallet_addEthereumChain.
	BlockExplorerURLs []string

	// NativeCurrency is the gas currency metadata.
	NativeCurrency NativeCurrency

	// TokenDecimals is the decimal count shared by the stablecoins on this network.
	TokenDecimals int
}

var networkDescriptors = map[Network]NetworkDescriptor{
	NetworkXLayer: {
		ID:                NetworkXLayer,
		ChainID:           196,
		ChainIDHex:        "0xc4",
		Name:              "X Layer Mainnet",
		RPCURLs:           []string{"https://rpc.xlayer.tech", "https://xlayerrpc.okx.com"},
		BlockExplorerURLs: []string{"https://www.oklink.com/xlayer"},
		NativeCurrency:    NativeCurrency{Name: "OKB", Symbol: "OKB", Decimals: 18},
		TokenDecimals:     6,
	},
	NetworkBaseMainnet: {
		ID:                NetworkBaseMainnet,
		ChainID:           8453,
		ChainIDHex:        "0x2105",
		Name:              "Base Mainnet",
		RPCURLs:           []string{"https://mainnet.base.org", "https://developer-access-mainnet.base.org"},
		BlockExplorerURLs: []string{"https://basescan.org"},
		NativeCurrency:    NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18},
		TokenDecimals:     6,
	},
	NetworkBaseSepolia: {
		ID:                NetworkBaseSepolia,
		ChainID:           84532,
		ChainIDHex:        "0x14a34",
		Name:              "Base Sepolia",
		RPCURLs:           []string{"https://sepolia.base.org"},
		BlockExplorerURLs: []string{"https://sepolia.basescan.org"},
		NativeCurrency:    NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18},
		TokenDecimals:     6,
	},
}

// tokenContracts maps (network, tier, token) to a contract address. A missing
// cell means the token is not deployed on that network/tier; no placeholder
// addresses ever appear here. X Layer intentionally uses the mainnet contracts
// on both tiers, and Base Sepolia is a testnet on both tiers.
var tokenContracts = map[Network]map[Tier]map[Token]string{
	NetworkXLayer: {
		TierProduction: {
			TokenUSDC: "0x74b7F16337b8972027F6196A17a631aC6dE26d22",
			TokenUSDT: "0x779ded0c9e1022225f8e0630b35a9b54be713736",
		},
		TierTest: {
			TokenUSDC: "0x74b7F16337b8972027F6196A17a631aC6dE26d22",
			TokenUSDT: "0x779ded0c9e1022225f8e0630b35a9b54be713736",
		},
	},
	NetworkBaseMainnet: {
		TierProduction: {
			TokenUSDC: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		TierTest: {
			TokenUSDC: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
	},
	NetworkBaseSepolia: {
		TierProduction: {
			TokenUSDC: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		},
		TierTest: {
			TokenUSDC: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		},
	},
}

// DomainParams are the per-asset EIP-712 domain name and version. These must
// match the deployed token contract or signatures fail verification on-chain.
type DomainParams struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// eip712Domains maps (network, token) to the token's EIP-712 domain
// parameters. The Sepolia USDC deployment reports "USDC" rather than
// "USD Coin" from its contract.
var eip712Domains = map[Network]map[Token]DomainParams{
	NetworkXLayer: {
		TokenUSDC: {Name: "USD Coin", Version: "2"},
		TokenUSDT: {Name: "Tether USD", Version: "1"},
	},
	NetworkBaseMainnet: {
		TokenUSDC: {Name: "USD Coin", Version: "2"},
	},
	NetworkBaseSepolia: {
		TokenUSDC: {Name: "USDC", Version: "2"},
	},
}

// GetNetworkConfig returns the descriptor for the given network.
// It fails with ErrUnsupportedNetwork for networks outside the closed set.
func GetNetworkConfig(network Network) (NetworkDescriptor, error) {
	desc, ok := networkDescriptors[network]
	if !ok {
		return NetworkDescriptor{}, NewPaymentError(ErrCodeUnsupportedNetwork, "unsupported network", ErrUnsupportedNetwork).
			WithDetails("network", string(network))
	}
	return desc, nil
}

// GetTokenContract resolves the contract address for (network, token) under
// the given tier. ok is false when the token is not deployed there; absence
// is an expected outcome, not an error.
func GetTokenContract(network Network, token Token, tier Tier) (string, bool) {
	addr, ok := tokenContracts[network][tier][token]
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

// GetSupportedTokens returns the tokens with a deployed contract on the
// network under the given tier, in stable order.
func GetSupportedTokens(network Network, tier Tier) []Token {
	cells := tokenContracts[network][tier]
	tokens := make([]Token, 0, len(cells))
	for token, addr := range cells {
		if addr != "" {
			tokens = append(tokens, token)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}

// IsTokenSupported reports whether the token resolves to a contract on the
// network under the given tier.
func IsTokenSupported(network Network, token Token, tier Tier) bool {
	_, ok := GetTokenContract(network, token, tier)
	return ok
}

// GetDomainParams returns the EIP-712 domain name and version for the token
// on the given network. ok is false when the pair is unsupported.
func GetDomainParams(network Network, token Token) (DomainParams, bool) {
	params, ok := eip712Domains[network][token]
	return params, ok
}

// DefaultToken returns the currency a network is paid in: X Layer unlocks are
// priced in USDT, Base networks in USDC.
func DefaultToken(network Network) Token {
	if network == NetworkXLayer {
		return TokenUSDT
	}
	return TokenUSDC
}

// DefaultNetwork returns the network preselected for a wallet kind identifier
// as remembered from authentication ("okx" steers to X Layer).
func DefaultNetwork(authMethod string) Network {
	if authMethod == "okx" {
		return NetworkXLayer
	}
	return NetworkBaseMainnet
}
